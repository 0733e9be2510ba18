package user

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"
)

var (
	ErrIDRequired          = errors.New("user: id is required")
	ErrContactRequired     = errors.New("user: email or phone is required")
	ErrEmailInvalid        = errors.New("user: email is invalid")
	ErrPhoneInvalid        = errors.New("user: phone is invalid")
	ErrPasswordHashMissing = errors.New("user: password hash is required")
	ErrNameRequired        = errors.New("user: name is required")
	ErrEmailAlreadyUsed    = errors.New("user: email already used")
	ErrPhoneAlreadyUsed    = errors.New("user: phone already used")
	ErrNotFound            = errors.New("user: not found")
)

type ID string

type User struct {
	ID           ID
	Name         string
	CompanyName  string
	Email        string
	Phone        string
	PasswordHash string
	Location     string
	AvatarURL    string
	Verified     bool
	Admin        bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Repository persists users. Create and Update report ErrEmailAlreadyUsed or
// ErrPhoneAlreadyUsed when a unique contact collides.
type Repository interface {
	ByID(ctx context.Context, id ID) (*User, error)
	ByEmail(ctx context.Context, email string) (*User, error)
	ByPhone(ctx context.Context, phone string) (*User, error)
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
}

type CreateParams struct {
	ID           ID
	Name         string
	CompanyName  string
	Email        string
	Phone        string
	PasswordHash string
	Location     string
	CreatedAt    time.Time
}

func NewUser(params CreateParams) (*User, error) {
	id := strings.TrimSpace(string(params.ID))
	if id == "" {
		return nil, ErrIDRequired
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	email, phone, err := normalizeContact(params.Email, params.Phone)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(params.PasswordHash) == "" {
		return nil, ErrPasswordHashMissing
	}

	now := params.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	return &User{
		ID:           ID(id),
		Name:         name,
		CompanyName:  strings.TrimSpace(params.CompanyName),
		Email:        email,
		Phone:        phone,
		PasswordHash: params.PasswordHash,
		Location:     strings.TrimSpace(params.Location),
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ProfileUpdate carries the self-editable profile fields. Nil pointers leave a field untouched.
type ProfileUpdate struct {
	Name        *string
	CompanyName *string
	Phone       *string
	Location    *string
	AvatarURL   *string
}

func (u *User) ApplyProfile(update ProfileUpdate, now time.Time) error {
	next := *u
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return ErrNameRequired
		}
		next.Name = name
	}
	if update.CompanyName != nil {
		next.CompanyName = strings.TrimSpace(*update.CompanyName)
	}
	if update.Phone != nil {
		email, phone, err := normalizeContact(u.Email, *update.Phone)
		if err != nil {
			return err
		}
		next.Email, next.Phone = email, phone
	}
	if update.Location != nil {
		next.Location = strings.TrimSpace(*update.Location)
	}
	if update.AvatarURL != nil {
		next.AvatarURL = strings.TrimSpace(*update.AvatarURL)
	}
	*u = next
	u.touch(now)
	return nil
}

func (u *User) SetPasswordHash(hash string, now time.Time) error {
	if strings.TrimSpace(hash) == "" {
		return ErrPasswordHashMissing
	}
	u.PasswordHash = hash
	u.touch(now)
	return nil
}

func (u *User) touch(now time.Time) {
	if now.IsZero() {
		now = time.Now()
	}
	u.UpdatedAt = now.UTC()
}

// NormalizeEmail lower-cases and trims an address; lookups use the same form as storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone strips separators, keeping digits and a leading plus.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	var b strings.Builder
	for i, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func normalizeContact(rawEmail, rawPhone string) (string, string, error) {
	email := NormalizeEmail(rawEmail)
	phone := NormalizePhone(rawPhone)
	if email == "" && phone == "" {
		return "", "", ErrContactRequired
	}
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return "", "", ErrEmailInvalid
		}
	}
	if phone != "" && len(strings.TrimPrefix(phone, "+")) < 7 {
		return "", "", ErrPhoneInvalid
	}
	return email, phone, nil
}
