package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	domainauth "tumbi/internal/domain/auth"
	domainuser "tumbi/internal/domain/user"
)

var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrPasswordTooShort   = errors.New("auth: password must be at least 6 characters")
)

const minPasswordLength = 6

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// TokenIssuer signs and verifies bearer tokens. Verify reports
// domainauth.ErrTokenExpired separately from ErrTokenInvalid.
type TokenIssuer interface {
	Issue(claims domainauth.Claims) (string, error)
	Verify(token string) (domainauth.Claims, error)
}

type Service struct {
	Users     domainuser.Repository
	Passwords PasswordHasher
	Tokens    TokenIssuer
	TokenTTL  time.Duration
	Logger    *slog.Logger
	Now       func() time.Time
}

type RegisterParams struct {
	Name        string
	CompanyName string
	Email       string
	Phone       string
	Location    string
	Password    string
}

// LoginParams identifies the account by email or phone.
type LoginParams struct {
	Identifier string
	Password   string
}

type AuthResult struct {
	User  *domainuser.User
	Token string
}

type ResolveResult struct {
	User   *domainuser.User
	Claims domainauth.Claims
}

func (s *Service) Register(ctx context.Context, params RegisterParams) (*AuthResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(params.Password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}
	hash, err := s.Passwords.Hash(params.Password)
	if err != nil {
		return nil, err
	}
	user, err := domainuser.NewUser(domainuser.CreateParams{
		ID:           domainuser.ID(uuid.NewString()),
		Name:         params.Name,
		CompanyName:  params.CompanyName,
		Email:        params.Email,
		Phone:        params.Phone,
		PasswordHash: hash,
		Location:     params.Location,
		CreatedAt:    s.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.Users.Create(ctx, user); err != nil {
		return nil, err
	}
	token, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("user registered", "user_id", user.ID)
	}
	return &AuthResult{User: user, Token: token}, nil
}

func (s *Service) Login(ctx context.Context, params LoginParams) (*AuthResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	identifier := strings.TrimSpace(params.Identifier)
	if identifier == "" {
		return nil, ErrInvalidCredentials
	}
	var (
		user *domainuser.User
		err  error
	)
	if strings.Contains(identifier, "@") {
		user, err = s.Users.ByEmail(ctx, domainuser.NormalizeEmail(identifier))
	} else {
		user, err = s.Users.ByPhone(ctx, domainuser.NormalizePhone(identifier))
	}
	if err != nil {
		if errors.Is(err, domainuser.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.Passwords.Compare(user.PasswordHash, params.Password); err != nil {
		return nil, ErrInvalidCredentials
	}
	token, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("user authenticated", "user_id", user.ID)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// ResolveToken verifies token and loads its user. A token whose user no
// longer exists is reported as invalid.
func (s *Service) ResolveToken(ctx context.Context, token string) (*ResolveResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domainauth.ErrTokenRequired
	}
	claims, err := s.Tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	if claims.Expired(s.now()) {
		return nil, domainauth.ErrTokenExpired
	}
	user, err := s.Users.ByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domainuser.ErrNotFound) {
			return nil, domainauth.ErrTokenInvalid
		}
		return nil, err
	}
	return &ResolveResult{User: user, Claims: claims}, nil
}

func (s *Service) issue(user *domainuser.User) (string, error) {
	if user == nil {
		return "", domainauth.ErrUserRequired
	}
	ttl := s.TokenTTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	now := s.now().UTC()
	return s.Tokens.Issue(domainauth.Claims{
		UserID:    user.ID,
		Admin:     user.Admin,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	})
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) ensureDependencies() error {
	switch {
	case s.Users == nil:
		return errors.New("auth: user repository required")
	case s.Passwords == nil:
		return errors.New("auth: password hasher required")
	case s.Tokens == nil:
		return errors.New("auth: token issuer required")
	default:
		return nil
	}
}
