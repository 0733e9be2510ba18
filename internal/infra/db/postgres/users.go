package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	domainuser "tumbi/internal/domain/user"
)

const userColumns = `id, name, company_name, email, phone, password_hash, location, avatar_url,
	verified, is_admin, created_at, updated_at`

type userRow struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	CompanyName  string         `db:"company_name"`
	Email        sql.NullString `db:"email"`
	Phone        sql.NullString `db:"phone"`
	PasswordHash string         `db:"password_hash"`
	Location     string         `db:"location"`
	AvatarURL    string         `db:"avatar_url"`
	Verified     bool           `db:"verified"`
	Admin        bool           `db:"is_admin"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func (r userRow) toDomain() *domainuser.User {
	return &domainuser.User{
		ID:           domainuser.ID(r.ID),
		Name:         r.Name,
		CompanyName:  r.CompanyName,
		Email:        r.Email.String,
		Phone:        r.Phone.String,
		PasswordHash: r.PasswordHash,
		Location:     r.Location,
		AvatarURL:    r.AvatarURL,
		Verified:     r.Verified,
		Admin:        r.Admin,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// UserRepository stores users. Empty email or phone is stored as NULL so the
// partial unique indexes only cover real contacts.
type UserRepository struct {
	db sqlx.ExtContext
}

func NewUserRepository(db sqlx.ExtContext) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) ByID(ctx context.Context, id domainuser.ID) (*domainuser.User, error) {
	return r.one(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, string(id))
}

func (r *UserRepository) ByEmail(ctx context.Context, email string) (*domainuser.User, error) {
	email = domainuser.NormalizeEmail(email)
	if email == "" {
		return nil, domainuser.ErrNotFound
	}
	return r.one(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *UserRepository) ByPhone(ctx context.Context, phone string) (*domainuser.User, error) {
	phone = domainuser.NormalizePhone(phone)
	if phone == "" {
		return nil, domainuser.ErrNotFound
	}
	return r.one(ctx, `SELECT `+userColumns+` FROM users WHERE phone = $1`, phone)
}

func (r *UserRepository) one(ctx context.Context, query string, arg any) (*domainuser.User, error) {
	var row userRow
	if err := sqlx.GetContext(ctx, r.db, &row, query, arg); err != nil {
		return nil, translate(err, domainuser.ErrNotFound)
	}
	return row.toDomain(), nil
}

func (r *UserRepository) Create(ctx context.Context, u *domainuser.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		string(u.ID), u.Name, u.CompanyName, nullable(u.Email), nullable(u.Phone), u.PasswordHash,
		u.Location, u.AvatarURL, u.Verified, u.Admin, u.CreatedAt, u.UpdatedAt)
	return translate(err, domainuser.ErrNotFound)
}

func (r *UserRepository) Update(ctx context.Context, u *domainuser.User) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET name = $2, company_name = $3, email = $4, phone = $5, password_hash = $6,
			location = $7, avatar_url = $8, updated_at = $9
		WHERE id = $1`,
		string(u.ID), u.Name, u.CompanyName, nullable(u.Email), nullable(u.Phone), u.PasswordHash,
		u.Location, u.AvatarURL, u.UpdatedAt)
	return expectRow(res, err, domainuser.ErrNotFound)
}

func nullable(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

// expectRow translates err and reports notFound when nothing was affected.
func expectRow(res sql.Result, err error, notFound error) error {
	if err != nil {
		return translate(err, notFound)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

var _ domainuser.Repository = (*UserRepository)(nil)
