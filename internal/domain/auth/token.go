package auth

import (
	"errors"
	"time"

	"tumbi/internal/domain/user"
)

var (
	ErrTokenRequired = errors.New("auth: token is required")
	ErrTokenInvalid  = errors.New("auth: token is not valid")
	ErrTokenExpired  = errors.New("auth: token has expired")
	ErrUserRequired  = errors.New("auth: user is required")
	ErrTTLInvalid    = errors.New("auth: ttl must be positive")
)

type Token string

// Claims is what a verified token asserts about its bearer.
type Claims struct {
	UserID    user.ID
	Admin     bool
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func (c Claims) Expired(at time.Time) bool {
	if at.IsZero() {
		at = time.Now()
	}
	return !c.ExpiresAt.After(at.UTC())
}
