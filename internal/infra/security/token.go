package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	domainauth "tumbi/internal/domain/auth"
	domainuser "tumbi/internal/domain/user"
)

const tokenIssuer = "tumbi"

type tokenClaims struct {
	Admin bool `json:"adm,omitempty"`
	jwt.RegisteredClaims
}

// JWTIssuer signs HS256 tokens carrying the user id as subject.
type JWTIssuer struct {
	Secret []byte
	Now    func() time.Time
}

func NewJWTIssuer(secret string) (*JWTIssuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("security: jwt secret is required")
	}
	return &JWTIssuer{Secret: []byte(secret)}, nil
}

func (j *JWTIssuer) Issue(claims domainauth.Claims) (string, error) {
	if claims.UserID == "" {
		return "", domainauth.ErrUserRequired
	}
	if !claims.ExpiresAt.After(claims.IssuedAt) {
		return "", domainauth.ErrTTLInvalid
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		Admin: claims.Admin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   string(claims.UserID),
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
	})
	signed, err := token.SignedString(j.Secret)
	if err != nil {
		return "", fmt.Errorf("security: sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, issuer and expiry.
func (j *JWTIssuer) Verify(raw string) (domainauth.Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domainauth.Claims{}, domainauth.ErrTokenRequired
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	}
	if j.Now != nil {
		opts = append(opts, jwt.WithTimeFunc(j.Now))
	}
	var parsed tokenClaims
	_, err := jwt.ParseWithClaims(raw, &parsed, func(*jwt.Token) (any, error) {
		return j.Secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domainauth.Claims{}, domainauth.ErrTokenExpired
		}
		return domainauth.Claims{}, domainauth.ErrTokenInvalid
	}
	if parsed.Subject == "" {
		return domainauth.Claims{}, domainauth.ErrTokenInvalid
	}
	out := domainauth.Claims{UserID: domainuser.ID(parsed.Subject), Admin: parsed.Admin}
	if parsed.IssuedAt != nil {
		out.IssuedAt = parsed.IssuedAt.Time
	}
	if parsed.ExpiresAt != nil {
		out.ExpiresAt = parsed.ExpiresAt.Time
	}
	return out, nil
}
