package ginserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	authsvc "tumbi/internal/app/services/auth"
	domainauth "tumbi/internal/domain/auth"
	domainuser "tumbi/internal/domain/user"
)

const (
	principalContextKey = "tumbi.principal"
	authErrorContextKey = "tumbi.auth_error"

	// TokenHeader is the header the web client sends its token in.
	TokenHeader = "X-Auth-Token"
)

type principal struct {
	ID    string
	Admin bool
	User  *domainuser.User
}

// TokenResolver is satisfied by *authsvc.Service.
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (*authsvc.ResolveResult, error)
}

// AuthMiddleware resolves the request token once. Handle never rejects a
// request; protected routes add Require, which answers 401 on their behalf.
type AuthMiddleware struct {
	Resolver TokenResolver
	Logger   *slog.Logger
}

func (m AuthMiddleware) Handle(c *gin.Context) {
	token := extractToken(c.Request)
	if token == "" {
		c.Set(authErrorContextKey, domainauth.ErrTokenRequired)
		c.Next()
		return
	}
	if m.Resolver == nil {
		c.Set(authErrorContextKey, domainauth.ErrTokenInvalid)
		c.Next()
		return
	}
	resolved, err := m.Resolver.ResolveToken(c.Request.Context(), token)
	if err != nil {
		if !errors.Is(err, domainauth.ErrTokenInvalid) && !errors.Is(err, domainauth.ErrTokenExpired) {
			if m.Logger != nil {
				m.Logger.Warn("token resolution failed", "error", err)
			}
			err = domainauth.ErrTokenInvalid
		}
		c.Set(authErrorContextKey, err)
		c.Next()
		return
	}
	c.Set(principalContextKey, principal{
		ID:    string(resolved.User.ID),
		Admin: resolved.User.Admin,
		User:  resolved.User,
	})
	c.Next()
}

// Require aborts with 401 unless Handle attached a principal.
func (m AuthMiddleware) Require() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := currentPrincipal(c); ok {
			c.Next()
			return
		}
		message := "no token, authorization denied"
		if v, ok := c.Get(authErrorContextKey); ok {
			if err, _ := v.(error); errors.Is(err, domainauth.ErrTokenExpired) {
				message = "token has expired"
			} else if !errors.Is(err, domainauth.ErrTokenRequired) {
				message = "token is not valid"
			}
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": message})
	}
}

func currentPrincipal(c *gin.Context) (principal, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return principal{}, false
	}
	p, ok := val.(principal)
	return p, ok
}

// principalID is empty for anonymous requests; the bus rejects empty actors.
func principalID(c *gin.Context) string {
	p, _ := currentPrincipal(c)
	return p.ID
}

func extractToken(r *http.Request) string {
	if token := strings.TrimSpace(r.Header.Get(TokenHeader)); token != "" {
		return token
	}
	return extractBearerToken(r.Header.Get("Authorization"))
}

func extractBearerToken(header string) string {
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
