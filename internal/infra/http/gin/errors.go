package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	mediaapp "tumbi/internal/app/handlers/media"
	"tumbi/internal/app/middleware"
	authsvc "tumbi/internal/app/services/auth"
	"tumbi/internal/app/uow"
	domainauth "tumbi/internal/domain/auth"
	domainchat "tumbi/internal/domain/chat"
	domainlistings "tumbi/internal/domain/listings"
	domainsaved "tumbi/internal/domain/saved"
	domainuser "tumbi/internal/domain/user"
)

type errorMapping struct {
	err    error
	status int
}

// errorTable maps domain sentinels to HTTP statuses. The first match wins.
var errorTable = []errorMapping{
	{domainlistings.ErrTitleRequired, http.StatusBadRequest},
	{domainlistings.ErrPriceInvalid, http.StatusBadRequest},
	{domainlistings.ErrCategoryRequired, http.StatusBadRequest},
	{domainlistings.ErrLocationRequired, http.StatusBadRequest},
	{domainlistings.ErrImagesRequired, http.StatusBadRequest},
	{domainlistings.ErrImageURL, http.StatusBadRequest},
	{domainlistings.ErrSellerRequired, http.StatusBadRequest},
	{domainlistings.ErrIDRequired, http.StatusBadRequest},
	{domainuser.ErrContactRequired, http.StatusBadRequest},
	{domainuser.ErrEmailInvalid, http.StatusBadRequest},
	{domainuser.ErrPhoneInvalid, http.StatusBadRequest},
	{domainuser.ErrNameRequired, http.StatusBadRequest},
	{domainuser.ErrIDRequired, http.StatusBadRequest},
	{authsvc.ErrPasswordTooShort, http.StatusBadRequest},
	{domainchat.ErrListingRequired, http.StatusBadRequest},
	{domainchat.ErrSelfConversation, http.StatusBadRequest},
	{domainchat.ErrEmptyMessage, http.StatusBadRequest},
	{domainchat.ErrMessageTooLong, http.StatusBadRequest},
	{domainchat.ErrIDRequired, http.StatusBadRequest},
	{mediaapp.ErrNoImages, http.StatusBadRequest},
	{mediaapp.ErrTooManyImages, http.StatusBadRequest},
	{ErrIdempotencyKeyTooLong, http.StatusBadRequest},

	{middleware.ErrUnauthenticated, http.StatusUnauthorized},
	{authsvc.ErrInvalidCredentials, http.StatusUnauthorized},
	{domainauth.ErrTokenRequired, http.StatusUnauthorized},
	{domainauth.ErrTokenInvalid, http.StatusUnauthorized},
	{domainauth.ErrTokenExpired, http.StatusUnauthorized},

	{domainchat.ErrNotParticipant, http.StatusForbidden},

	{domainlistings.ErrNotFound, http.StatusNotFound},
	{domainuser.ErrNotFound, http.StatusNotFound},
	{domainchat.ErrNotFound, http.StatusNotFound},
	{domainsaved.ErrListingNotFound, http.StatusNotFound},

	{domainuser.ErrEmailAlreadyUsed, http.StatusConflict},
	{domainuser.ErrPhoneAlreadyUsed, http.StatusConflict},
	{domainlistings.ErrSlugTaken, http.StatusConflict},
	{uow.ErrDuplicateRequest, http.StatusConflict},

	{mediaapp.ErrUploadDisabled, http.StatusServiceUnavailable},
}

// classify returns the status and client message for err. Anything not in
// errorTable is a 500 with a generic message.
func classify(err error) (int, string) {
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			return m.status, publicMessage(m.err)
		}
	}
	return http.StatusInternalServerError, "server error"
}

// publicMessage drops the "package: " prefix of a sentinel's text.
func publicMessage(err error) string {
	msg := err.Error()
	if _, rest, ok := strings.Cut(msg, ": "); ok {
		return rest
	}
	return msg
}

// respondError writes the JSON error body. Server errors are logged with the
// request context; client errors only at debug level.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	status, message := classify(err)
	if logger != nil {
		attrs := []any{"status", status, "error", err, "path", c.FullPath(), "request_id", c.GetString("request_id")}
		if id := principalID(c); id != "" {
			attrs = append(attrs, "user_id", id)
		}
		if status >= http.StatusInternalServerError {
			logger.Error("request failed", attrs...)
		} else {
			logger.Debug("request rejected", attrs...)
		}
	}
	c.JSON(status, gin.H{"error": message})
}

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}

// IdempotencyKeyHeader lets clients retry creates and sends without duplicates.
const IdempotencyKeyHeader = "Idempotency-Key"

const maxIdempotencyKeyLen = 128

var ErrIdempotencyKeyTooLong = errors.New("http: Idempotency-Key must be at most 128 characters")

// idempotencyKey returns the trimmed header, "" when absent. An oversized key
// is rejected rather than ignored so the caller never loses replay protection
// without noticing.
func idempotencyKey(c *gin.Context) (string, error) {
	key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
	if len(key) > maxIdempotencyKeyLen {
		return "", ErrIdempotencyKeyTooLong
	}
	return key, nil
}
