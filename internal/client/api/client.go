// Package api is the JSON client for the Tumbi REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	ErrUnauthorized = errors.New("api: unauthorized")
	ErrNotFound     = errors.New("api: not found")
	ErrForbidden    = errors.New("api: forbidden")
)

// APIError is a non-2xx response. errors.Is matches it against ErrUnauthorized,
// ErrForbidden and ErrNotFound by status.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// TokenSource supplies the current session token; empty means anonymous.
type TokenSource interface {
	Token() string
}

const (
	tokenHeader          = "X-Auth-Token"
	idempotencyKeyHeader = "Idempotency-Key"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
	Tokens  TokenSource
	Logger  *slog.Logger
}

// New builds a client for baseURL, e.g. http://localhost:8080/api.
func New(baseURL string, tokens TokenSource) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 15 * time.Second},
		Tokens:  tokens,
	}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var raw []byte
	if in != nil {
		var err error
		if raw, err = json.Marshal(in); err != nil {
			return fmt.Errorf("api: encode %s %s: %w", method, path, err)
		}
	}
	target := c.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	attempts := 1
	if IdempotencyKeyFrom(ctx) != "" {
		attempts = 2
	}
	var err error
	for i := 0; i < attempts; i++ {
		var body io.Reader
		if raw != nil {
			body = bytes.NewReader(raw)
		}
		req, rerr := http.NewRequestWithContext(ctx, method, target, body)
		if rerr != nil {
			return rerr
		}
		if raw != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		err = c.send(req, out)
		var apiErr *APIError
		if err == nil || errors.As(err, &apiErr) || ctx.Err() != nil {
			return err
		}
	}
	return err
}

type idempotencyKeyCtx struct{}

// WithIdempotencyKey marks requests made with ctx as safely retryable; the
// server replays the first result for a repeated key.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKeyCtx{}, key)
}

func IdempotencyKeyFrom(ctx context.Context) string {
	key, _ := ctx.Value(idempotencyKeyCtx{}).(string)
	return key
}

func (c *Client) send(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	if key := IdempotencyKeyFrom(req.Context()); key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
	}
	if c.Tokens != nil {
		if token := c.Tokens.Token(); token != "" {
			req.Header.Set(tokenHeader, token)
		}
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("api: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(raw, &payload) == nil {
			apiErr.Message = payload.Error
		}
		if c.Logger != nil {
			c.Logger.Debug("api request failed", "method", req.Method, "path", req.URL.Path, "status", resp.StatusCode, "error", apiErr.Message)
		}
		return apiErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: decode %s %s: %w", req.Method, req.URL.Path, err)
	}
	return nil
}
