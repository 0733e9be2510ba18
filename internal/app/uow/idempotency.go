package uow

import (
	"context"
	"errors"
	"time"
)

// ErrDuplicateRequest is returned when another request holding the same
// idempotency key committed first or is still running.
var ErrDuplicateRequest = errors.New("uow: request with this idempotency key is already in progress")

type IdempotencyRecord struct {
	Key        string
	Payload    []byte
	OccurredAt time.Time
}

// IdempotencyStore keeps the encoded results of replayable commands. Save
// fails with ErrDuplicateRequest when the key already exists.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (IdempotencyRecord, bool, error)
	Save(ctx context.Context, rec IdempotencyRecord) error
}
