package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"tumbi/internal/app/uow"
)

type idempotencyRow struct {
	Key       string    `db:"key"`
	Payload   []byte    `db:"payload"`
	CreatedAt time.Time `db:"created_at"`
}

// IdempotencyStore writes through the unit's transaction, so a record exists
// only if the command that produced it committed.
type IdempotencyStore struct {
	db sqlx.ExtContext
}

func NewIdempotencyStore(db sqlx.ExtContext) *IdempotencyStore {
	return &IdempotencyStore{db: db}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (uow.IdempotencyRecord, bool, error) {
	var row idempotencyRow
	err := sqlx.GetContext(ctx, s.db, &row, `SELECT key, payload, created_at FROM idempotency_keys WHERE key = $1`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uow.IdempotencyRecord{}, false, nil
		}
		return uow.IdempotencyRecord{}, false, fmt.Errorf("postgres: idempotency lookup: %w", err)
	}
	return uow.IdempotencyRecord{Key: row.Key, Payload: row.Payload, OccurredAt: row.CreatedAt}, true, nil
}

// Save fails with uow.ErrDuplicateRequest when a concurrent request with the
// same key committed first.
func (s *IdempotencyStore) Save(ctx context.Context, rec uow.IdempotencyRecord) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO idempotency_keys (key, payload, created_at) VALUES ($1, $2, $3)`,
		rec.Key, rec.Payload, rec.OccurredAt)
	return translate(err, uow.ErrDuplicateRequest)
}

// PruneIdempotencyKeys deletes records older than ttl and reports how many went.
func PruneIdempotencyKeys(ctx context.Context, db *sqlx.DB, ttl time.Duration) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, time.Now().UTC().Add(-ttl))
	if err != nil {
		return 0, fmt.Errorf("postgres: prune idempotency keys: %w", err)
	}
	return res.RowsAffected()
}

var _ uow.IdempotencyStore = (*IdempotencyStore)(nil)
