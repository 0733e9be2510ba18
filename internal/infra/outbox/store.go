package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	appoutbox "tumbi/internal/app/outbox"
)

const (
	StateNew     = "NEW"
	StateClaimed = "CLAIMED"
	StateSent    = "SENT"
	StateFailed  = "FAILED"
)

// EventDocument is one outbox row as seen by the relay worker.
type EventDocument struct {
	ID          string
	Name        string
	Payload     []byte
	OccurredAt  time.Time
	Aggregate   string
	Headers     map[string]string
	State       string
	Attempts    int
	NextAttempt time.Time
	ClaimedBy   string
	ClaimedAt   time.Time
	SentAt      time.Time
	LastError   string
	CreatedAt   time.Time
}

// Store is what the worker needs from an outbox backend.
type Store interface {
	Claim(ctx context.Context, workerID string) (*EventDocument, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error
}

// PostgresStore reads and writes the event_outbox table. Add runs on the
// caller's transaction so events commit atomically with the aggregate.
type PostgresStore struct {
	db sqlx.ExtContext
}

func NewPostgresStore(db sqlx.ExtContext) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Add(ctx context.Context, record appoutbox.EventRecord) error {
	headers, err := json.Marshal(record.Headers)
	if err != nil {
		return fmt.Errorf("outbox: encode headers: %w", err)
	}
	payload := record.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO event_outbox (id, name, aggregate, payload, headers, occurred_at, state, attempts, next_attempt_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, now(), now())`,
		record.ID, record.Name, record.Aggregate, payload, headers, record.OccurredAt, StateNew)
	return err
}

type eventRow struct {
	ID          string         `db:"id"`
	Name        string         `db:"name"`
	Aggregate   string         `db:"aggregate"`
	Payload     []byte         `db:"payload"`
	Headers     []byte         `db:"headers"`
	OccurredAt  time.Time      `db:"occurred_at"`
	State       string         `db:"state"`
	Attempts    int            `db:"attempts"`
	NextAttempt time.Time      `db:"next_attempt_at"`
	ClaimedBy   sql.NullString `db:"claimed_by"`
	ClaimedAt   sql.NullTime   `db:"claimed_at"`
	CreatedAt   time.Time      `db:"created_at"`
}

// Claim locks the oldest due row with SKIP LOCKED so several relays can run.
func (s *PostgresStore) Claim(ctx context.Context, workerID string) (*EventDocument, error) {
	var row eventRow
	err := sqlx.GetContext(ctx, s.db, &row, `
		UPDATE event_outbox SET state = $1, claimed_by = $2, claimed_at = now()
		WHERE id = (
			SELECT id FROM event_outbox
			WHERE state IN ($3, $4) AND next_attempt_at <= now()
			ORDER BY created_at, id
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, name, aggregate, payload, headers, occurred_at, state, attempts, next_attempt_at, claimed_by, claimed_at, created_at`,
		StateClaimed, workerID, StateNew, StateFailed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("outbox: claim: %w", err)
	}
	doc := &EventDocument{
		ID:          row.ID,
		Name:        row.Name,
		Payload:     row.Payload,
		OccurredAt:  row.OccurredAt,
		Aggregate:   row.Aggregate,
		State:       row.State,
		Attempts:    row.Attempts,
		NextAttempt: row.NextAttempt,
		ClaimedBy:   row.ClaimedBy.String,
		ClaimedAt:   row.ClaimedAt.Time,
		CreatedAt:   row.CreatedAt,
	}
	if len(row.Headers) > 0 {
		if err := json.Unmarshal(row.Headers, &doc.Headers); err != nil {
			return nil, fmt.Errorf("outbox: decode headers: %w", err)
		}
	}
	return doc, nil
}

func (s *PostgresStore) MarkSent(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE event_outbox SET state = $1, sent_at = now() WHERE id = $2`, StateSent, id)
	return err
}

func (s *PostgresStore) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE event_outbox SET state = $1, next_attempt_at = $2, last_error = $3, attempts = attempts + 1
		WHERE id = $4`, StateFailed, next, errMsg, id)
	return err
}

var (
	_ appoutbox.Outbox = (*PostgresStore)(nil)
	_ Store            = (*PostgresStore)(nil)
)
