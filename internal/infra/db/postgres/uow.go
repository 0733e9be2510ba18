package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"tumbi/internal/app/outbox"
	"tumbi/internal/app/uow"
	domainchat "tumbi/internal/domain/chat"
	domainlistings "tumbi/internal/domain/listings"
	domainsaved "tumbi/internal/domain/saved"
	domainuser "tumbi/internal/domain/user"
	infraoutbox "tumbi/internal/infra/outbox"
)

// Factory begins one database transaction per unit of work.
type Factory struct {
	DB *sqlx.DB
}

func NewFactory(db *sqlx.DB) *Factory {
	return &Factory{DB: db}
}

func (f *Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f == nil || f.DB == nil {
		return nil, errors.New("postgres: factory has no database")
	}
	tx, err := f.DB.BeginTxx(ctx, &sql.TxOptions{ReadOnly: opts.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("postgres: begin: %w", err)
	}
	return &Unit{
		tx:       tx,
		listings: NewListingRepository(tx),
		users:    NewUserRepository(tx),
		saved:    NewSavedRepository(tx),
		chat:     NewChatRepository(tx),
		outbox:   infraoutbox.NewPostgresStore(tx),
		idem:     NewIdempotencyStore(tx),
	}, nil
}

// Unit holds one *sqlx.Tx and therefore one pooled connection until Commit or Rollback.
type Unit struct {
	tx       *sqlx.Tx
	done     bool
	listings *ListingRepository
	users    *UserRepository
	saved    *SavedRepository
	chat     *ChatRepository
	outbox   *infraoutbox.PostgresStore
	idem     *IdempotencyStore
}

func (u *Unit) Listings() domainlistings.Repository { return u.listings }
func (u *Unit) Users() domainuser.Repository        { return u.users }
func (u *Unit) Saved() domainsaved.Repository       { return u.saved }
func (u *Unit) Chat() domainchat.Repository         { return u.chat }
func (u *Unit) Outbox() outbox.Outbox               { return u.outbox }
func (u *Unit) Idempotency() uow.IdempotencyStore   { return u.idem }

func (u *Unit) Commit(ctx context.Context) error {
	if u.done {
		return sql.ErrTxDone
	}
	u.done = true
	if err := u.tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

// Rollback is safe to call after Commit; it then does nothing.
func (u *Unit) Rollback(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	if err := u.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("postgres: rollback: %w", err)
	}
	return nil
}

var _ uow.UoWFactory = (*Factory)(nil)
