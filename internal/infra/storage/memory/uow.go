package memory

import (
	"context"
	"errors"

	"tumbi/internal/app/outbox"
	"tumbi/internal/app/uow"
	domainchat "tumbi/internal/domain/chat"
	domainlistings "tumbi/internal/domain/listings"
	domainsaved "tumbi/internal/domain/saved"
	domainuser "tumbi/internal/domain/user"
)

var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// Factory hands out units over one Store. Writes are visible immediately;
// no isolation or rollback is provided.
type Factory struct {
	Store *Store
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Store == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{store: f.Store}, nil
}

type Unit struct {
	store *Store
}

func (u *Unit) Listings() domainlistings.Repository { return u.store.Listings() }
func (u *Unit) Users() domainuser.Repository        { return u.store.Users() }
func (u *Unit) Saved() domainsaved.Repository       { return u.store.Saved() }
func (u *Unit) Chat() domainchat.Repository         { return u.store.Chat() }
func (u *Unit) Outbox() outbox.Outbox               { return u.store.Outbox() }
func (u *Unit) Idempotency() uow.IdempotencyStore   { return u.store.Idempotency() }

func (u *Unit) Commit(ctx context.Context) error   { return nil }
func (u *Unit) Rollback(ctx context.Context) error { return nil }

var _ uow.UoWFactory = Factory{}
