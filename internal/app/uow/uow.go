package uow

import (
	"context"

	"tumbi/internal/app/outbox"
	domainchat "tumbi/internal/domain/chat"
	domainlistings "tumbi/internal/domain/listings"
	domainsaved "tumbi/internal/domain/saved"
	domainuser "tumbi/internal/domain/user"
)

// UnitOfWork exposes repositories bound to one transaction.
type UnitOfWork interface {
	Listings() domainlistings.Repository
	Users() domainuser.Repository
	Saved() domainsaved.Repository
	Chat() domainchat.Repository
	Outbox() outbox.Outbox
	Idempotency() IdempotencyStore

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

type TxOptions struct {
	ReadOnly bool
}
