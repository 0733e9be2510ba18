package listings

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"tumbi/internal/app/commands"
	"tumbi/internal/app/dto"
	"tumbi/internal/app/middleware"
	"tumbi/internal/app/outbox"
	"tumbi/internal/app/uow"
	domainlistings "tumbi/internal/domain/listings"
	domainuser "tumbi/internal/domain/user"
)

const (
	createListingKey = "listings.create"
	updateListingKey = "listings.update"
	deleteListingKey = "listings.delete"
	viewListingKey   = "listings.view"
)

type CreateListingCommand struct {
	SellerID string
	Input    dto.ListingInput
	// RequestKey is the client's Idempotency-Key; empty disables replay.
	RequestKey string
}

func (c CreateListingCommand) Key() string            { return createListingKey }
func (c CreateListingCommand) ActorID() string        { return c.SellerID }
func (c CreateListingCommand) IdempotencyKey() string { return c.RequestKey }
func (c CreateListingCommand) ResultPrototype() any   { return &dto.ListingCreated{} }

func (c CreateListingCommand) Validate() error {
	return c.Input.Attributes().Validate()
}

type CreateListingHandler struct {
	Logger  *slog.Logger
	Encoder outbox.EventEncoder
	Now     func() time.Time
}

func (h *CreateListingHandler) Handle(ctx context.Context, cmd CreateListingCommand) (dto.ListingCreated, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return dto.ListingCreated{}, uow.ErrUnitOfWorkMissing
	}
	seller, err := unit.Users().ByID(ctx, domainuser.ID(cmd.SellerID))
	if err != nil {
		if errors.Is(err, domainuser.ErrNotFound) {
			return dto.ListingCreated{}, middleware.ErrUnauthenticated
		}
		return dto.ListingCreated{}, err
	}

	listing, err := domainlistings.NewListing(domainlistings.CreateParams{
		ID:         domainlistings.ListingID(uuid.NewString()),
		Seller:     domainlistings.SellerID(seller.ID),
		Attributes: cmd.Input.Attributes(),
		Verified:   seller.Verified,
		Now:        now(h.Now),
	})
	if err != nil {
		return dto.ListingCreated{}, err
	}
	if err := unit.Listings().Create(ctx, listing); err != nil {
		return dto.ListingCreated{}, err
	}
	if err := outbox.RecordDomainEvents(ctx, unit.Outbox(), h.Encoder, listing.PullEvents()); err != nil {
		return dto.ListingCreated{}, err
	}

	if h.Logger != nil {
		h.Logger.Info("listing created", "listing_id", listing.ID, "seller_id", listing.Seller, "slug", listing.Slug)
	}
	return dto.ListingCreated{ID: string(listing.ID), Slug: listing.Slug}, nil
}

type UpdateListingCommand struct {
	UserID    string
	ListingID string
	Input     dto.ListingInput
}

func (c UpdateListingCommand) Key() string     { return updateListingKey }
func (c UpdateListingCommand) ActorID() string { return c.UserID }

func (c UpdateListingCommand) Validate() error {
	if strings.TrimSpace(c.ListingID) == "" {
		return domainlistings.ErrIDRequired
	}
	return c.Input.Attributes().Validate()
}

// UpdateListingHandler replaces every mutable field. A listing owned by
// someone else is reported as not found.
type UpdateListingHandler struct {
	Logger  *slog.Logger
	Encoder outbox.EventEncoder
	Now     func() time.Time
}

func (h *UpdateListingHandler) Handle(ctx context.Context, cmd UpdateListingCommand) (dto.Listing, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return dto.Listing{}, uow.ErrUnitOfWorkMissing
	}
	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(cmd.ListingID))
	if err != nil {
		return dto.Listing{}, err
	}
	if !listing.OwnedBy(cmd.UserID) {
		return dto.Listing{}, domainlistings.ErrNotFound
	}
	if err := listing.Replace(cmd.Input.Attributes(), now(h.Now)); err != nil {
		return dto.Listing{}, err
	}
	if err := unit.Listings().Update(ctx, listing); err != nil {
		return dto.Listing{}, err
	}
	if err := outbox.RecordDomainEvents(ctx, unit.Outbox(), h.Encoder, listing.PullEvents()); err != nil {
		return dto.Listing{}, err
	}

	if h.Logger != nil {
		h.Logger.Info("listing updated", "listing_id", listing.ID, "seller_id", listing.Seller)
	}
	return dto.MapListing(listing), nil
}

type DeleteListingCommand struct {
	UserID    string
	Admin     bool
	ListingID string
}

func (c DeleteListingCommand) Key() string     { return deleteListingKey }
func (c DeleteListingCommand) ActorID() string { return c.UserID }

// DeleteListingHandler removes a listing for its owner or an admin. Saved
// entries and conversations go with it through foreign key cascades.
type DeleteListingHandler struct {
	Logger  *slog.Logger
	Encoder outbox.EventEncoder
	Now     func() time.Time
}

func (h *DeleteListingHandler) Handle(ctx context.Context, cmd DeleteListingCommand) (struct{}, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return struct{}{}, uow.ErrUnitOfWorkMissing
	}
	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(cmd.ListingID))
	if err != nil {
		return struct{}{}, err
	}
	if !cmd.Admin && !listing.OwnedBy(cmd.UserID) {
		return struct{}{}, domainlistings.ErrNotFound
	}
	if err := unit.Listings().Delete(ctx, listing.ID); err != nil {
		return struct{}{}, err
	}
	listing.MarkDeleted(cmd.UserID, now(h.Now))
	if err := outbox.RecordDomainEvents(ctx, unit.Outbox(), h.Encoder, listing.PullEvents()); err != nil {
		return struct{}{}, err
	}

	if h.Logger != nil {
		h.Logger.Info("listing deleted", "listing_id", listing.ID, "by", cmd.UserID, "admin", cmd.Admin && !listing.OwnedBy(cmd.UserID))
	}
	return struct{}{}, nil
}

// ViewListingCommand loads one listing for its detail page and counts the view.
type ViewListingCommand struct {
	ListingID string
}

func (c ViewListingCommand) Key() string { return viewListingKey }

func (c ViewListingCommand) Validate() error {
	if strings.TrimSpace(c.ListingID) == "" {
		return domainlistings.ErrNotFound
	}
	return nil
}

type ViewListingHandler struct{}

func (h *ViewListingHandler) Handle(ctx context.Context, cmd ViewListingCommand) (dto.Listing, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return dto.Listing{}, uow.ErrUnitOfWorkMissing
	}
	id := domainlistings.ListingID(cmd.ListingID)
	if err := unit.Listings().IncrementViews(ctx, id); err != nil {
		return dto.Listing{}, err
	}
	listing, err := unit.Listings().ByID(ctx, id)
	if err != nil {
		return dto.Listing{}, err
	}
	return withSeller(ctx, unit, listing)
}

func withSeller(ctx context.Context, unit uow.UnitOfWork, listing *domainlistings.Listing) (dto.Listing, error) {
	seller, err := unit.Users().ByID(ctx, domainuser.ID(listing.Seller))
	if err != nil && !errors.Is(err, domainuser.ErrNotFound) {
		return dto.Listing{}, err
	}
	return dto.MapListingWithSeller(listing, seller), nil
}

func now(clock func() time.Time) time.Time {
	if clock != nil {
		return clock()
	}
	return time.Now()
}

var (
	_ commands.Handler[CreateListingCommand, dto.ListingCreated] = (*CreateListingHandler)(nil)
	_ commands.Handler[UpdateListingCommand, dto.Listing]        = (*UpdateListingHandler)(nil)
	_ commands.Handler[DeleteListingCommand, struct{}]           = (*DeleteListingHandler)(nil)
	_ commands.Handler[ViewListingCommand, dto.Listing]          = (*ViewListingHandler)(nil)
)
