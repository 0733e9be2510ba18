package saved

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"tumbi/internal/app/commands"
	"tumbi/internal/app/dto"
	"tumbi/internal/app/queries"
	"tumbi/internal/app/uow"
	domainlistings "tumbi/internal/domain/listings"
	domainsaved "tumbi/internal/domain/saved"
	domainuser "tumbi/internal/domain/user"
)

const (
	addSavedKey      = "saved.add"
	removeSavedKey   = "saved.remove"
	savedStatusKey   = "saved.status"
	savedIDsKey      = "saved.ids"
	savedListingsKey = "saved.listings"
)

type AddSavedCommand struct {
	UserID    string
	ListingID string
}

func (c AddSavedCommand) Key() string     { return addSavedKey }
func (c AddSavedCommand) ActorID() string { return c.UserID }

// AddSavedHandler saves a listing. Saving twice is not an error.
type AddSavedHandler struct {
	Logger *slog.Logger
	Now    func() time.Time
}

func (h *AddSavedHandler) Handle(ctx context.Context, cmd AddSavedCommand) (dto.SavedStatus, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return dto.SavedStatus{}, uow.ErrUnitOfWorkMissing
	}
	listingID := domainlistings.ListingID(strings.TrimSpace(cmd.ListingID))
	if _, err := unit.Listings().ByID(ctx, listingID); err != nil {
		return dto.SavedStatus{}, err
	}
	at := time.Now()
	if h.Now != nil {
		at = h.Now()
	}
	entry := domainsaved.Entry{UserID: domainuser.ID(cmd.UserID), ListingID: listingID, CreatedAt: at.UTC()}
	if err := unit.Saved().Add(ctx, entry); err != nil {
		return dto.SavedStatus{}, err
	}
	if h.Logger != nil {
		h.Logger.Debug("listing saved", "listing_id", listingID, "user_id", cmd.UserID)
	}
	return dto.SavedStatus{Saved: true}, nil
}

type RemoveSavedCommand struct {
	UserID    string
	ListingID string
}

func (c RemoveSavedCommand) Key() string     { return removeSavedKey }
func (c RemoveSavedCommand) ActorID() string { return c.UserID }

// RemoveSavedHandler is idempotent and does not require the listing to exist.
type RemoveSavedHandler struct{}

func (h *RemoveSavedHandler) Handle(ctx context.Context, cmd RemoveSavedCommand) (dto.SavedStatus, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return dto.SavedStatus{}, uow.ErrUnitOfWorkMissing
	}
	if err := unit.Saved().Remove(ctx, domainuser.ID(cmd.UserID), domainlistings.ListingID(strings.TrimSpace(cmd.ListingID))); err != nil {
		return dto.SavedStatus{}, err
	}
	return dto.SavedStatus{Saved: false}, nil
}

type SavedStatusQuery struct {
	UserID    string
	ListingID string
}

func (q SavedStatusQuery) Key() string     { return savedStatusKey }
func (q SavedStatusQuery) ActorID() string { return q.UserID }

type SavedStatusHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *SavedStatusHandler) Handle(ctx context.Context, q SavedStatusQuery) (dto.SavedStatus, error) {
	unit, ctx, release, err := uow.ReadOnly(ctx, h.UoWFactory)
	if err != nil {
		return dto.SavedStatus{}, err
	}
	defer release()
	ok, err := unit.Saved().IsSaved(ctx, domainuser.ID(q.UserID), domainlistings.ListingID(strings.TrimSpace(q.ListingID)))
	if err != nil {
		return dto.SavedStatus{}, err
	}
	return dto.SavedStatus{Saved: ok}, nil
}

// SavedIDsQuery returns the authoritative saved-ID list clients reconcile against.
type SavedIDsQuery struct {
	UserID string
}

func (q SavedIDsQuery) Key() string     { return savedIDsKey }
func (q SavedIDsQuery) ActorID() string { return q.UserID }

type SavedIDsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *SavedIDsHandler) Handle(ctx context.Context, q SavedIDsQuery) ([]string, error) {
	unit, ctx, release, err := uow.ReadOnly(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer release()
	ids, err := unit.Saved().ListIDs(ctx, domainuser.ID(q.UserID))
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return out, nil
}

type SavedListingsQuery struct {
	UserID string
}

func (q SavedListingsQuery) Key() string     { return savedListingsKey }
func (q SavedListingsQuery) ActorID() string { return q.UserID }

type SavedListingsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *SavedListingsHandler) Handle(ctx context.Context, q SavedListingsQuery) ([]dto.Listing, error) {
	unit, ctx, release, err := uow.ReadOnly(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer release()
	items, err := unit.Saved().ListListings(ctx, domainuser.ID(q.UserID))
	if err != nil {
		return nil, err
	}
	return dto.MapListings(items), nil
}

var (
	_ commands.Handler[AddSavedCommand, dto.SavedStatus]    = (*AddSavedHandler)(nil)
	_ commands.Handler[RemoveSavedCommand, dto.SavedStatus] = (*RemoveSavedHandler)(nil)
	_ queries.Handler[SavedStatusQuery, dto.SavedStatus]    = (*SavedStatusHandler)(nil)
	_ queries.Handler[SavedIDsQuery, []string]              = (*SavedIDsHandler)(nil)
	_ queries.Handler[SavedListingsQuery, []dto.Listing]    = (*SavedListingsHandler)(nil)
)
