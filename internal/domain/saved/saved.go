package saved

import (
	"context"
	"errors"
	"time"

	"tumbi/internal/domain/listings"
	"tumbi/internal/domain/user"
)

var ErrListingNotFound = errors.New("saved: listing not found")

// Entry marks a listing as saved by a user. The (UserID, ListingID) pair is unique.
type Entry struct {
	UserID    user.ID
	ListingID listings.ListingID
	CreatedAt time.Time
}

// Repository stores saved entries. Add and Remove are idempotent.
type Repository interface {
	Add(ctx context.Context, entry Entry) error
	Remove(ctx context.Context, userID user.ID, listingID listings.ListingID) error
	IsSaved(ctx context.Context, userID user.ID, listingID listings.ListingID) (bool, error)
	ListIDs(ctx context.Context, userID user.ID) ([]listings.ListingID, error)
	// ListListings returns the saved listings, most recently saved first.
	ListListings(ctx context.Context, userID user.ID) ([]*listings.Listing, error)
}
