package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	domainlistings "tumbi/internal/domain/listings"
	domainsaved "tumbi/internal/domain/saved"
	domainuser "tumbi/internal/domain/user"
)

type SavedRepository struct {
	db sqlx.ExtContext
}

func NewSavedRepository(db sqlx.ExtContext) *SavedRepository {
	return &SavedRepository{db: db}
}

func (r *SavedRepository) Add(ctx context.Context, entry domainsaved.Entry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO saved_listings (user_id, listing_id, created_at) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, listing_id) DO NOTHING`,
		string(entry.UserID), string(entry.ListingID), entry.CreatedAt)
	return translate(err, domainsaved.ErrListingNotFound)
}

func (r *SavedRepository) Remove(ctx context.Context, userID domainuser.ID, listingID domainlistings.ListingID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM saved_listings WHERE user_id = $1 AND listing_id = $2`, string(userID), string(listingID))
	// a malformed id matches nothing, which is what removing means
	return translate(err, nil)
}

func (r *SavedRepository) IsSaved(ctx context.Context, userID domainuser.ID, listingID domainlistings.ListingID) (bool, error) {
	var saved bool
	err := sqlx.GetContext(ctx, r.db, &saved, `
		SELECT EXISTS (SELECT 1 FROM saved_listings WHERE user_id = $1 AND listing_id = $2)`,
		string(userID), string(listingID))
	if err != nil {
		if errors.Is(translate(err, errInvalidID), errInvalidID) {
			return false, nil
		}
		return false, fmt.Errorf("postgres: saved lookup: %w", err)
	}
	return saved, nil
}

func (r *SavedRepository) ListIDs(ctx context.Context, userID domainuser.ID) ([]domainlistings.ListingID, error) {
	var ids []string
	err := sqlx.SelectContext(ctx, r.db, &ids, `
		SELECT listing_id FROM saved_listings WHERE user_id = $1
		ORDER BY created_at DESC, listing_id ASC`, string(userID))
	if err != nil {
		return nil, fmt.Errorf("postgres: saved ids: %w", err)
	}
	out := make([]domainlistings.ListingID, 0, len(ids))
	for _, id := range ids {
		out = append(out, domainlistings.ListingID(id))
	}
	return out, nil
}

func (r *SavedRepository) ListListings(ctx context.Context, userID domainuser.ID) ([]*domainlistings.Listing, error) {
	var rows []listingRow
	err := sqlx.SelectContext(ctx, r.db, &rows, `
		SELECT l.id, l.slug, l.seller_id, l.title, l.price, l.unit, l.location, l.main_category, l.sub_category,
			l.description, l.image_urls, l.verified, l.views, l.created_at, l.updated_at
		FROM saved_listings s
		JOIN listings l ON l.id = s.listing_id
		WHERE s.user_id = $1
		ORDER BY s.created_at DESC, l.id ASC`, string(userID))
	if err != nil {
		return nil, fmt.Errorf("postgres: saved listings: %w", err)
	}
	return listingsFromRows(rows), nil
}

var _ domainsaved.Repository = (*SavedRepository)(nil)
