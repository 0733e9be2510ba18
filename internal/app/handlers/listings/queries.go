package listings

import (
	"context"
	"strings"

	"tumbi/internal/app/dto"
	"tumbi/internal/app/queries"
	"tumbi/internal/app/uow"
	domainlistings "tumbi/internal/domain/listings"
	domainuser "tumbi/internal/domain/user"
)

const (
	searchListingsKey = "listings.search"
	listingBySlugKey  = "listings.by_slug"
	vendorListingsKey = "listings.vendor"
)

// SearchListingsQuery mirrors the feed query string.
type SearchListingsQuery struct {
	Search       string
	MainCategory string
	SubCategory  string
	City         string
	Sort         string
	Limit        int
	Offset       int
}

func (q SearchListingsQuery) Key() string { return searchListingsKey }

// SearchListingsHandler returns one page of the feed. An empty page is an
// empty slice, never nil.
type SearchListingsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *SearchListingsHandler) Handle(ctx context.Context, q SearchListingsQuery) ([]dto.Listing, error) {
	unit, ctx, release, err := uow.ReadOnly(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer release()

	params := domainlistings.SearchParams{
		Search:       q.Search,
		MainCategory: q.MainCategory,
		SubCategory:  q.SubCategory,
		City:         q.City,
		Sort:         domainlistings.CatalogSort(q.Sort),
		Limit:        q.Limit,
		Offset:       q.Offset,
	}.Normalized()

	items, err := unit.Listings().Search(ctx, params)
	if err != nil {
		return nil, err
	}
	return dto.MapListings(items), nil
}

type ListingBySlugQuery struct {
	Slug string
}

func (q ListingBySlugQuery) Key() string { return listingBySlugKey }

func (q ListingBySlugQuery) Validate() error {
	if strings.TrimSpace(q.Slug) == "" {
		return domainlistings.ErrNotFound
	}
	return nil
}

type ListingBySlugHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListingBySlugHandler) Handle(ctx context.Context, q ListingBySlugQuery) (dto.Listing, error) {
	unit, ctx, release, err := uow.ReadOnly(ctx, h.UoWFactory)
	if err != nil {
		return dto.Listing{}, err
	}
	defer release()

	listing, err := unit.Listings().BySlug(ctx, strings.ToLower(strings.TrimSpace(q.Slug)))
	if err != nil {
		return dto.Listing{}, err
	}
	return withSeller(ctx, unit, listing)
}

// VendorListingsQuery lists one seller's listings, newest first.
type VendorListingsQuery struct {
	SellerID string
	Limit    int
	Offset   int
}

func (q VendorListingsQuery) Key() string { return vendorListingsKey }

type VendorListingsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *VendorListingsHandler) Handle(ctx context.Context, q VendorListingsQuery) ([]dto.Listing, error) {
	unit, ctx, release, err := uow.ReadOnly(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer release()

	if _, err := unit.Users().ByID(ctx, domainuser.ID(q.SellerID)); err != nil {
		return nil, err
	}
	items, err := unit.Listings().Search(ctx, domainlistings.SearchParams{
		Seller: domainlistings.SellerID(q.SellerID),
		Sort:   domainlistings.SortNewest,
		Limit:  q.Limit,
		Offset: q.Offset,
	}.Normalized())
	if err != nil {
		return nil, err
	}
	return dto.MapListings(items), nil
}

var (
	_ queries.Handler[SearchListingsQuery, []dto.Listing] = (*SearchListingsHandler)(nil)
	_ queries.Handler[ListingBySlugQuery, dto.Listing]    = (*ListingBySlugHandler)(nil)
	_ queries.Handler[VendorListingsQuery, []dto.Listing] = (*VendorListingsHandler)(nil)
)
