package dto

import (
	"time"

	domainlistings "tumbi/internal/domain/listings"
	domainuser "tumbi/internal/domain/user"
)

// Listing is the client-facing listing representation.
type Listing struct {
	ID           string         `json:"id"`
	Slug         string         `json:"slug"`
	Title        string         `json:"title"`
	Price        float64        `json:"price"`
	Unit         string         `json:"unit,omitempty"`
	Location     string         `json:"location"`
	MainCategory string         `json:"mainCategory"`
	SubCategory  string         `json:"subCategory,omitempty"`
	Description  string         `json:"description,omitempty"`
	ImageURLs    []string       `json:"imageUrls"`
	Verified     bool           `json:"verified"`
	Views        int64          `json:"views"`
	SellerID     string         `json:"sellerId"`
	Seller       *PublicProfile `json:"seller,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// ListingInput is the body of create and full-replace requests.
type ListingInput struct {
	Title        string   `json:"title"`
	Price        float64  `json:"price"`
	Unit         string   `json:"unit"`
	Location     string   `json:"location"`
	MainCategory string   `json:"mainCategory"`
	SubCategory  string   `json:"subCategory"`
	Description  string   `json:"description"`
	ImageURLs    []string `json:"imageUrls"`
}

// ListingCreated is returned by POST /listings.
type ListingCreated struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
}

func (in ListingInput) Attributes() domainlistings.Attributes {
	return domainlistings.Attributes{
		Title:        in.Title,
		Price:        in.Price,
		Unit:         in.Unit,
		Location:     in.Location,
		MainCategory: in.MainCategory,
		SubCategory:  in.SubCategory,
		Description:  in.Description,
		ImageURLs:    append([]string(nil), in.ImageURLs...),
	}
}

func MapListing(l *domainlistings.Listing) Listing {
	if l == nil {
		return Listing{}
	}
	images := append([]string(nil), l.ImageURLs...)
	if images == nil {
		images = []string{}
	}
	return Listing{
		ID:           string(l.ID),
		Slug:         l.Slug,
		Title:        l.Title,
		Price:        l.Price,
		Unit:         l.Unit,
		Location:     l.Location,
		MainCategory: l.MainCategory,
		SubCategory:  l.SubCategory,
		Description:  l.Description,
		ImageURLs:    images,
		Verified:     l.Verified,
		Views:        l.Views,
		SellerID:     string(l.Seller),
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
	}
}

// MapListings never returns nil so an empty page encodes as [].
func MapListings(items []*domainlistings.Listing) []Listing {
	out := make([]Listing, 0, len(items))
	for _, l := range items {
		out = append(out, MapListing(l))
	}
	return out
}

// MapListingWithSeller attaches the seller's public profile when known.
func MapListingWithSeller(l *domainlistings.Listing, seller *domainuser.User) Listing {
	out := MapListing(l)
	if seller != nil {
		profile := MapPublicProfile(seller)
		out.Seller = &profile
	}
	return out
}
