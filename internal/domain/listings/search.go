package listings

import (
	"strings"
)

// CatalogSort defines a supported feed ordering.
type CatalogSort string

const (
	SortNewest    CatalogSort = "newest"
	SortOldest    CatalogSort = "oldest"
	SortPriceAsc  CatalogSort = "price-asc"
	SortPriceDesc CatalogSort = "price-desc"

	// DefaultPageSize is the feed page size shared by server and client.
	DefaultPageSize = 12
	maxSearchLimit  = 60
)

// ParseSort maps user input onto a sort key, falling back to newest-first.
func ParseSort(raw string) CatalogSort {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "oldest", "date-asc":
		return SortOldest
	case "price-asc", "price_asc", "price-low", "price":
		return SortPriceAsc
	case "price-desc", "price_desc", "price-high":
		return SortPriceDesc
	default:
		return SortNewest
	}
}

// SearchParams describe feed filters and paging.
type SearchParams struct {
	Search       string
	MainCategory string
	SubCategory  string
	City         string
	Seller       SellerID
	Sort         CatalogSort
	Limit        int
	Offset       int
}

// Normalized returns a sanitized copy: "all" placeholders become empty, paging is clamped.
func (p SearchParams) Normalized() SearchParams {
	normalized := p
	normalized.Search = strings.TrimSpace(p.Search)
	normalized.MainCategory = Unconstrained(p.MainCategory)
	normalized.SubCategory = Unconstrained(p.SubCategory)
	normalized.City = Unconstrained(p.City)
	normalized.Seller = SellerID(strings.TrimSpace(string(p.Seller)))
	normalized.Sort = ParseSort(string(p.Sort))
	if normalized.Limit <= 0 {
		normalized.Limit = DefaultPageSize
	}
	if normalized.Limit > maxSearchLimit {
		normalized.Limit = maxSearchLimit
	}
	if normalized.Offset < 0 {
		normalized.Offset = 0
	}
	return normalized
}

// Matches applies the normalized filter predicates to one listing.
func (p SearchParams) Matches(l *Listing) bool {
	if l == nil {
		return false
	}
	if p.Seller != "" && l.Seller != p.Seller {
		return false
	}
	if p.MainCategory != "" && !strings.EqualFold(l.MainCategory, p.MainCategory) {
		return false
	}
	if p.SubCategory != "" && !strings.EqualFold(l.SubCategory, p.SubCategory) {
		return false
	}
	if p.City != "" && !strings.EqualFold(l.Location, p.City) {
		return false
	}
	if p.Search != "" {
		needle := strings.ToLower(p.Search)
		if !strings.Contains(strings.ToLower(l.Title), needle) && !strings.Contains(strings.ToLower(l.Description), needle) {
			return false
		}
	}
	return true
}

// Less reports whether a sorts before b. ID ascending breaks ties so paging is deterministic.
func (s CatalogSort) Less(a, b *Listing) bool {
	switch s {
	case SortOldest:
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
	case SortPriceAsc:
		if a.Price != b.Price {
			return a.Price < b.Price
		}
	case SortPriceDesc:
		if a.Price != b.Price {
			return a.Price > b.Price
		}
	default:
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
	}
	return a.ID < b.ID
}

// filterPlaceholders are the picker labels that stand for "no constraint".
var filterPlaceholders = map[string]struct{}{
	"":               {},
	"all":            {},
	"all cities":     {},
	"all categories": {},
}

// Unconstrained trims a filter value and returns "" when it is a placeholder.
// Matching is exact and case-insensitive, so "Alloys" or "All Terrain
// Vehicles" stay real filters. The feed client uses the same rule.
func Unconstrained(value string) string {
	value = strings.TrimSpace(value)
	if _, ok := filterPlaceholders[strings.ToLower(value)]; ok {
		return ""
	}
	return value
}
