package listings

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"
	"unicode"

	"tumbi/internal/domain/shared/events"
)

var (
	ErrIDRequired       = errors.New("listings: id is required")
	ErrSellerRequired   = errors.New("listings: seller is required")
	ErrTitleRequired    = errors.New("listings: title is required")
	ErrPriceInvalid     = errors.New("listings: price must be positive")
	ErrCategoryRequired = errors.New("listings: main category is required")
	ErrLocationRequired = errors.New("listings: location is required")
	ErrImagesRequired   = errors.New("listings: at least one image url is required")
	ErrImageURL         = errors.New("listings: image urls must be absolute http(s) urls")
	ErrNotFound         = errors.New("listings: not found")
	ErrSlugTaken        = errors.New("listings: slug already used")
)

// MaxImages bounds the image gallery of a single listing.
const MaxImages = 10

type ListingID string
type SellerID string

type Listing struct {
	ID           ListingID
	Slug         string
	Seller       SellerID
	Title        string
	Price        float64
	Unit         string
	Location     string
	MainCategory string
	SubCategory  string
	Description  string
	ImageURLs    []string
	Verified     bool
	Views        int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
	events.Recorder
}

// Repository persists listings. Search ordering must be total: ties fall back to ID ascending.
type Repository interface {
	ByID(ctx context.Context, id ListingID) (*Listing, error)
	BySlug(ctx context.Context, slug string) (*Listing, error)
	Create(ctx context.Context, listing *Listing) error
	Update(ctx context.Context, listing *Listing) error
	Delete(ctx context.Context, id ListingID) error
	IncrementViews(ctx context.Context, id ListingID) error
	Search(ctx context.Context, params SearchParams) ([]*Listing, error)
}

// Attributes are the owner-mutable fields of a listing.
type Attributes struct {
	Title        string
	Price        float64
	Unit         string
	Location     string
	MainCategory string
	SubCategory  string
	Description  string
	ImageURLs    []string
}

type CreateParams struct {
	ID     ListingID
	Seller SellerID
	Attributes
	Verified bool
	Now      time.Time
}

func NewListing(params CreateParams) (*Listing, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrIDRequired
	}
	if strings.TrimSpace(string(params.Seller)) == "" {
		return nil, ErrSellerRequired
	}
	attrs, err := params.Attributes.normalized()
	if err != nil {
		return nil, err
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	listing := &Listing{
		ID:        params.ID,
		Slug:      NewSlug(attrs.Title, string(params.ID)),
		Seller:    params.Seller,
		Verified:  params.Verified,
		CreatedAt: now,
		UpdatedAt: now,
	}
	listing.apply(attrs)
	listing.Record(ListingCreatedEvent{
		ListingID: listing.ID,
		SellerID:  listing.Seller,
		Title:     listing.Title,
		Price:     listing.Price,
		At:        now,
	})
	return listing, nil
}

// Replace overwrites every mutable field. The slug is kept stable so shared links survive edits.
func (l *Listing) Replace(attrs Attributes, now time.Time) error {
	normalized, err := attrs.normalized()
	if err != nil {
		return err
	}
	if now.IsZero() {
		now = time.Now()
	}
	l.apply(normalized)
	l.UpdatedAt = now.UTC()
	l.Record(ListingUpdatedEvent{ListingID: l.ID, SellerID: l.Seller, At: l.UpdatedAt})
	return nil
}

// MarkDeleted records the deletion event; the row itself is removed by the repository.
func (l *Listing) MarkDeleted(by string, now time.Time) {
	if now.IsZero() {
		now = time.Now()
	}
	l.Record(ListingDeletedEvent{ListingID: l.ID, DeletedBy: by, At: now.UTC()})
}

func (l *Listing) OwnedBy(userID string) bool {
	return userID != "" && string(l.Seller) == userID
}

func (l *Listing) apply(attrs Attributes) {
	l.Title = attrs.Title
	l.Price = attrs.Price
	l.Unit = attrs.Unit
	l.Location = attrs.Location
	l.MainCategory = attrs.MainCategory
	l.SubCategory = attrs.SubCategory
	l.Description = attrs.Description
	l.ImageURLs = append([]string(nil), attrs.ImageURLs...)
}

// Validate reports the first attribute rule a would violate.
func (a Attributes) Validate() error {
	_, err := a.normalized()
	return err
}

func (a Attributes) normalized() (Attributes, error) {
	out := Attributes{
		Title:        strings.TrimSpace(a.Title),
		Price:        a.Price,
		Unit:         strings.TrimSpace(a.Unit),
		Location:     strings.TrimSpace(a.Location),
		MainCategory: strings.TrimSpace(a.MainCategory),
		SubCategory:  strings.TrimSpace(a.SubCategory),
		Description:  strings.TrimSpace(a.Description),
	}
	if out.Title == "" {
		return Attributes{}, ErrTitleRequired
	}
	if !(out.Price > 0) {
		return Attributes{}, ErrPriceInvalid
	}
	if out.MainCategory == "" {
		return Attributes{}, ErrCategoryRequired
	}
	if out.Location == "" {
		return Attributes{}, ErrLocationRequired
	}
	images, err := ValidateImageURLs(a.ImageURLs)
	if err != nil {
		return Attributes{}, err
	}
	out.ImageURLs = images
	return out, nil
}

// ValidateImageURLs trims, de-duplicates and checks the gallery, preserving order.
func ValidateImageURLs(raw []string) ([]string, error) {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, value := range raw {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		parsed, err := url.Parse(value)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return nil, ErrImageURL
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	if len(out) == 0 {
		return nil, ErrImagesRequired
	}
	if len(out) > MaxImages {
		out = out[:MaxImages]
	}
	return out, nil
}

// NewSlug builds "title-words-<first 8 id chars>".
func NewSlug(title, id string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
		if b.Len() >= 60 {
			break
		}
	}
	base := strings.Trim(b.String(), "-")
	suffix := strings.ReplaceAll(id, "-", "")
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	if base == "" {
		return suffix
	}
	return base + "-" + suffix
}
