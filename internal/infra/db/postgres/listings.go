package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	domainlistings "tumbi/internal/domain/listings"
)

const listingColumns = `id, slug, seller_id, title, price, unit, location, main_category, sub_category,
	description, image_urls, verified, views, created_at, updated_at`

type listingRow struct {
	ID           string         `db:"id"`
	Slug         string         `db:"slug"`
	SellerID     string         `db:"seller_id"`
	Title        string         `db:"title"`
	Price        float64        `db:"price"`
	Unit         string         `db:"unit"`
	Location     string         `db:"location"`
	MainCategory string         `db:"main_category"`
	SubCategory  string         `db:"sub_category"`
	Description  string         `db:"description"`
	ImageURLs    pq.StringArray `db:"image_urls"`
	Verified     bool           `db:"verified"`
	Views        int64          `db:"views"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func (r listingRow) toDomain() *domainlistings.Listing {
	return &domainlistings.Listing{
		ID:           domainlistings.ListingID(r.ID),
		Slug:         r.Slug,
		Seller:       domainlistings.SellerID(r.SellerID),
		Title:        r.Title,
		Price:        r.Price,
		Unit:         r.Unit,
		Location:     r.Location,
		MainCategory: r.MainCategory,
		SubCategory:  r.SubCategory,
		Description:  r.Description,
		ImageURLs:    []string(r.ImageURLs),
		Verified:     r.Verified,
		Views:        r.Views,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func listingsFromRows(rows []listingRow) []*domainlistings.Listing {
	out := make([]*domainlistings.Listing, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out
}

type ListingRepository struct {
	db sqlx.ExtContext
}

func NewListingRepository(db sqlx.ExtContext) *ListingRepository {
	return &ListingRepository{db: db}
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	var row listingRow
	err := sqlx.GetContext(ctx, r.db, &row, `SELECT `+listingColumns+` FROM listings WHERE id = $1`, string(id))
	if err != nil {
		return nil, translate(err, domainlistings.ErrNotFound)
	}
	return row.toDomain(), nil
}

func (r *ListingRepository) BySlug(ctx context.Context, slug string) (*domainlistings.Listing, error) {
	var row listingRow
	err := sqlx.GetContext(ctx, r.db, &row, `SELECT `+listingColumns+` FROM listings WHERE slug = $1`, slug)
	if err != nil {
		return nil, translate(err, domainlistings.ErrNotFound)
	}
	return row.toDomain(), nil
}

func (r *ListingRepository) Create(ctx context.Context, l *domainlistings.Listing) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO listings (`+listingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		string(l.ID), l.Slug, string(l.Seller), l.Title, l.Price, l.Unit, l.Location, l.MainCategory,
		l.SubCategory, l.Description, pq.Array(l.ImageURLs), l.Verified, l.Views, l.CreatedAt, l.UpdatedAt)
	return translate(err, domainlistings.ErrNotFound)
}

// Update rewrites the owner-mutable columns; slug, seller and views are untouched.
func (r *ListingRepository) Update(ctx context.Context, l *domainlistings.Listing) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE listings SET title = $2, price = $3, unit = $4, location = $5, main_category = $6,
			sub_category = $7, description = $8, image_urls = $9, updated_at = $10
		WHERE id = $1`,
		string(l.ID), l.Title, l.Price, l.Unit, l.Location, l.MainCategory, l.SubCategory,
		l.Description, pq.Array(l.ImageURLs), l.UpdatedAt)
	return expectRow(res, err, domainlistings.ErrNotFound)
}

func (r *ListingRepository) Delete(ctx context.Context, id domainlistings.ListingID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM listings WHERE id = $1`, string(id))
	return expectRow(res, err, domainlistings.ErrNotFound)
}

func (r *ListingRepository) IncrementViews(ctx context.Context, id domainlistings.ListingID) error {
	res, err := r.db.ExecContext(ctx, `UPDATE listings SET views = views + 1 WHERE id = $1`, string(id))
	return expectRow(res, err, domainlistings.ErrNotFound)
}

func (r *ListingRepository) Search(ctx context.Context, params domainlistings.SearchParams) ([]*domainlistings.Listing, error) {
	query, args := buildSearchQuery(params.Normalized())
	var rows []listingRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("postgres: search listings: %w", err)
	}
	return listingsFromRows(rows), nil
}

// buildSearchQuery renders one bounded feed query. params must already be normalized.
func buildSearchQuery(params domainlistings.SearchParams) (string, []any) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if params.Seller != "" {
		where = append(where, "seller_id = "+arg(string(params.Seller)))
	}
	if params.MainCategory != "" {
		where = append(where, "lower(main_category) = lower("+arg(params.MainCategory)+")")
	}
	if params.SubCategory != "" {
		where = append(where, "lower(sub_category) = lower("+arg(params.SubCategory)+")")
	}
	if params.City != "" {
		where = append(where, "lower(location) = lower("+arg(params.City)+")")
	}
	if params.Search != "" {
		pattern := arg("%" + escapeLike(params.Search) + "%")
		where = append(where, fmt.Sprintf(`(title ILIKE %[1]s ESCAPE '\' OR description ILIKE %[1]s ESCAPE '\')`, pattern))
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(listingColumns)
	b.WriteString(" FROM listings")
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY ")
	b.WriteString(orderBy(params.Sort))
	b.WriteString(" LIMIT " + arg(params.Limit))
	b.WriteString(" OFFSET " + arg(params.Offset))
	return b.String(), args
}

func orderBy(sort domainlistings.CatalogSort) string {
	switch sort {
	case domainlistings.SortOldest:
		return "created_at ASC, id ASC"
	case domainlistings.SortPriceAsc:
		return "price ASC, id ASC"
	case domainlistings.SortPriceDesc:
		return "price DESC, id ASC"
	default:
		return "created_at DESC, id ASC"
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(value string) string {
	return likeEscaper.Replace(value)
}

var _ domainlistings.Repository = (*ListingRepository)(nil)
