// Package feed holds the infinitely scrolling listing feed.
package feed

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"tumbi/internal/client/api"
	domainlistings "tumbi/internal/domain/listings"
)

// PageSize is the number of listings requested per fetch.
const PageSize = 12

// Source is the listing query port; *api.Client satisfies it.
type Source interface {
	ListListings(ctx context.Context, q api.ListingQuery) ([]api.Listing, error)
}

// Filters narrows the feed. Empty values and the "All" picker placeholders mean
// no constraint.
type Filters struct {
	Search       string
	MainCategory string
	SubCategory  string
	City         string
	Sort         string
}

// Normalized trims every field and blanks the "All" placeholders.
func (f Filters) Normalized() Filters {
	return Filters{
		Search:       strings.TrimSpace(f.Search),
		MainCategory: domainlistings.Unconstrained(f.MainCategory),
		SubCategory:  domainlistings.Unconstrained(f.SubCategory),
		City:         domainlistings.Unconstrained(f.City),
		Sort:         strings.TrimSpace(f.Sort),
	}
}

type Snapshot struct {
	Items   []api.Listing
	Offset  int
	HasMore bool
	Loading bool
	Filters Filters
}

// Pager keeps the held feed. Items are unique by ID and stay in arrival order.
type Pager struct {
	source Source
	logger *slog.Logger

	mu         sync.Mutex
	items      []api.Listing
	seen       map[string]struct{}
	offset     int
	hasMore    bool
	loading    bool
	filters    Filters
	generation uint64
}

func NewPager(source Source, logger *slog.Logger) *Pager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pager{source: source, logger: logger, seen: map[string]struct{}{}, hasMore: true}
}

// FetchPage asks for exactly one page at offset. It does not touch held state.
func (p *Pager) FetchPage(ctx context.Context, offset int, f Filters) ([]api.Listing, bool, error) {
	f = f.Normalized()
	page, err := p.source.ListListings(ctx, api.ListingQuery{
		Search:       f.Search,
		MainCategory: f.MainCategory,
		SubCategory:  f.SubCategory,
		City:         f.City,
		SortBy:       f.Sort,
		Limit:        PageSize,
		Offset:       offset,
	})
	if err != nil {
		return nil, false, err
	}
	return page, len(page) == PageSize, nil
}

// SetFilters discards the held feed and loads page 0 under f.
func (p *Pager) SetFilters(ctx context.Context, f Filters) error {
	p.mu.Lock()
	p.generation++
	p.filters = f.Normalized()
	p.items = nil
	p.seen = map[string]struct{}{}
	p.offset = 0
	p.hasMore = true
	p.loading = false
	p.mu.Unlock()
	return p.reload(ctx)
}

// Refresh replaces the held feed with a fresh page 0 under the current filters.
func (p *Pager) Refresh(ctx context.Context) error {
	p.mu.Lock()
	p.generation++
	p.loading = false
	p.mu.Unlock()
	return p.reload(ctx)
}

func (p *Pager) reload(ctx context.Context) error {
	p.mu.Lock()
	gen, filters := p.generation, p.filters
	p.loading = true
	p.mu.Unlock()

	page, more, err := p.FetchPage(ctx, 0, filters)

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.generation {
		return nil
	}
	p.loading = false
	if err != nil {
		p.logger.Warn("feed refresh failed", "error", err)
		return err
	}
	p.items = p.items[:0]
	p.seen = make(map[string]struct{}, len(page))
	p.offset = 0
	p.appendLocked(page)
	p.hasMore = more
	return nil
}

// LoadMore appends the next page unless a fetch is already running or the
// feed is exhausted. It reports whether a request was issued.
func (p *Pager) LoadMore(ctx context.Context) (bool, error) {
	p.mu.Lock()
	if p.loading || !p.hasMore {
		p.mu.Unlock()
		return false, nil
	}
	p.loading = true
	gen, filters, offset := p.generation, p.filters, p.offset
	p.mu.Unlock()

	page, more, err := p.FetchPage(ctx, offset, filters)

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.generation {
		// filters changed while in flight; the result belongs to an old feed
		return true, nil
	}
	p.loading = false
	if err != nil {
		p.logger.Warn("feed page fetch failed", "offset", offset, "error", err)
		return true, err
	}
	p.appendLocked(page)
	p.hasMore = more
	return true, nil
}

// OnSentinelVisible is the scroll trigger.
func (p *Pager) OnSentinelVisible(ctx context.Context) error {
	_, err := p.LoadMore(ctx)
	return err
}

func (p *Pager) appendLocked(page []api.Listing) {
	for _, item := range page {
		if _, dup := p.seen[item.ID]; dup {
			continue
		}
		p.seen[item.ID] = struct{}{}
		p.items = append(p.items, item)
	}
	p.offset += len(page)
}

func (p *Pager) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Snapshot{
		Items:   append([]api.Listing(nil), p.items...),
		Offset:  p.offset,
		HasMore: p.hasMore,
		Loading: p.loading,
		Filters: p.filters,
	}
}
