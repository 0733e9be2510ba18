package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"tumbi/internal/client/api"
)

type fakeSource struct {
	mu      sync.Mutex
	items   []api.Listing
	calls   atomic.Int32
	queries []api.ListingQuery
	fail    error
	gate    chan struct{}
}

func (f *fakeSource) ListListings(ctx context.Context, q api.ListingQuery) ([]api.Listing, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.fail != nil {
		return nil, f.fail
	}
	var matched []api.Listing
	for _, item := range f.items {
		if q.MainCategory != "" && !strings.EqualFold(item.MainCategory, q.MainCategory) {
			continue
		}
		if q.City != "" && !strings.EqualFold(item.Location, q.City) {
			continue
		}
		if q.Search != "" && !strings.Contains(strings.ToLower(item.Title), strings.ToLower(q.Search)) {
			continue
		}
		matched = append(matched, item)
	}
	if q.SortBy == "price-asc" {
		sort.SliceStable(matched, func(i, j int) bool {
			if matched[i].Price != matched[j].Price {
				return matched[i].Price < matched[j].Price
			}
			return matched[i].ID < matched[j].ID
		})
	}
	if q.Offset >= len(matched) {
		return []api.Listing{}, nil
	}
	end := q.Offset + q.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return append([]api.Listing(nil), matched[q.Offset:end]...), nil
}

func listings(category string, n int) []api.Listing {
	out := make([]api.Listing, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, api.Listing{ID: fmt.Sprintf("%s-%02d", category, i), MainCategory: category})
	}
	return out
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// cementStock spreads 17 cement listings over three cities with prices that
// do not follow ID order, next to unrelated stock.
func cementStock() []api.Listing {
	cities := []string{"Nairobi", "Mombasa", "Kisumu"}
	var out []api.Listing
	for i := 0; i < 17; i++ {
		out = append(out, api.Listing{
			ID:           fmt.Sprintf("cement-%02d", i),
			Title:        fmt.Sprintf("Portland Cement %d kg", 25+i),
			Price:        float64(900 + (i*7)%17*10),
			Location:     cities[i%len(cities)],
			MainCategory: "Building Materials",
		})
	}
	for i := 0; i < 9; i++ {
		out = append(out, api.Listing{
			ID:           fmt.Sprintf("steel-%02d", i),
			Title:        "Steel rebar",
			Price:        float64(100 + i),
			Location:     cities[i%len(cities)],
			MainCategory: "Building Materials",
		})
	}
	return out
}

func TestCementScenarioLoadsTwelveThenFive(t *testing.T) {
	src := &fakeSource{items: cementStock()}
	p := NewPager(src, quietLogger())
	ctx := context.Background()

	if err := p.SetFilters(ctx, Filters{Search: "cement", City: "All Cities", Sort: "price-asc"}); err != nil {
		t.Fatalf("set filters: %v", err)
	}
	q := src.queries[0]
	if q.Search != "cement" || q.City != "" || q.SortBy != "price-asc" {
		t.Fatalf("unexpected query %+v", q)
	}
	snap := p.Snapshot()
	if len(snap.Items) != 12 || !snap.HasMore {
		t.Fatalf("expected 12 items with more, got %d %v", len(snap.Items), snap.HasMore)
	}
	if err := p.OnSentinelVisible(ctx); err != nil {
		t.Fatalf("load more: %v", err)
	}
	snap = p.Snapshot()
	if len(snap.Items) != 17 || snap.HasMore {
		t.Fatalf("expected 17 items and no more, got %d %v", len(snap.Items), snap.HasMore)
	}
	if second := src.queries[1]; second.Offset != 12 || second.Limit != PageSize {
		t.Fatalf("second page query %+v", second)
	}
	for i, item := range snap.Items {
		if !strings.HasPrefix(item.ID, "cement-") {
			t.Fatalf("non-matching listing %s at %d", item.ID, i)
		}
		if i > 0 && item.Price < snap.Items[i-1].Price {
			t.Fatalf("price order broken at %d: %.0f after %.0f", i, item.Price, snap.Items[i-1].Price)
		}
	}

	before := src.calls.Load()
	issued, err := p.LoadMore(ctx)
	if err != nil || issued {
		t.Fatalf("expected no fetch once exhausted, issued=%v err=%v", issued, err)
	}
	if src.calls.Load() != before {
		t.Fatalf("exhausted feed issued a request")
	}
}

func TestAllPlaceholdersMeanNoConstraint(t *testing.T) {
	src := &fakeSource{items: listings("Cement", 3)}
	p := NewPager(src, quietLogger())
	if err := p.SetFilters(context.Background(), Filters{MainCategory: "All Categories", City: "All Cities", SubCategory: " all "}); err != nil {
		t.Fatalf("set filters: %v", err)
	}
	q := src.queries[0]
	if q.MainCategory != "" || q.City != "" || q.SubCategory != "" {
		t.Fatalf("expected placeholders dropped, got %+v", q)
	}
	if q.Limit != PageSize || q.Offset != 0 {
		t.Fatalf("unexpected paging %+v", q)
	}
}

func TestRealValuesStartingWithAllAreKept(t *testing.T) {
	src := &fakeSource{items: []api.Listing{
		{ID: "a", MainCategory: "Alloys", Location: "Allentown"},
		{ID: "b", MainCategory: "Alloys", Location: "Nairobi"},
		{ID: "c", MainCategory: "Cement", Location: "Allentown"},
	}}
	p := NewPager(src, quietLogger())
	if err := p.SetFilters(context.Background(), Filters{MainCategory: "Alloys", City: "Allentown"}); err != nil {
		t.Fatalf("set filters: %v", err)
	}
	q := src.queries[0]
	if q.MainCategory != "Alloys" || q.City != "Allentown" {
		t.Fatalf("real filter values dropped: %+v", q)
	}
	snap := p.Snapshot()
	if len(snap.Items) != 1 || snap.Items[0].ID != "a" {
		t.Fatalf("expected only listing a, got %+v", snap.Items)
	}
}

func TestLoadMoreSkipsDuplicateIDs(t *testing.T) {
	src := &fakeSource{items: listings("Cement", 24)}
	p := NewPager(src, quietLogger())
	ctx := context.Background()
	if err := p.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	// a listing created meanwhile shifts the server window by one
	src.mu.Lock()
	src.items = append([]api.Listing{{ID: "fresh", MainCategory: "Cement"}}, src.items...)
	src.mu.Unlock()

	if _, err := p.LoadMore(ctx); err != nil {
		t.Fatal(err)
	}
	snap := p.Snapshot()
	seen := map[string]bool{}
	for _, item := range snap.Items {
		if seen[item.ID] {
			t.Fatalf("duplicate id %s", item.ID)
		}
		seen[item.ID] = true
	}
	if len(snap.Items) != 23 {
		t.Fatalf("expected 23 unique items, got %d", len(snap.Items))
	}
	if snap.Items[0].ID != "Cement-00" {
		t.Fatalf("held items were reordered: %s", snap.Items[0].ID)
	}
}

func TestFilterChangeResetsFeed(t *testing.T) {
	src := &fakeSource{items: append(listings("Cement", 30), listings("Steel", 4)...)}
	p := NewPager(src, quietLogger())
	ctx := context.Background()
	_ = p.SetFilters(ctx, Filters{MainCategory: "Cement"})
	_, _ = p.LoadMore(ctx)
	if got := len(p.Snapshot().Items); got != 24 {
		t.Fatalf("expected 24, got %d", got)
	}

	if err := p.SetFilters(ctx, Filters{MainCategory: "Steel"}); err != nil {
		t.Fatal(err)
	}
	snap := p.Snapshot()
	if len(snap.Items) != 4 || snap.Offset != 4 || snap.HasMore {
		t.Fatalf("unexpected snapshot after reset: %d items offset %d more %v", len(snap.Items), snap.Offset, snap.HasMore)
	}
	last := src.queries[len(src.queries)-1]
	if last.Offset != 0 {
		t.Fatalf("filter change must fetch from offset 0, got %d", last.Offset)
	}
}

func TestRefetchIsIdempotent(t *testing.T) {
	src := &fakeSource{items: listings("Cement", 5)}
	p := NewPager(src, quietLogger())
	ctx := context.Background()
	_ = p.Refresh(ctx)
	first := p.Snapshot()
	_ = p.Refresh(ctx)
	second := p.Snapshot()
	if len(first.Items) != len(second.Items) {
		t.Fatalf("refetch changed length %d -> %d", len(first.Items), len(second.Items))
	}
	for i := range first.Items {
		if first.Items[i].ID != second.Items[i].ID {
			t.Fatalf("refetch changed order at %d", i)
		}
	}
}

func TestConcurrentSentinelTriggersIssueOneRequest(t *testing.T) {
	src := &fakeSource{items: listings("Cement", 40)}
	p := NewPager(src, quietLogger())
	ctx := context.Background()
	_ = p.Refresh(ctx)
	base := src.calls.Load()

	src.gate = make(chan struct{})
	var (
		wg       sync.WaitGroup
		returned atomic.Int32
	)
	const triggers = 8
	for i := 0; i < triggers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.OnSentinelVisible(ctx)
			returned.Add(1)
		}()
	}
	// every trigger but the one holding the fetch must bounce off the guard
	for returned.Load() < triggers-1 {
		runtime.Gosched()
	}
	close(src.gate)
	wg.Wait()

	if got := src.calls.Load() - base; got != 1 {
		t.Fatalf("expected exactly one request, got %d", got)
	}
	if got := len(p.Snapshot().Items); got != 24 {
		t.Fatalf("expected 24 items, got %d", got)
	}
}

func TestFailedFetchLeavesStateUnchanged(t *testing.T) {
	src := &fakeSource{items: listings("Cement", 20)}
	p := NewPager(src, quietLogger())
	ctx := context.Background()
	_ = p.Refresh(ctx)
	before := p.Snapshot()

	src.mu.Lock()
	src.fail = errors.New("offline")
	src.mu.Unlock()
	if _, err := p.LoadMore(ctx); err == nil {
		t.Fatalf("expected error")
	}
	after := p.Snapshot()
	if len(after.Items) != len(before.Items) || after.Offset != before.Offset || after.HasMore != before.HasMore || after.Loading {
		t.Fatalf("state changed on failure: %+v -> %+v", before, after)
	}
}
