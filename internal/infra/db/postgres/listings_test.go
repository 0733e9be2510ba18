package postgres

import (
	"strings"
	"testing"

	domainlistings "tumbi/internal/domain/listings"
)

func TestBuildSearchQueryDefaults(t *testing.T) {
	query, args := buildSearchQuery(domainlistings.SearchParams{}.Normalized())
	if strings.Contains(query, "WHERE") {
		t.Fatalf("unconstrained query has WHERE: %s", query)
	}
	if !strings.HasSuffix(query, "ORDER BY created_at DESC, id ASC LIMIT $1 OFFSET $2") {
		t.Fatalf("query = %s", query)
	}
	if len(args) != 2 || args[0] != 12 || args[1] != 0 {
		t.Fatalf("args = %v", args)
	}
}

func TestBuildSearchQueryFilters(t *testing.T) {
	params := domainlistings.SearchParams{
		Search:       "50%_off",
		MainCategory: "Building Materials",
		SubCategory:  "All",
		City:         "All Cities",
		Sort:         "price-desc",
		Limit:        12,
		Offset:       24,
	}.Normalized()
	query, args := buildSearchQuery(params)

	where := query[strings.Index(query, " WHERE "):]
	if strings.Contains(where, "sub_category") || strings.Contains(where, "location") {
		t.Fatalf("placeholder filters leaked into query: %s", where)
	}
	if !strings.Contains(query, "lower(main_category) = lower($1)") {
		t.Fatalf("missing category predicate: %s", query)
	}
	if !strings.Contains(query, "title ILIKE $2") || !strings.Contains(query, "description ILIKE $2") {
		t.Fatalf("missing search predicate: %s", query)
	}
	if !strings.Contains(query, "ORDER BY price DESC, id ASC LIMIT $3 OFFSET $4") {
		t.Fatalf("order/paging = %s", query)
	}
	if args[1] != `%50\%\_off%` {
		t.Fatalf("search pattern = %q", args[1])
	}
	if args[3] != 24 {
		t.Fatalf("offset arg = %v", args[3])
	}
}
