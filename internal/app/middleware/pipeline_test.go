package middleware_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"tumbi/internal/app/commands"
	"tumbi/internal/app/middleware"
	"tumbi/internal/app/queries"
)

type pingQuery struct{}

func (pingQuery) Key() string { return "test.ping" }

func TestChainRunsFirstMiddlewareOutermost(t *testing.T) {
	var trace []string
	step := func(name string) middleware.QueryMiddleware {
		return func(next queries.Bus) queries.Bus {
			return askFunc(func(ctx context.Context, q queries.Query) (any, error) {
				trace = append(trace, name)
				return next.Ask(ctx, q)
			})
		}
	}
	bus := queries.NewInMemoryBus()
	queries.RegisterHandler(bus, pingQuery{}.Key(), queries.HandlerFunc[pingQuery, string](
		func(ctx context.Context, q pingQuery) (string, error) {
			trace = append(trace, "handler")
			return "pong", nil
		}))

	got, err := queries.Ask[pingQuery, string](context.Background(), middleware.ChainQueries(bus, step("outer"), step("inner")), pingQuery{})
	if err != nil || got != "pong" {
		t.Fatalf("ask = %q, %v", got, err)
	}
	if strings.Join(trace, ",") != "outer,inner,handler" {
		t.Fatalf("unexpected order %v", trace)
	}
}

func TestAskReportsWrongResultType(t *testing.T) {
	bus := queries.NewInMemoryBus()
	queries.RegisterHandler(bus, pingQuery{}.Key(), queries.HandlerFunc[pingQuery, string](
		func(ctx context.Context, q pingQuery) (string, error) { return "pong", nil }))

	_, err := queries.Ask[pingQuery, int](context.Background(), bus, pingQuery{})
	if !errors.Is(err, queries.ErrResultType) || !strings.Contains(err.Error(), "test.ping") {
		t.Fatalf("expected result type error naming the query, got %v", err)
	}
	if _, err := commands.Dispatch[postCommand, postResult](context.Background(), commands.NewInMemoryBus(), postCommand{}); !errors.Is(err, commands.ErrHandlerNotFound) {
		t.Fatalf("expected handler not found, got %v", err)
	}
	if keys := bus.Keys(); len(keys) != 1 || keys[0] != "test.ping" {
		t.Fatalf("unexpected keys %v", keys)
	}
}

type askFunc func(ctx context.Context, q queries.Query) (any, error)

func (f askFunc) Ask(ctx context.Context, q queries.Query) (any, error) { return f(ctx, q) }
