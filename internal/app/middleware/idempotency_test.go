package middleware_test

import (
	"context"
	"errors"
	"testing"

	"tumbi/internal/app/commands"
	"tumbi/internal/app/middleware"
	"tumbi/internal/app/uow"
	"tumbi/internal/infra/storage/memory"
)

type postCommand struct {
	Actor string
	Body  string
	Token string
}

type postResult struct {
	ID   int
	Body string
}

func (c postCommand) Key() string            { return "test.post" }
func (c postCommand) ActorID() string        { return c.Actor }
func (c postCommand) IdempotencyKey() string { return c.Token }
func (c postCommand) ResultPrototype() any   { return &postResult{} }

func newBus(t *testing.T, calls *int, fail *error) commands.Bus {
	t.Helper()
	bus := commands.NewInMemoryBus()
	commands.RegisterHandler(bus, postCommand{}.Key(), commands.HandlerFunc[postCommand, postResult](
		func(ctx context.Context, cmd postCommand) (postResult, error) {
			*calls++
			if *fail != nil {
				return postResult{}, *fail
			}
			return postResult{ID: *calls, Body: cmd.Body}, nil
		}))
	factory := memory.Factory{Store: memory.NewStore()}
	return middleware.ChainCommands(bus,
		middleware.Transaction(factory, nil),
		middleware.Idempotency(nil),
	)
}

func TestIdempotencyReplaysStoredResult(t *testing.T) {
	var (
		calls int
		fail  error
	)
	bus := newBus(t, &calls, &fail)
	ctx := context.Background()

	first, err := commands.Dispatch[postCommand, postResult](ctx, bus, postCommand{Actor: "u1", Body: "hi", Token: "k1"})
	if err != nil {
		t.Fatalf("first dispatch: %v", err)
	}
	second, err := commands.Dispatch[postCommand, postResult](ctx, bus, postCommand{Actor: "u1", Body: "hi", Token: "k1"})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if calls != 1 {
		t.Fatalf("handler ran %d times, want 1", calls)
	}
	if first != second {
		t.Fatalf("replay returned %+v, want %+v", second, first)
	}
}

func TestIdempotencyKeysAreScopedPerActor(t *testing.T) {
	var (
		calls int
		fail  error
	)
	bus := newBus(t, &calls, &fail)
	ctx := context.Background()
	_, _ = commands.Dispatch[postCommand, postResult](ctx, bus, postCommand{Actor: "u1", Token: "k1"})
	_, _ = commands.Dispatch[postCommand, postResult](ctx, bus, postCommand{Actor: "u2", Token: "k1"})
	if calls != 2 {
		t.Fatalf("same key from different users must both run, got %d calls", calls)
	}
}

func TestIdempotencyWithoutKeyAlwaysRuns(t *testing.T) {
	var (
		calls int
		fail  error
	)
	bus := newBus(t, &calls, &fail)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := commands.Dispatch[postCommand, postResult](ctx, bus, postCommand{Actor: "u1"}); err != nil {
			t.Fatal(err)
		}
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestFailedCommandCanBeRetried(t *testing.T) {
	var calls int
	fail := errors.New("boom")
	bus := newBus(t, &calls, &fail)
	ctx := context.Background()

	if _, err := commands.Dispatch[postCommand, postResult](ctx, bus, postCommand{Actor: "u1", Token: "k1"}); !errors.Is(err, fail) {
		t.Fatalf("expected handler error, got %v", err)
	}
	fail = nil
	res, err := commands.Dispatch[postCommand, postResult](ctx, bus, postCommand{Actor: "u1", Body: "again", Token: "k1"})
	if err != nil || res.Body != "again" {
		t.Fatalf("retry after failure: %+v %v", res, err)
	}
}

func TestIdempotencyNeedsUnitOfWork(t *testing.T) {
	bus := commands.NewInMemoryBus()
	commands.RegisterHandler(bus, postCommand{}.Key(), commands.HandlerFunc[postCommand, postResult](
		func(ctx context.Context, cmd postCommand) (postResult, error) { return postResult{}, nil }))
	chained := middleware.ChainCommands(bus, middleware.Idempotency(nil))
	_, err := chained.Dispatch(context.Background(), postCommand{Actor: "u1", Token: "k1"})
	if !errors.Is(err, uow.ErrUnitOfWorkMissing) {
		t.Fatalf("expected ErrUnitOfWorkMissing, got %v", err)
	}
}
