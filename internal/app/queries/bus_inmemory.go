package queries

import (
	"context"
	"fmt"
	"sort"
)

type route func(ctx context.Context, q Query) (any, error)

// InMemoryBus routes by Query.Key. Routes are fixed once wiring returns.
type InMemoryBus struct {
	routes map[string]route
}

func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{routes: make(map[string]route)}
}

func (b *InMemoryBus) Ask(ctx context.Context, query Query) (any, error) {
	r, ok := b.routes[query.Key()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHandlerNotFound, query.Key())
	}
	return r(ctx, query)
}

// Keys lists the routed query keys, sorted.
func (b *InMemoryBus) Keys() []string {
	keys := make([]string, 0, len(b.routes))
	for k := range b.routes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RegisterHandler routes key to handler. It panics on an empty or repeated
// key, which can only happen through a wiring mistake.
func RegisterHandler[Q Query, R any](bus *InMemoryBus, key string, handler Handler[Q, R]) {
	switch {
	case bus == nil:
		panic("queries: nil bus")
	case key == "":
		panic("queries: empty key registration")
	}
	if _, dup := bus.routes[key]; dup {
		panic("queries: duplicate registration for " + key)
	}
	bus.routes[key] = func(ctx context.Context, raw Query) (any, error) {
		q, ok := raw.(Q)
		if !ok {
			return nil, fmt.Errorf("%w: %s got %T", ErrInvalidQuery, key, raw)
		}
		return handler.Handle(ctx, q)
	}
}
