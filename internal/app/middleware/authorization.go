package middleware

import (
	"context"
	"errors"
	"strings"

	"tumbi/internal/app/commands"
	"tumbi/internal/app/queries"
)

var ErrUnauthenticated = errors.New("middleware: authenticated actor required")

type Authorizer interface {
	Authorize(ctx context.Context, message any) error
}

// Actor is implemented by messages that act on behalf of a signed-in user.
type Actor interface {
	ActorID() string
}

// RequireActor rejects Actor messages whose actor is empty.
type RequireActor struct{}

func (RequireActor) Authorize(_ context.Context, message any) error {
	if a, ok := message.(Actor); ok && strings.TrimSpace(a.ActorID()) == "" {
		return ErrUnauthenticated
	}
	return nil
}

func Authorization(a Authorizer) CommandMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := a.Authorize(ctx, cmd); err != nil {
				return nil, err
			}
			return next.Dispatch(ctx, cmd)
		})
	}
}

func QueryAuthorization(a Authorizer) QueryMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next queries.Bus) queries.Bus {
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			if err := a.Authorize(ctx, q); err != nil {
				return nil, err
			}
			return next.Ask(ctx, q)
		})
	}
}
