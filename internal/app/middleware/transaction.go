package middleware

import (
	"context"

	"tumbi/internal/app/commands"
	"tumbi/internal/app/queries"
	"tumbi/internal/app/uow"
)

type TxOptionsProvider func(cmd commands.Command) uow.TxOptions

// Transaction runs every command inside its own unit of work. The unit is
// rolled back on any path that does not reach a successful Commit, which
// returns the pooled connection.
func Transaction(factory uow.UoWFactory, optsProvider TxOptionsProvider) CommandMiddleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			opts := uow.TxOptions{}
			if optsProvider != nil {
				opts = optsProvider(cmd)
			}
			unit, err := factory.Begin(ctx, opts)
			if err != nil {
				return nil, err
			}
			execCtx := uow.Bind(ctx, unit)
			committed := false
			defer func() {
				if !committed {
					_ = unit.Rollback(execCtx)
				}
			}()

			res, err := next.Dispatch(execCtx, cmd)
			if err != nil {
				return nil, err
			}
			if err := unit.Commit(execCtx); err != nil {
				return nil, err
			}
			committed = true
			return res, nil
		})
	}
}

// ReadOnlyTransaction gives each query a read-only unit that is always rolled back.
func ReadOnlyTransaction(factory uow.UoWFactory) QueryMiddleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	return func(next queries.Bus) queries.Bus {
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			_, execCtx, release, err := uow.ReadOnly(ctx, factory)
			if err != nil {
				return nil, err
			}
			defer release()
			return next.Ask(execCtx, q)
		})
	}
}
