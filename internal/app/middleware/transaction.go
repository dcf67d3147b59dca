package middleware

import (
	"context"

	"glampbook/internal/app/commands"
	"glampbook/internal/app/uow"
)

type TxOptionsProvider func(cmd commands.Command) uow.TxOptions

type afterCommitRunner interface {
	RunAfterCommit(ctx context.Context)
}

// Transaction runs the handler inside a unit of work. The unit commits only
// when the handler succeeds; after-commit hooks run with the caller's
// context once the commit is durable.
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
			execCtx := ctx
			if injector, ok := unit.(uow.Injector); ok {
				execCtx = injector.InjectContext(ctx)
			}
			execCtx = uow.ContextWithUnitOfWork(execCtx, unit)
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
			if runner, ok := unit.(afterCommitRunner); ok {
				runner.RunAfterCommit(ctx)
			}
			return res, nil
		})
	}
}
