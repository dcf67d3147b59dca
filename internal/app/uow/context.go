package uow

import (
	"context"

	"glampbook/internal/pkg/errs"
)

var ErrUnitOfWorkMissing = errs.New("uow: unit of work missing from context")

type ctxKey struct{}

// ContextWithUnitOfWork stores the provided unit of work in context.
func ContextWithUnitOfWork(ctx context.Context, unit UnitOfWork) context.Context {
	return context.WithValue(ctx, ctxKey{}, unit)
}

// FromContext retrieves a unit of work from context if present.
func FromContext(ctx context.Context) (UnitOfWork, bool) {
	val := ctx.Value(ctxKey{})
	if val == nil {
		return nil, false
	}
	unit, ok := val.(UnitOfWork)
	return unit, ok
}

// Require returns the unit of work bound to ctx or ErrUnitOfWorkMissing.
func Require(ctx context.Context) (UnitOfWork, error) {
	unit, ok := FromContext(ctx)
	if !ok {
		return nil, ErrUnitOfWorkMissing
	}
	return unit, nil
}

// Injector is implemented by units that carry driver state (sessions) in
// the context used by repositories.
type Injector interface {
	InjectContext(ctx context.Context) context.Context
}
