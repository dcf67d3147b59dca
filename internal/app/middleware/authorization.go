package middleware

import (
	"context"

	"glampbook/internal/app/auth"
	"glampbook/internal/app/commands"
	"glampbook/internal/app/queries"
	"glampbook/internal/pkg/errs"
)

var (
	ErrUnauthenticated = errs.Mark(errs.New("middleware: caller is not authenticated"), errs.ErrUnauthenticated)
	ErrForbidden       = errs.Mark(errs.New("middleware: caller lacks the required role"), errs.ErrForbidden)
)

type Authorizer interface {
	Authorize(ctx context.Context, message any) error
}

// RoleRestricted is implemented by messages limited to one role.
type RoleRestricted interface {
	RequiredRole() string
}

// RoleAuthorizer checks the principal in context against RoleRestricted
// messages. Messages without a requirement pass through.
type RoleAuthorizer struct{}

func (RoleAuthorizer) Authorize(ctx context.Context, message any) error {
	restricted, ok := message.(RoleRestricted)
	if !ok || restricted.RequiredRole() == "" {
		return nil
	}
	principal, ok := auth.FromContext(ctx)
	if !ok || !principal.Authenticated() {
		return ErrUnauthenticated
	}
	if !principal.HasRole(restricted.RequiredRole()) {
		return errs.Wrapf(ErrForbidden, "role %q", restricted.RequiredRole())
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
