package middleware

import (
	"context"
	"log/slog"

	"glampbook/internal/app/commands"
	"glampbook/internal/pkg/errs"
)

// ErrLockUnavailable is returned by lockers that could not acquire a key in
// time. It is a Conflict so Retry tries again.
var ErrLockUnavailable = errs.Mark(errs.New("middleware: resource is locked"), errs.ErrConflict)

// Locker grants exclusive access to a key until unlock is called.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(context.Context) error, err error)
}

// LockScoped is implemented by commands that mutate a single contended
// record, e.g. a property calendar.
type LockScoped interface {
	LockKey() string
}

// PropertyLock serializes LockScoped commands per key. Commands on
// different keys run in parallel.
func PropertyLock(locker Locker, logger *slog.Logger) CommandMiddleware {
	if locker == nil {
		panic("middleware: locker required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			scoped, ok := cmd.(LockScoped)
			if !ok || scoped.LockKey() == "" {
				return next.Dispatch(ctx, cmd)
			}
			key := scoped.LockKey()
			unlock, err := locker.Lock(ctx, key)
			if err != nil {
				if errs.Is(err, errs.ErrConflict) {
					return nil, err
				}
				return nil, errs.Mark(errs.Wrapf(err, "lock %s", key), errs.ErrConflict)
			}
			defer func() {
				if err := unlock(context.WithoutCancel(ctx)); err != nil {
					logger.WarnContext(ctx, "lock release failed", "key", key, "error", err)
				}
			}()
			return next.Dispatch(ctx, cmd)
		})
	}
}
