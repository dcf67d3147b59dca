package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"glampbook/internal/app/commands"
	"glampbook/internal/pkg/errs"
)

type RetryPolicy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func (p RetryPolicy) backoff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		exp.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		exp.MaxInterval = p.MaxInterval
	}
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, p.MaxRetries), ctx)
}

// Retry re-dispatches a command that failed with a Conflict, up to
// MaxRetries extra attempts. Every other error is returned at once. It must
// sit outside Transaction so each attempt starts a fresh unit of work.
func Retry(policy RetryPolicy, logger *slog.Logger) CommandMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			var (
				result  any
				attempt int
			)
			op := func() error {
				attempt++
				res, err := next.Dispatch(ctx, cmd)
				if err == nil {
					result = res
					return nil
				}
				if errs.Is(err, errs.ErrConflict) {
					logger.DebugContext(ctx, "command conflict, retrying", "command", cmd.Key(), "attempt", attempt, "error", err)
					return err
				}
				return backoff.Permanent(err)
			}
			if err := backoff.Retry(op, policy.backoff(ctx)); err != nil {
				if errs.Is(err, errs.ErrConflict) {
					logger.WarnContext(ctx, "command conflict retries exhausted", "command", cmd.Key(), "attempts", attempt)
					return nil, errs.Wrapf(err, "%s after %d attempts", cmd.Key(), attempt)
				}
				return nil, err
			}
			return result, nil
		})
	}
}
