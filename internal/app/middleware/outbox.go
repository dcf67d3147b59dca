package middleware

import (
	"context"
	"log/slog"

	"glampbook/internal/app/commands"
	"glampbook/internal/app/outbox"
)

// OutboxFlush asks the outbox to forward committed records after a
// successful command. A flush failure is logged, not returned: the command
// already committed and the records stay queued.
func OutboxFlush(box outbox.Outbox, logger *slog.Logger) CommandMiddleware {
	if box == nil {
		panic("middleware: outbox required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := next.Dispatch(ctx, cmd)
			if err != nil {
				return nil, err
			}
			if err := box.Flush(ctx); err != nil {
				logger.WarnContext(ctx, "outbox flush failed", "command", cmd.Key(), "error", err)
			}
			return res, nil
		})
	}
}
