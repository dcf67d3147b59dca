package reconcile

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"glampbook/internal/app/policies"
	"glampbook/internal/domain/booking"
	"glampbook/internal/pkg/errs"
)

var (
	ErrWorkerNotConfigured = errs.New("reconcile: worker missing dependencies")
	ErrUnknownKind         = errs.New("reconcile: unknown failure kind")
)

// Worker periodically replays due failures against the collaborators.
type Worker struct {
	Store       Store
	Users       policies.UserDirectory
	Ledger      policies.PaymentLedger
	Interval    time.Duration
	BatchSize   int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	Logger      *slog.Logger
	Clock       policies.Clock
}

func (w *Worker) Run(ctx context.Context) error {
	if w.Store == nil || w.Users == nil || w.Ledger == nil {
		return ErrWorkerNotConfigured
	}
	ticker := time.NewTicker(w.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.ProcessOnce(ctx); err != nil {
				w.logger().ErrorContext(ctx, "reconcile pass failed", "error", err)
			}
		}
	}
}

// ProcessOnce replays one batch and returns how many failures were resolved.
func (w *Worker) ProcessOnce(ctx context.Context) (int, error) {
	now := policies.Or(w.Clock).Now()
	due, err := w.Store.Due(ctx, now, w.batchSize())
	if err != nil {
		return 0, err
	}
	resolved := 0
	for _, f := range due {
		if err := w.apply(ctx, f); err != nil {
			next := now.Add(w.delay(f.Attempts))
			w.logger().WarnContext(ctx, "reconcile attempt failed", "failure_id", f.ID, "kind", f.Kind, "attempts", f.Attempts+1, "next_attempt_at", next, "error", err)
			if markErr := w.Store.MarkRetry(ctx, f.ID, next, err.Error()); markErr != nil {
				return resolved, markErr
			}
			continue
		}
		if err := w.Store.MarkResolved(ctx, f.ID, now); err != nil {
			return resolved, err
		}
		resolved++
		w.logger().InfoContext(ctx, "reconciled secondary write", "failure_id", f.ID, "kind", f.Kind, "booking_id", f.BookingID)
	}
	return resolved, nil
}

func (w *Worker) apply(ctx context.Context, f Failure) error {
	switch f.Kind {
	case KindUserHistory:
		return w.Users.AppendBookingToHistory(ctx, f.UserID, booking.ID(f.BookingID))
	case KindRefundLedger:
		return w.Ledger.AppendRefund(ctx, f.TransactionID, policies.RefundRecord{
			BookingID: booking.ID(f.BookingID),
			Amount:    f.Refund,
			Reason:    f.Reason,
			At:        f.CreatedAt,
		})
	default:
		return errs.Wrapf(ErrUnknownKind, "%q", f.Kind)
	}
}

// delay is the exponential backoff interval for the given attempt count.
func (w *Worker) delay(attempts int) time.Duration {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = w.BaseBackoff
	if exp.InitialInterval <= 0 {
		exp.InitialInterval = 5 * time.Second
	}
	exp.MaxInterval = w.MaxBackoff
	if exp.MaxInterval <= 0 {
		exp.MaxInterval = 10 * time.Minute
	}
	exp.RandomizationFactor = 0
	exp.MaxElapsedTime = 0
	exp.Reset()
	d := exp.NextBackOff()
	for i := 0; i < attempts; i++ {
		d = exp.NextBackOff()
	}
	return d
}

func (w *Worker) interval() time.Duration {
	if w.Interval <= 0 {
		return 30 * time.Second
	}
	return w.Interval
}

func (w *Worker) batchSize() int {
	if w.BatchSize <= 0 {
		return 50
	}
	return w.BatchSize
}

func (w *Worker) logger() *slog.Logger {
	if w.Logger == nil {
		return slog.Default()
	}
	return w.Logger
}
