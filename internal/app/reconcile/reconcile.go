package reconcile

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"glampbook/internal/domain/shared/money"
	"glampbook/internal/pkg/errs"
)

type Kind string

const (
	KindUserHistory  Kind = "user_history"
	KindRefundLedger Kind = "refund_ledger"
)

// Failure is a secondary write that failed after its primary transaction
// committed and still has to be applied.
type Failure struct {
	ID            string
	Kind          Kind
	BookingID     string
	UserID        string
	TransactionID string
	Refund        money.Money
	Reason        string
	Attempts      int
	LastError     string
	NextAttemptAt time.Time
	CreatedAt     time.Time
	ResolvedAt    time.Time
}

func (f Failure) Resolved() bool {
	return !f.ResolvedAt.IsZero()
}

type Store interface {
	Add(ctx context.Context, f Failure) error
	Due(ctx context.Context, now time.Time, limit int) ([]Failure, error)
	MarkResolved(ctx context.Context, id string, at time.Time) error
	MarkRetry(ctx context.Context, id string, next time.Time, lastErr string) error
}

// Log records partial failures. It never returns an error to the caller:
// the primary operation has already succeeded.
type Log struct {
	Store  Store
	Logger *slog.Logger
}

func (l *Log) Record(ctx context.Context, f Failure, cause error) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := time.Now().UTC()
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
	if f.NextAttemptAt.IsZero() {
		f.NextAttemptAt = now
	}
	err := errs.Mark(errs.Wrapf(cause, "%s for booking %s", f.Kind, f.BookingID), errs.ErrPartialFailure)
	f.LastError = err.Error()
	logger.WarnContext(ctx, "secondary write failed, queued for reconciliation",
		"kind", f.Kind, "booking_id", f.BookingID, "failure_id", f.ID, "error", err)
	if l.Store == nil {
		return
	}
	if storeErr := l.Store.Add(context.WithoutCancel(ctx), f); storeErr != nil {
		logger.ErrorContext(ctx, "reconciliation record lost", "kind", f.Kind, "booking_id", f.BookingID, "error", storeErr)
	}
}
