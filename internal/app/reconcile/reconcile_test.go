package reconcile_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glampbook/internal/app/policies"
	"glampbook/internal/app/reconcile"
	"glampbook/internal/domain/booking"
	"glampbook/internal/domain/shared/money"
	"glampbook/internal/infra/obs"
	"glampbook/internal/infra/storage/memory"
	"glampbook/internal/pkg/errs"
)

type mutableClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *mutableClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mutableClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// flakyUsers fails the first n appends.
type flakyUsers struct {
	failures int
	inner    *memory.UserHistory
}

func (u *flakyUsers) AppendBookingToHistory(ctx context.Context, userID string, id booking.ID) error {
	if u.failures > 0 {
		u.failures--
		return errs.New("directory timeout")
	}
	return u.inner.AppendBookingToHistory(ctx, userID, id)
}

func byID(store *memory.ReconcileStore, id string) reconcile.Failure {
	for _, f := range store.All() {
		if f.ID == id {
			return f
		}
	}
	return reconcile.Failure{}
}

func TestLogRecordQueuesFailure(t *testing.T) {
	store := memory.NewReconcileStore()
	log := &reconcile.Log{Store: store, Logger: obs.Discard()}

	log.Record(context.Background(), reconcile.Failure{Kind: reconcile.KindUserHistory, BookingID: "b-1", UserID: "u-1"}, errs.New("timeout"))

	all := store.All()
	require.Len(t, all, 1)
	f := all[0]
	assert.NotEmpty(t, f.ID)
	assert.False(t, f.NextAttemptAt.IsZero())
	assert.Contains(t, f.LastError, "timeout")
	assert.Contains(t, f.LastError, "b-1")
	assert.False(t, f.Resolved())
}

func TestWorkerReplaysDueFailures(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := &mutableClock{now: start}
	store := memory.NewReconcileStore()
	history := memory.NewUserHistory()
	ledger := memory.NewPaymentLedger()
	users := &flakyUsers{failures: 2, inner: history}
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, reconcile.Failure{
		ID: "f-history", Kind: reconcile.KindUserHistory, BookingID: "b-1", UserID: "u-1",
		NextAttemptAt: start, CreatedAt: start,
	}))
	require.NoError(t, store.Add(ctx, reconcile.Failure{
		ID: "f-refund", Kind: reconcile.KindRefundLedger, BookingID: "b-2", TransactionID: "tx-1",
		Refund: money.Must(4500, "EUR"), Reason: "storm", NextAttemptAt: start, CreatedAt: start,
	}))
	require.NoError(t, store.Add(ctx, reconcile.Failure{
		ID: "f-later", Kind: reconcile.KindUserHistory, BookingID: "b-3", UserID: "u-3",
		NextAttemptAt: start.Add(time.Hour), CreatedAt: start,
	}))

	w := &reconcile.Worker{
		Store:       store,
		Users:       users,
		Ledger:      ledger,
		BaseBackoff: 10 * time.Second,
		MaxBackoff:  time.Minute,
		Logger:      obs.Discard(),
		Clock:       clock,
	}

	resolved, err := w.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, resolved)

	refunds := ledger.Refunds("tx-1")
	require.Len(t, refunds, 1)
	assert.Equal(t, policies.RefundRecord{BookingID: "b-2", Amount: money.Must(4500, "EUR"), Reason: "storm", At: start}, refunds[0])
	assert.True(t, byID(store, "f-refund").Resolved())

	retried := byID(store, "f-history")
	assert.Equal(t, 1, retried.Attempts)
	assert.Equal(t, start.Add(10*time.Second), retried.NextAttemptAt)
	assert.Contains(t, retried.LastError, "directory timeout")

	// Not due yet: nothing happens.
	resolved, err = w.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, resolved)
	assert.Equal(t, 1, byID(store, "f-history").Attempts)

	clock.Advance(10 * time.Second)
	_, err = w.ProcessOnce(ctx)
	require.NoError(t, err)
	retried = byID(store, "f-history")
	assert.Equal(t, 2, retried.Attempts)
	assert.Equal(t, clock.Now().Add(15*time.Second), retried.NextAttemptAt)

	clock.Advance(time.Hour)
	resolved, err = w.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, resolved)
	assert.Equal(t, []booking.ID{"b-1"}, history.History("u-1"))
	assert.Equal(t, []booking.ID{"b-3"}, history.History("u-3"))
}

func TestWorkerRetriesUnknownKind(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	store := memory.NewReconcileStore()
	require.NoError(t, store.Add(context.Background(), reconcile.Failure{ID: "odd", Kind: "mystery", NextAttemptAt: now}))
	w := &reconcile.Worker{
		Store:  store,
		Users:  memory.NewUserHistory(),
		Ledger: memory.NewPaymentLedger(),
		Logger: obs.Discard(),
		Clock:  policies.FixedClock(now),
	}

	resolved, err := w.ProcessOnce(context.Background())

	require.NoError(t, err)
	assert.Zero(t, resolved)
	f := byID(store, "odd")
	assert.Equal(t, 1, f.Attempts)
	assert.Contains(t, f.LastError, "unknown failure kind")
}

func TestWorkerRunRequiresDependencies(t *testing.T) {
	err := (&reconcile.Worker{}).Run(context.Background())
	assert.True(t, errs.Is(err, reconcile.ErrWorkerNotConfigured))
}

func TestWorkerRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w := &reconcile.Worker{
		Store:    memory.NewReconcileStore(),
		Users:    memory.NewUserHistory(),
		Ledger:   memory.NewPaymentLedger(),
		Interval: time.Millisecond,
		Logger:   obs.Discard(),
	}
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
