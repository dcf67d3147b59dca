package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appoutbox "glampbook/internal/app/outbox"
	"glampbook/internal/app/policies"
	"glampbook/internal/app/reconcile"
	"glampbook/internal/app/uow"
	domainavailability "glampbook/internal/domain/availability"
	"glampbook/internal/domain/property"
	"glampbook/internal/domain/shared/daterange"
	"glampbook/internal/domain/shared/money"
	"glampbook/internal/infra/storage/memory"
	"glampbook/internal/pkg/errs"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func seedCalendar(t *testing.T, store *memory.Store, id property.ID) {
	t.Helper()
	ctx := context.Background()
	unit, err := store.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	rec, err := domainavailability.Initialize(id, now, 30, now)
	require.NoError(t, err)
	require.NoError(t, unit.Availability().Save(ctx, rec))
	require.NoError(t, unit.Commit(ctx))
}

func TestUnitCommitAppliesStagedWrites(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	unit, err := store.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)

	rec, err := domainavailability.Initialize("tent-1", now, 10, now)
	require.NoError(t, err)
	require.NoError(t, unit.Availability().Save(ctx, rec))
	assert.Equal(t, int64(1), rec.Version)

	other, err := store.Begin(ctx, uow.TxOptions{ReadOnly: true})
	require.NoError(t, err)
	_, err = other.Availability().Get(ctx, "tent-1")
	assert.True(t, errs.Is(err, errs.ErrNotFound), "uncommitted write must not be visible")

	require.NoError(t, unit.Commit(ctx))
	got, err := other.Availability().Get(ctx, "tent-1")
	require.NoError(t, err)
	assert.Len(t, got.Dates, 10)
}

func TestUnitRollbackDiscardsWritesAndHooks(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	unit, err := store.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)

	rec, err := domainavailability.Initialize("tent-1", now, 10, now)
	require.NoError(t, err)
	require.NoError(t, unit.Availability().Save(ctx, rec))
	ran := false
	unit.AfterCommit(func(context.Context) { ran = true })
	require.NoError(t, unit.Rollback(ctx))
	unit.(*memory.Unit).RunAfterCommit(ctx)

	assert.False(t, ran)
	check, err := store.Begin(ctx, uow.TxOptions{ReadOnly: true})
	require.NoError(t, err)
	_, err = check.Availability().Get(ctx, "tent-1")
	assert.True(t, errs.Is(err, errs.ErrNotFound))
}

func TestCommitDetectsConcurrentUpdate(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedCalendar(t, store, "tent-1")

	first, err := store.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	second, err := store.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)

	a, err := first.Availability().Get(ctx, "tent-1")
	require.NoError(t, err)
	b, err := second.Availability().Get(ctx, "tent-1")
	require.NoError(t, err)

	dr, err := daterange.FromKeys("2025-06-03", "2025-06-05")
	require.NoError(t, err)
	require.NoError(t, a.MarkBooked(dr, "bk-a", now))
	require.NoError(t, b.MarkBooked(dr, "bk-b", now))
	require.NoError(t, first.Availability().Save(ctx, a))
	require.NoError(t, second.Availability().Save(ctx, b))

	require.NoError(t, first.Commit(ctx))
	err = second.Commit(ctx)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrConflict))

	check, err := store.Begin(ctx, uow.TxOptions{ReadOnly: true})
	require.NoError(t, err)
	got, err := check.Availability().Get(ctx, "tent-1")
	require.NoError(t, err)
	entry, _ := got.Entry("2025-06-03")
	assert.Equal(t, "bk-a", entry.BookingID)
}

func TestReadOnlyUnitRejectsWrites(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	unit, err := store.Begin(ctx, uow.TxOptions{ReadOnly: true})
	require.NoError(t, err)
	rec, err := domainavailability.Initialize("tent-1", now, 3, now)
	require.NoError(t, err)
	assert.ErrorIs(t, unit.Availability().Save(ctx, rec), memory.ErrReadOnlyUnit)
}

type recordingPublisher struct {
	fail  bool
	names []string
}

func (p *recordingPublisher) Publish(ctx context.Context, rec appoutbox.EventRecord) error {
	if p.fail {
		return errs.New("broker down")
	}
	p.names = append(p.names, rec.Name)
	return nil
}

func TestOutboxStagesUntilCommit(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	pub := &recordingPublisher{}
	box := memory.NewOutbox(store, pub)

	unit, err := store.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	txCtx := uow.ContextWithUnitOfWork(ctx, unit)
	require.NoError(t, box.Add(txCtx, appoutbox.EventRecord{ID: "1", Name: "calendar.blocked"}))
	assert.Empty(t, box.Pending())

	require.NoError(t, unit.Commit(ctx))
	assert.Len(t, box.Pending(), 1)

	pub.fail = true
	require.Error(t, box.Flush(ctx))
	assert.Len(t, box.Pending(), 1, "failed records stay queued")

	pub.fail = false
	require.NoError(t, box.Flush(ctx))
	assert.Empty(t, box.Pending())
	assert.Equal(t, []string{"calendar.blocked"}, pub.names)
	assert.Len(t, box.Delivered(), 1)
}

func TestOutboxDropsRolledBackRecords(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	box := memory.NewOutbox(store, nil)

	unit, err := store.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	txCtx := uow.ContextWithUnitOfWork(ctx, unit)
	require.NoError(t, box.Add(txCtx, appoutbox.EventRecord{ID: "1", Name: "booking.requested"}))
	require.NoError(t, unit.Rollback(ctx))

	assert.Empty(t, box.Pending())
}

func TestReconcileStoreDue(t *testing.T) {
	ctx := context.Background()
	store := memory.NewReconcileStore()
	require.NoError(t, store.Add(ctx, reconcileFailure("a", now.Add(-time.Minute))))
	require.NoError(t, store.Add(ctx, reconcileFailure("b", now.Add(time.Hour))))

	due, err := store.Due(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "a", due[0].ID)

	require.NoError(t, store.MarkRetry(ctx, "a", now.Add(time.Minute), "still down"))
	due, err = store.Due(ctx, now, 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	require.NoError(t, store.MarkResolved(ctx, "a", now))
	due, err = store.Due(ctx, now.Add(2*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "b", due[0].ID)

	assert.True(t, errs.Is(store.MarkResolved(ctx, "missing", now), errs.ErrNotFound))
}

func TestHistoryAndLedgerAreIdempotent(t *testing.T) {
	ctx := context.Background()
	history := memory.NewUserHistory()
	require.NoError(t, history.AppendBookingToHistory(ctx, "u1", "bk-1"))
	require.NoError(t, history.AppendBookingToHistory(ctx, "u1", "bk-1"))
	assert.Len(t, history.History("u1"), 1)

	ledger := memory.NewPaymentLedger()
	refund := policies.RefundRecord{BookingID: "bk-1", Amount: money.Must(5000, "USD"), At: now}
	require.NoError(t, ledger.AppendRefund(ctx, "tx-1", refund))
	require.NoError(t, ledger.AppendRefund(ctx, "tx-1", refund))
	assert.Len(t, ledger.Refunds("tx-1"), 1)
}

func reconcileFailure(id string, next time.Time) reconcile.Failure {
	return reconcile.Failure{
		ID:            id,
		Kind:          reconcile.KindUserHistory,
		BookingID:     "bk-" + id,
		UserID:        "u1",
		NextAttemptAt: next,
		CreatedAt:     next,
	}
}
