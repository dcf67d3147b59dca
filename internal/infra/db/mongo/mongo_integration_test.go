//go:build integration

package mongo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"

	"glampbook/internal/app/middleware"
	"glampbook/internal/app/policies"
	"glampbook/internal/app/uow"
	domainavailability "glampbook/internal/domain/availability"
	domainbooking "glampbook/internal/domain/booking"
	"glampbook/internal/domain/pricing"
	"glampbook/internal/domain/property"
	"glampbook/internal/domain/shared/daterange"
	"glampbook/internal/domain/shared/money"
	"glampbook/internal/pkg/errs"
)

var now = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

func startMongo(t *testing.T) *Client {
	t.Helper()
	ctx := context.Background()
	container, err := mongodb.Run(ctx, "mongo:7", mongodb.WithReplicaSet("rs0"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })
	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	client, err := New(ctx, uri, "glampbook_test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close(context.Background()) })
	return client
}

func begin(t *testing.T, f Factory) (uow.UnitOfWork, context.Context) {
	t.Helper()
	unit, err := f.Begin(context.Background(), uow.TxOptions{})
	require.NoError(t, err)
	return unit, unit.(*Unit).InjectContext(context.Background())
}

func TestMongoAdapter(t *testing.T) {
	client := startMongo(t)
	db := client.DB
	f := NewFactory(db)
	ctx := context.Background()

	props := NewPropertyRepository(db)
	require.NoError(t, props.Upsert(ctx, &property.Property{
		ID: "dome-1", Name: "Dome", MaxGuests: 4, NightlyRate: money.Must(10000, "USD"),
		CleaningFee: money.Must(2500, "USD"), Active: true, UpdatedAt: now,
	}))

	t.Run("property lookup", func(t *testing.T) {
		p, err := props.ByID(ctx, "dome-1")
		require.NoError(t, err)
		assert.Equal(t, 4, p.MaxGuests)
		_, err = props.ByID(ctx, "missing")
		assert.True(t, errs.Is(err, property.ErrNotFound))
	})

	t.Run("calendar commit and stale save", func(t *testing.T) {
		rec, err := domainavailability.Initialize("dome-1", now, 30, now)
		require.NoError(t, err)

		unit, tx := begin(t, f)
		require.NoError(t, unit.Availability().Save(tx, rec))
		require.NoError(t, unit.Commit(tx))

		stored, err := f.AvailabilityRepo.Get(ctx, "dome-1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), stored.Version)
		assert.Len(t, stored.Dates, 30)

		stale := stored.Clone()
		dr, err := daterange.FromKeys("2025-05-03", "2025-05-05")
		require.NoError(t, err)
		require.NoError(t, stored.MarkBooked(dr, "bk-1", now))
		require.NoError(t, f.AvailabilityRepo.Save(ctx, stored))

		require.NoError(t, stale.AddBlockedRange(dr, "repairs", now))
		err = f.AvailabilityRepo.Save(ctx, stale)
		assert.True(t, errs.Is(err, domainavailability.ErrConcurrentUpdate))
	})

	t.Run("rollback discards writes", func(t *testing.T) {
		dr, err := daterange.FromKeys("2025-06-01", "2025-06-03")
		require.NoError(t, err)
		b, err := domainbooking.NewBooking(domainbooking.CreateParams{
			ID: "bk-rollback", PropertyID: "dome-1", UserID: "guest-1", Range: dr,
			Guests: domainbooking.Guests{Adults: 1},
			Pricing: pricing.Breakdown{
				NightlyRate: money.Must(10000, "USD"), Nights: 2, Subtotal: money.Must(20000, "USD"),
			},
			CreatedAt: now,
		})
		require.NoError(t, err)

		unit, tx := begin(t, f)
		require.NoError(t, unit.Bookings().Save(tx, b))
		require.NoError(t, unit.Rollback(tx))

		_, err = f.BookingRepo.ByID(ctx, "bk-rollback")
		assert.True(t, errs.Is(err, domainbooking.ErrNotFound))
	})

	t.Run("booking round trip", func(t *testing.T) {
		dr, err := daterange.FromKeys("2025-07-01", "2025-07-04")
		require.NoError(t, err)
		b, err := domainbooking.NewBooking(domainbooking.CreateParams{
			ID: "bk-2", PropertyID: "dome-1", UserID: "guest-2", Range: dr,
			Guests: domainbooking.Guests{Adults: 2, Pets: 1},
			Pricing: pricing.Breakdown{
				NightlyRate: money.Must(10000, "USD"), Nights: 3, Subtotal: money.Must(30000, "USD"),
				Fees: []pricing.Line{{Name: "cleaning_fee", Amount: money.Must(2500, "USD")}},
			},
			Notes:     domainbooking.Notes{Public: "late", Private: "vip"},
			CreatedAt: now,
		})
		require.NoError(t, err)
		require.NoError(t, f.BookingRepo.Save(ctx, b))

		got, err := f.BookingRepo.ByID(ctx, "bk-2")
		require.NoError(t, err)
		assert.Equal(t, b.Pricing.Total, got.Pricing.Total)
		assert.Equal(t, "2025-07-01", daterange.DayKey(got.Range.CheckIn))
		assert.Equal(t, "vip", got.Notes.Private)

		list, err := f.BookingRepo.ListByUser(ctx, "guest-2")
		require.NoError(t, err)
		require.Len(t, list, 1)
	})

	t.Run("idempotency claims a key once", func(t *testing.T) {
		store, err := NewIdempotencyStore(ctx, db, time.Hour)
		require.NoError(t, err)
		pending := middleware.IdempotencyRecord{Key: "k", OccurredAt: now}

		_, claimed, err := store.Claim(ctx, pending, now.Add(-time.Minute))
		require.NoError(t, err)
		require.True(t, claimed)

		stored, claimed, err := store.Claim(ctx, pending, now.Add(-time.Minute))
		require.NoError(t, err)
		assert.False(t, claimed)
		assert.True(t, stored.Pending)

		require.NoError(t, store.Complete(ctx, middleware.IdempotencyRecord{Key: "k", Payload: []byte(`1`), OccurredAt: now}))
		require.NoError(t, store.Release(ctx, "k"))
		stored, claimed, err = store.Claim(ctx, pending, now.Add(time.Hour))
		require.NoError(t, err)
		assert.False(t, claimed, "completed records are never taken over")
		assert.False(t, stored.Pending)
		assert.Equal(t, []byte(`1`), stored.Payload)

		_, claimed, err = store.Claim(ctx, middleware.IdempotencyRecord{Key: "stale", OccurredAt: now.Add(-time.Hour)}, now)
		require.NoError(t, err)
		require.True(t, claimed)
		_, claimed, err = store.Claim(ctx, middleware.IdempotencyRecord{Key: "stale", OccurredAt: now}, now.Add(-time.Minute))
		require.NoError(t, err)
		assert.True(t, claimed, "a stale pending claim is taken over")
	})

	t.Run("ledger and history are idempotent", func(t *testing.T) {
		history := NewUserHistory(db)
		require.NoError(t, history.AppendBookingToHistory(ctx, "guest-2", "bk-2"))
		require.NoError(t, history.AppendBookingToHistory(ctx, "guest-2", "bk-2"))

		ledger := NewPaymentLedger(db)
		refund := policies.RefundRecord{BookingID: "bk-2", Amount: money.Must(1000, "USD"), At: now}
		require.NoError(t, ledger.AppendRefund(ctx, "tx-1", refund))
		require.NoError(t, ledger.AppendRefund(ctx, "tx-1", refund))

		var doc struct {
			Refunds []refundDocument `bson:"refunds"`
		}
		require.NoError(t, ledger.col.FindOne(ctx, map[string]string{"_id": "tx-1"}).Decode(&doc))
		assert.Len(t, doc.Refunds, 1)
	})
}
