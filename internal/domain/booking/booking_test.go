package booking_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glampbook/internal/domain/booking"
	"glampbook/internal/domain/pricing"
	"glampbook/internal/domain/shared/daterange"
	"glampbook/internal/domain/shared/money"
	"glampbook/internal/pkg/errs"
)

var created = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

func newBooking(t *testing.T) *booking.Booking {
	t.Helper()
	dr, err := daterange.FromKeys("2025-06-01", "2025-06-04")
	require.NoError(t, err)
	b, err := booking.NewBooking(booking.CreateParams{
		ID:         "bk-1",
		PropertyID: "prop-1",
		UserID:     "user-1",
		Range:      dr,
		Guests:     booking.Guests{Adults: 2},
		Pricing: pricing.Breakdown{
			NightlyRate: money.Must(10000, "USD"),
			Nights:      3,
			Subtotal:    money.Must(30000, "USD"),
			Fees:        []pricing.Line{{Name: "cleaning_fee", Amount: money.Must(5000, "USD")}},
		},
		Notes:     booking.Notes{Public: "late arrival", Private: "vip"},
		CreatedAt: created,
	})
	require.NoError(t, err)
	return b
}

func TestNewBookingStartsPending(t *testing.T) {
	b := newBooking(t)

	assert.Equal(t, booking.StatusPending, b.Status)
	assert.Equal(t, booking.PaymentPending, b.Payment.Status)
	assert.Equal(t, int64(35000), b.Pricing.Total.Amount)
	require.Len(t, b.PendingEvents(), 1)
	assert.Equal(t, "booking.requested", b.PendingEvents()[0].EventName())
}

func TestNewBookingValidates(t *testing.T) {
	dr, err := daterange.FromKeys("2025-06-01", "2025-06-04")
	require.NoError(t, err)
	base := booking.CreateParams{
		ID: "bk", PropertyID: "p", UserID: "u", Range: dr, Guests: booking.Guests{Adults: 1},
		Pricing:   pricing.Breakdown{NightlyRate: money.Must(100, "USD"), Nights: 3, Subtotal: money.Must(300, "USD")},
		CreatedAt: created,
	}

	noAdults := base
	noAdults.Guests = booking.Guests{Children: 2}
	_, err = booking.NewBooking(noAdults)
	assert.True(t, errs.Is(err, booking.ErrInvalidGuests))

	noUser := base
	noUser.UserID = " "
	_, err = booking.NewBooking(noUser)
	assert.True(t, errs.Is(err, booking.ErrUserRequired))

	badRange := base
	badRange.Range = daterange.DateRange{CheckIn: dr.CheckOut, CheckOut: dr.CheckIn}
	_, err = booking.NewBooking(badRange)
	assert.True(t, errs.Is(err, errs.ErrInvalidInput))
}

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		from, to booking.Status
		want     bool
	}{
		{booking.StatusPending, booking.StatusConfirmed, true},
		{booking.StatusPending, booking.StatusCanceled, true},
		{booking.StatusPending, booking.StatusRejected, true},
		{booking.StatusPending, booking.StatusCompleted, false},
		{booking.StatusConfirmed, booking.StatusCompleted, true},
		{booking.StatusConfirmed, booking.StatusCanceled, true},
		{booking.StatusConfirmed, booking.StatusRejected, false},
		{booking.StatusCompleted, booking.StatusCanceled, false},
		{booking.StatusCanceled, booking.StatusConfirmed, false},
		{booking.StatusRejected, booking.StatusConfirmed, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, booking.CanTransition(tt.from, tt.to))
		})
	}
	for _, s := range []booking.Status{booking.StatusCanceled, booking.StatusCompleted, booking.StatusRejected} {
		assert.True(t, s.Terminal(), s)
	}
}

func TestConfirmOnlyFromPending(t *testing.T) {
	b := newBooking(t)
	require.NoError(t, b.Confirm(created))
	assert.Equal(t, booking.StatusConfirmed, b.Status)

	err := b.Confirm(created)
	assert.True(t, errs.Is(err, errs.ErrInvalidTransition))
}

func TestCompleteRequiresCheckoutPassed(t *testing.T) {
	b := newBooking(t)
	err := b.Complete(time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC))
	assert.True(t, errs.Is(err, errs.ErrInvalidTransition), "pending cannot complete")

	require.NoError(t, b.Confirm(created))
	err = b.Complete(b.Range.CheckOut)
	assert.True(t, errs.Is(err, booking.ErrCheckoutNotPassed))
	assert.Equal(t, booking.StatusConfirmed, b.Status)

	require.NoError(t, b.Complete(b.Range.CheckOut.Add(time.Minute)))
	assert.Equal(t, booking.StatusCompleted, b.Status)
}

func TestCancelTwiceFailsWithAlreadyCanceled(t *testing.T) {
	b := newBooking(t)
	require.NoError(t, b.Cancel("plans changed", "user-1", money.Money{}, created))
	snapshot := b.Clone()

	err := b.Cancel("again", "admin", money.Must(100, "USD"), created.Add(time.Hour))

	assert.True(t, errs.Is(err, errs.ErrAlreadyCanceled))
	assert.False(t, errs.Is(err, errs.ErrInvalidTransition))
	assert.Equal(t, snapshot.Cancellation, b.Cancellation)
	assert.Equal(t, snapshot.UpdatedAt, b.UpdatedAt)
}

func TestCancelCompletedIsInvalidTransition(t *testing.T) {
	b := newBooking(t)
	require.NoError(t, b.Confirm(created))
	require.NoError(t, b.Complete(b.Range.CheckOut.Add(time.Hour)))

	err := b.Cancel("", "admin", money.Money{}, created)
	assert.True(t, errs.Is(err, errs.ErrInvalidTransition))
}

func TestCancelWithRefund(t *testing.T) {
	tests := []struct {
		name   string
		refund int64
		want   booking.PaymentStatus
	}{
		{name: "partial", refund: 10000, want: booking.PaymentPartiallyRefunded},
		{name: "full", refund: 35000, want: booking.PaymentRefunded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBooking(t)
			require.NoError(t, b.RecordPayment("card", "tx-9", created))

			require.NoError(t, b.Cancel("weather", "admin-1", money.Must(tt.refund, "USD"), created))

			assert.Equal(t, booking.StatusCanceled, b.Status)
			require.NotNil(t, b.Cancellation)
			assert.Equal(t, "admin-1", b.Cancellation.CanceledBy)
			assert.Equal(t, tt.want, b.Payment.Status)
			assert.Equal(t, tt.refund, b.Payment.RefundAmount.Amount)
			assert.True(t, b.RefundDue())
		})
	}
}

func TestCancelWithoutRefundKeepsPaymentStatus(t *testing.T) {
	b := newBooking(t)
	require.NoError(t, b.RecordPayment("card", "tx-9", created))

	require.NoError(t, b.Cancel("", "admin-1", money.Money{}, created))

	assert.Equal(t, booking.PaymentPaid, b.Payment.Status)
	assert.False(t, b.RefundDue())
}

func TestCancelRejectsRefundAboveTotal(t *testing.T) {
	b := newBooking(t)
	err := b.Cancel("", "admin", money.Must(35001, "USD"), created)
	assert.True(t, errs.Is(err, booking.ErrInvalidRefund))
	assert.Equal(t, booking.StatusPending, b.Status)
}

func TestRejectOnlyPending(t *testing.T) {
	b := newBooking(t)
	require.NoError(t, b.Confirm(created))
	assert.True(t, errs.Is(b.Reject("", created), errs.ErrInvalidTransition))

	other := newBooking(t)
	require.NoError(t, other.Reject("no pets allowed", created))
	assert.Equal(t, booking.StatusRejected, other.Status)
}

func TestRecordPayment(t *testing.T) {
	b := newBooking(t)
	assert.True(t, errs.Is(b.RecordPayment("", "tx", created), errs.ErrInvalidInput))

	require.NoError(t, b.RecordPayment("card", "tx-1", created))
	assert.Equal(t, booking.PaymentPaid, b.Payment.Status)
	assert.True(t, errs.Is(b.RecordPayment("card", "tx-2", created), booking.ErrAlreadyPaid))
}

func TestAttachAddOnsRecomputesTotal(t *testing.T) {
	b := newBooking(t)
	err := b.AttachAddOns([]pricing.Line{{Name: "firewood", Amount: money.Must(1500, "USD")}}, created)
	require.NoError(t, err)
	assert.Equal(t, int64(36500), b.Pricing.Total.Amount)

	require.NoError(t, b.Cancel("", "u", money.Money{}, created))
	err = b.AttachAddOns([]pricing.Line{{Name: "late checkout", Amount: money.Must(100, "USD")}}, created)
	assert.True(t, errs.Is(err, errs.ErrInvalidTransition))
}

func TestForGuestStripsPrivateNotes(t *testing.T) {
	b := newBooking(t)
	view := b.ForGuest()

	assert.Empty(t, view.Notes.Private)
	assert.Equal(t, "late arrival", view.Notes.Public)
	assert.Equal(t, "vip", b.Notes.Private)
}
