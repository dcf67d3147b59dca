package policies

import (
	"context"
	"time"

	"glampbook/internal/domain/booking"
	"glampbook/internal/domain/shared/money"
)

// UserDirectory keeps the per-user booking history. It is a secondary index:
// failures never undo a booking.
type UserDirectory interface {
	AppendBookingToHistory(ctx context.Context, userID string, bookingID booking.ID) error
}

type RefundRecord struct {
	BookingID booking.ID
	Amount    money.Money
	Reason    string
	At        time.Time
}

// PaymentLedger receives refund entries. Gateway-side execution is not this
// service's concern.
type PaymentLedger interface {
	AppendRefund(ctx context.Context, transactionID string, refund RefundRecord) error
}
