package booking

import (
	"context"
	"strings"

	"glampbook/internal/app/auth"
	"glampbook/internal/app/commands"
	"glampbook/internal/app/policies"
	"glampbook/internal/app/reconcile"
	"glampbook/internal/app/uow"
	domainbooking "glampbook/internal/domain/booking"
	"glampbook/internal/domain/shared/money"
	"glampbook/internal/pkg/errs"
)

const (
	cancelBookingKey      = "booking.cancel"
	guestCancelBookingKey = "booking.guest_cancel"
)

// CancelBookingCommand is the staff cancellation, refund included.
type CancelBookingCommand struct {
	BookingID    string `validate:"required"`
	Reason       string `validate:"max=500"`
	CanceledBy   string `validate:"required"`
	RefundAmount int64  `validate:"min=0"`
}

func (c CancelBookingCommand) Key() string          { return cancelBookingKey }
func (c CancelBookingCommand) RequiredRole() string { return auth.RoleAdmin }

// GuestCancelBookingCommand lets a guest cancel their own booking. Refunds
// are decided by staff, so none is recorded here.
type GuestCancelBookingCommand struct {
	BookingID string `validate:"required"`
	UserID    string `validate:"required"`
	Reason    string `validate:"max=500"`
}

func (c GuestCancelBookingCommand) Key() string { return guestCancelBookingKey }

type BookingActionResult struct {
	BookingID     string   `json:"booking_id"`
	Status        string   `json:"status"`
	PaymentStatus string   `json:"payment_status"`
	ReleasedDates []string `json:"released_dates,omitempty"`
}

func actionResult(b *domainbooking.Booking, released []string) *BookingActionResult {
	return &BookingActionResult{
		BookingID:     string(b.ID),
		Status:        string(b.Status),
		PaymentStatus: string(b.Payment.Status),
		ReleasedDates: released,
	}
}

// CancelBookingHandler stamps the cancellation and releases the dates in
// one unit of work. The refund ledger append is secondary and runs after
// commit.
type CancelBookingHandler struct {
	Deps
}

func (h *CancelBookingHandler) Handle(ctx context.Context, cmd CancelBookingCommand) (*BookingActionResult, error) {
	return h.cancel(ctx, strings.TrimSpace(cmd.BookingID), "", cmd.Reason, cmd.CanceledBy, cmd.RefundAmount)
}

type GuestCancelBookingHandler struct {
	Deps
}

func (h *GuestCancelBookingHandler) Handle(ctx context.Context, cmd GuestCancelBookingCommand) (*BookingActionResult, error) {
	inner := CancelBookingHandler{Deps: h.Deps}
	return inner.cancel(ctx, strings.TrimSpace(cmd.BookingID), strings.TrimSpace(cmd.UserID), cmd.Reason, cmd.UserID, 0)
}

func (h *CancelBookingHandler) cancel(ctx context.Context, id, owner, reason, canceledBy string, refundAmount int64) (*BookingActionResult, error) {
	unit, err := uow.Require(ctx)
	if err != nil {
		return nil, err
	}
	b, err := unit.Bookings().ByID(ctx, domainbooking.ID(id))
	if err != nil {
		return nil, err
	}
	if owner != "" && !b.OwnedBy(owner) {
		return nil, errs.Wrapf(domainbooking.ErrNotFound, "%s", id)
	}
	refund := money.Money{Amount: refundAmount, Currency: b.Pricing.Currency()}
	now := h.clock().Now()
	if err := b.Cancel(reason, canceledBy, refund, now); err != nil {
		return nil, err
	}
	if err := h.saveBooking(ctx, unit, b); err != nil {
		return nil, err
	}
	released, err := h.releaseDates(ctx, unit, b)
	if err != nil {
		return nil, err
	}

	if b.RefundDue() && h.Ledger != nil {
		record := policies.RefundRecord{
			BookingID: b.ID,
			Amount:    b.Cancellation.RefundAmount,
			Reason:    b.Cancellation.Reason,
			At:        now,
		}
		txID := b.Payment.TransactionID
		unit.AfterCommit(func(ctx context.Context) {
			if err := h.Ledger.AppendRefund(ctx, txID, record); err != nil {
				h.partialFailure(ctx, reconcile.Failure{
					Kind:          reconcile.KindRefundLedger,
					BookingID:     string(record.BookingID),
					TransactionID: txID,
					Refund:        record.Amount,
					Reason:        record.Reason,
				}, err)
			}
		})
	}

	h.logger().InfoContext(ctx, "booking canceled", "booking_id", b.ID, "canceled_by", canceledBy, "refund", refund.Amount, "released", len(released))
	return actionResult(b, released), nil
}

var (
	_ commands.Handler[CancelBookingCommand, *BookingActionResult]      = (*CancelBookingHandler)(nil)
	_ commands.Handler[GuestCancelBookingCommand, *BookingActionResult] = (*GuestCancelBookingHandler)(nil)
)
