package booking

import (
	"context"
	"strings"
	"time"

	"glampbook/internal/domain/pricing"
	"glampbook/internal/domain/property"
	"glampbook/internal/domain/shared/daterange"
	"glampbook/internal/domain/shared/events"
	"glampbook/internal/domain/shared/money"
	"glampbook/internal/pkg/errs"
)

var (
	ErrNotFound           = errs.Mark(errs.New("booking: not found"), errs.ErrNotFound)
	ErrIDRequired         = errs.Mark(errs.New("booking: id is required"), errs.ErrInvalidInput)
	ErrUserRequired       = errs.Mark(errs.New("booking: user id is required"), errs.ErrInvalidInput)
	ErrInvalidGuests      = errs.Mark(errs.New("booking: at least one adult is required and counts cannot be negative"), errs.ErrInvalidInput)
	ErrCapacityExceeded   = errs.Mark(errs.New("booking: guest count exceeds property capacity"), errs.ErrCapacityExceeded)
	ErrMinimumStay        = errs.Mark(errs.New("booking: stay is shorter than the minimum stay"), errs.ErrInvalidInput)
	ErrInvalidTransition  = errs.Mark(errs.New("booking: invalid status transition"), errs.ErrInvalidTransition)
	ErrCheckoutNotPassed  = errs.Mark(errs.New("booking: checkout has not passed yet"), errs.ErrInvalidTransition)
	ErrAlreadyCanceled    = errs.Mark(errs.New("booking: already canceled"), errs.ErrAlreadyCanceled)
	ErrInvalidRefund      = errs.Mark(errs.New("booking: refund must be between zero and the booking total"), errs.ErrInvalidInput)
	ErrAlreadyPaid        = errs.Mark(errs.New("booking: payment already recorded"), errs.ErrInvalidTransition)
	ErrPaymentDetails     = errs.Mark(errs.New("booking: payment method and transaction id are required"), errs.ErrInvalidInput)
	ErrAddOnsRequired     = errs.Mark(errs.New("booking: at least one add-on is required"), errs.ErrInvalidInput)
	ErrConcurrentUpdate   = errs.Mark(errs.New("booking: concurrent update detected"), errs.ErrConflict)
	ErrPropertyIDRequired = errs.Mark(errs.New("booking: property id is required"), errs.ErrInvalidInput)
)

type ID string

type Guests struct {
	Adults   int
	Children int
	Infants  int
	Pets     int
}

// Headcount is the number of guests counted against capacity.
func (g Guests) Headcount() int {
	return g.Adults + g.Children
}

func (g Guests) Validate() error {
	if g.Adults < 1 || g.Children < 0 || g.Infants < 0 || g.Pets < 0 {
		return ErrInvalidGuests
	}
	return nil
}

type Payment struct {
	Status        PaymentStatus
	Method        string
	TransactionID string
	RefundAmount  money.Money
	PaidAt        time.Time
}

type Cancellation struct {
	CanceledAt   time.Time
	Reason       string
	CanceledBy   string
	RefundAmount money.Money
}

// Notes.Private is staff-only and never shown to the guest.
type Notes struct {
	Public  string
	Private string
}

type Booking struct {
	ID           ID
	PropertyID   property.ID
	UserID       string
	Status       Status
	Range        daterange.DateRange
	Guests       Guests
	Pricing      pricing.Breakdown
	Payment      Payment
	Cancellation *Cancellation
	Notes        Notes
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Version      int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*Booking, error)
	Save(ctx context.Context, booking *Booking) error
	ListByUser(ctx context.Context, userID string) ([]*Booking, error)
}

type CreateParams struct {
	ID         ID
	PropertyID property.ID
	UserID     string
	Range      daterange.DateRange
	Guests     Guests
	Pricing    pricing.Breakdown
	Notes      Notes
	CreatedAt  time.Time
}

// NewBooking creates a pending booking. Capacity and availability are the
// orchestrator's concern; this only checks the booking's own invariants.
func NewBooking(params CreateParams) (*Booking, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrIDRequired
	}
	if strings.TrimSpace(string(params.PropertyID)) == "" {
		return nil, ErrPropertyIDRequired
	}
	if strings.TrimSpace(params.UserID) == "" {
		return nil, ErrUserRequired
	}
	if err := params.Range.Validate(); err != nil {
		return nil, err
	}
	if err := params.Guests.Validate(); err != nil {
		return nil, err
	}
	price := params.Pricing.Copy()
	if err := price.Recalculate(); err != nil {
		return nil, err
	}
	now := params.CreatedAt.UTC()
	b := &Booking{
		ID:         params.ID,
		PropertyID: params.PropertyID,
		UserID:     params.UserID,
		Status:     StatusPending,
		Range:      params.Range,
		Guests:     params.Guests,
		Pricing:    price,
		Payment:    Payment{Status: PaymentPending, RefundAmount: money.Zero(price.Currency())},
		Notes:      params.Notes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	b.Record(BookingRequested{
		BookingID:  string(b.ID),
		PropertyID: string(b.PropertyID),
		UserID:     b.UserID,
		CheckIn:    daterange.DayKey(b.Range.CheckIn),
		CheckOut:   daterange.DayKey(b.Range.CheckOut),
		Guests:     b.Guests.Headcount(),
		Total:      b.Pricing.Total,
		At:         now,
	})
	return b, nil
}

func (b *Booking) transition(to Status, now time.Time) error {
	if !CanTransition(b.Status, to) {
		return errs.Wrapf(ErrInvalidTransition, "%s -> %s", b.Status, to)
	}
	b.Status = to
	b.UpdatedAt = now.UTC()
	return nil
}

func (b *Booking) Confirm(now time.Time) error {
	if err := b.transition(StatusConfirmed, now); err != nil {
		return err
	}
	b.Record(BookingConfirmed{BookingID: string(b.ID), PropertyID: string(b.PropertyID), UserID: b.UserID, Total: b.Pricing.Total, At: b.UpdatedAt})
	return nil
}

// Complete is legal only once now is past the stored checkout.
func (b *Booking) Complete(now time.Time) error {
	if !CanTransition(b.Status, StatusCompleted) {
		return errs.Wrapf(ErrInvalidTransition, "%s -> %s", b.Status, StatusCompleted)
	}
	if !now.After(b.Range.CheckOut) {
		return ErrCheckoutNotPassed
	}
	if err := b.transition(StatusCompleted, now); err != nil {
		return err
	}
	b.Record(BookingCompleted{BookingID: string(b.ID), PropertyID: string(b.PropertyID), At: b.UpdatedAt})
	return nil
}

func (b *Booking) Reject(reason string, now time.Time) error {
	if err := b.transition(StatusRejected, now); err != nil {
		return err
	}
	b.Record(BookingRejected{BookingID: string(b.ID), PropertyID: string(b.PropertyID), UserID: b.UserID, Reason: reason, At: b.UpdatedAt})
	return nil
}

// Cancel stamps the cancellation record. A second call fails with
// ErrAlreadyCanceled and leaves the booking untouched.
func (b *Booking) Cancel(reason, canceledBy string, refund money.Money, now time.Time) error {
	if b.Status == StatusCanceled {
		return ErrAlreadyCanceled
	}
	if !CanTransition(b.Status, StatusCanceled) {
		return errs.Wrapf(ErrInvalidTransition, "%s -> %s", b.Status, StatusCanceled)
	}
	if refund.Currency == "" {
		refund = money.Zero(b.Pricing.Currency())
	}
	if refund.IsNegative() || refund.Currency != b.Pricing.Currency() || refund.GreaterThan(b.Pricing.Total) {
		return ErrInvalidRefund
	}
	if err := b.transition(StatusCanceled, now); err != nil {
		return err
	}
	b.Cancellation = &Cancellation{
		CanceledAt:   b.UpdatedAt,
		Reason:       strings.TrimSpace(reason),
		CanceledBy:   canceledBy,
		RefundAmount: refund,
	}
	if refund.Amount > 0 {
		b.Payment.Status = PaymentRefunded
		if refund.Amount < b.Pricing.Total.Amount {
			b.Payment.Status = PaymentPartiallyRefunded
		}
		b.Payment.RefundAmount = refund
	}
	b.Record(BookingCanceled{
		BookingID:  string(b.ID),
		PropertyID: string(b.PropertyID),
		UserID:     b.UserID,
		Reason:     b.Cancellation.Reason,
		CanceledBy: canceledBy,
		Refund:     refund,
		At:         b.UpdatedAt,
	})
	return nil
}

// RefundDue reports whether a refund must be appended to a payment ledger.
func (b *Booking) RefundDue() bool {
	return b.Cancellation != nil && b.Cancellation.RefundAmount.Amount > 0 && b.Payment.TransactionID != ""
}

func (b *Booking) RecordPayment(method, transactionID string, now time.Time) error {
	method = strings.TrimSpace(method)
	transactionID = strings.TrimSpace(transactionID)
	if method == "" || transactionID == "" {
		return ErrPaymentDetails
	}
	if b.Status == StatusCanceled || b.Status == StatusRejected {
		return errs.Wrapf(ErrInvalidTransition, "payment on %s booking", b.Status)
	}
	if b.Payment.Status != PaymentPending && b.Payment.Status != PaymentFailed {
		return ErrAlreadyPaid
	}
	b.Payment.Status = PaymentPaid
	b.Payment.Method = method
	b.Payment.TransactionID = transactionID
	b.Payment.PaidAt = now.UTC()
	b.UpdatedAt = now.UTC()
	b.Record(PaymentRecorded{BookingID: string(b.ID), Method: method, TransactionID: transactionID, Amount: b.Pricing.Total, At: b.UpdatedAt})
	return nil
}

// AttachAddOns adds extras to an active booking and recomputes the total.
func (b *Booking) AttachAddOns(addOns []pricing.Line, now time.Time) error {
	if len(addOns) == 0 {
		return ErrAddOnsRequired
	}
	if b.Status.Terminal() {
		return errs.Wrapf(ErrInvalidTransition, "add-ons on %s booking", b.Status)
	}
	updated, err := b.Pricing.WithAddOns(addOns)
	if err != nil {
		return err
	}
	b.Pricing = updated
	b.UpdatedAt = now.UTC()
	b.Record(AddOnsAttached{BookingID: string(b.ID), Count: len(addOns), Total: b.Pricing.Total, At: b.UpdatedAt})
	return nil
}

// OwnedBy reports whether userID made the booking.
func (b *Booking) OwnedBy(userID string) bool {
	return userID != "" && b.UserID == userID
}

// ForGuest returns a copy safe to show to the guest.
func (b *Booking) ForGuest() *Booking {
	out := b.Clone()
	out.Notes.Private = ""
	return out
}

// Clone returns a deep copy without pending events.
func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	out := &Booking{
		ID:         b.ID,
		PropertyID: b.PropertyID,
		UserID:     b.UserID,
		Status:     b.Status,
		Range:      b.Range,
		Guests:     b.Guests,
		Pricing:    b.Pricing.Copy(),
		Payment:    b.Payment,
		Notes:      b.Notes,
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
		Version:    b.Version,
	}
	if b.Cancellation != nil {
		c := *b.Cancellation
		out.Cancellation = &c
	}
	return out
}
