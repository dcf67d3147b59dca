package booking

import (
	"context"
	"strings"

	"glampbook/internal/app/auth"
	"glampbook/internal/app/commands"
	"glampbook/internal/app/uow"
	domainbooking "glampbook/internal/domain/booking"
	"glampbook/internal/domain/pricing"
	"glampbook/internal/domain/shared/money"
)

const (
	confirmBookingKey  = "booking.confirm"
	completeBookingKey = "booking.complete"
	rejectBookingKey   = "booking.reject"
	recordPaymentKey   = "booking.record_payment"
	attachAddOnsKey    = "booking.attach_add_ons"
)

type ConfirmBookingCommand struct {
	BookingID string `validate:"required"`
}

func (c ConfirmBookingCommand) Key() string          { return confirmBookingKey }
func (c ConfirmBookingCommand) RequiredRole() string { return auth.RoleAdmin }

type CompleteBookingCommand struct {
	BookingID string `validate:"required"`
}

func (c CompleteBookingCommand) Key() string          { return completeBookingKey }
func (c CompleteBookingCommand) RequiredRole() string { return auth.RoleAdmin }

type RejectBookingCommand struct {
	BookingID string `validate:"required"`
	Reason    string `validate:"max=500"`
}

func (c RejectBookingCommand) Key() string          { return rejectBookingKey }
func (c RejectBookingCommand) RequiredRole() string { return auth.RoleAdmin }

type RecordPaymentCommand struct {
	BookingID     string `validate:"required"`
	Method        string `validate:"required,max=50"`
	TransactionID string `validate:"required,max=200"`
}

func (c RecordPaymentCommand) Key() string          { return recordPaymentKey }
func (c RecordPaymentCommand) RequiredRole() string { return auth.RoleAdmin }

type AddOnInput struct {
	Name   string `json:"name" validate:"required,max=100"`
	Amount int64  `json:"amount" validate:"min=0"`
}

type AttachAddOnsCommand struct {
	BookingID string       `validate:"required"`
	AddOns    []AddOnInput `validate:"required,min=1,max=20,dive"`
}

func (c AttachAddOnsCommand) Key() string          { return attachAddOnsKey }
func (c AttachAddOnsCommand) RequiredRole() string { return auth.RoleAdmin }

// transition loads a booking, applies fn and saves it inside the caller's
// unit of work, so the legality check sees the same version that is written.
func (d Deps) transition(ctx context.Context, id string, fn func(unit uow.UnitOfWork, b *domainbooking.Booking) ([]string, error)) (*BookingActionResult, error) {
	unit, err := uow.Require(ctx)
	if err != nil {
		return nil, err
	}
	b, err := unit.Bookings().ByID(ctx, domainbooking.ID(strings.TrimSpace(id)))
	if err != nil {
		return nil, err
	}
	released, err := fn(unit, b)
	if err != nil {
		return nil, err
	}
	if err := d.saveBooking(ctx, unit, b); err != nil {
		return nil, err
	}
	return actionResult(b, released), nil
}

type ConfirmBookingHandler struct {
	Deps
}

func (h *ConfirmBookingHandler) Handle(ctx context.Context, cmd ConfirmBookingCommand) (*BookingActionResult, error) {
	res, err := h.transition(ctx, cmd.BookingID, func(_ uow.UnitOfWork, b *domainbooking.Booking) ([]string, error) {
		return nil, b.Confirm(h.clock().Now())
	})
	if err != nil {
		return nil, err
	}
	h.logger().InfoContext(ctx, "booking confirmed", "booking_id", res.BookingID)
	return res, nil
}

type CompleteBookingHandler struct {
	Deps
}

func (h *CompleteBookingHandler) Handle(ctx context.Context, cmd CompleteBookingCommand) (*BookingActionResult, error) {
	res, err := h.transition(ctx, cmd.BookingID, func(_ uow.UnitOfWork, b *domainbooking.Booking) ([]string, error) {
		return nil, b.Complete(h.clock().Now())
	})
	if err != nil {
		return nil, err
	}
	h.logger().InfoContext(ctx, "booking completed", "booking_id", res.BookingID)
	return res, nil
}

// RejectBookingHandler declines a pending request and gives its dates back.
type RejectBookingHandler struct {
	Deps
}

func (h *RejectBookingHandler) Handle(ctx context.Context, cmd RejectBookingCommand) (*BookingActionResult, error) {
	res, err := h.transition(ctx, cmd.BookingID, func(unit uow.UnitOfWork, b *domainbooking.Booking) ([]string, error) {
		if err := b.Reject(strings.TrimSpace(cmd.Reason), h.clock().Now()); err != nil {
			return nil, err
		}
		return h.releaseDates(ctx, unit, b)
	})
	if err != nil {
		return nil, err
	}
	h.logger().InfoContext(ctx, "booking rejected", "booking_id", res.BookingID, "released", len(res.ReleasedDates))
	return res, nil
}

type RecordPaymentHandler struct {
	Deps
}

func (h *RecordPaymentHandler) Handle(ctx context.Context, cmd RecordPaymentCommand) (*BookingActionResult, error) {
	res, err := h.transition(ctx, cmd.BookingID, func(_ uow.UnitOfWork, b *domainbooking.Booking) ([]string, error) {
		return nil, b.RecordPayment(cmd.Method, cmd.TransactionID, h.clock().Now())
	})
	if err != nil {
		return nil, err
	}
	h.logger().InfoContext(ctx, "payment recorded", "booking_id", res.BookingID, "method", cmd.Method)
	return res, nil
}

type AttachAddOnsHandler struct {
	Deps
}

func (h *AttachAddOnsHandler) Handle(ctx context.Context, cmd AttachAddOnsCommand) (*BookingActionResult, error) {
	res, err := h.transition(ctx, cmd.BookingID, func(_ uow.UnitOfWork, b *domainbooking.Booking) ([]string, error) {
		lines := make([]pricing.Line, 0, len(cmd.AddOns))
		for _, a := range cmd.AddOns {
			lines = append(lines, pricing.Line{
				Name:   strings.TrimSpace(a.Name),
				Amount: money.Money{Amount: a.Amount, Currency: b.Pricing.Currency()},
			})
		}
		return nil, b.AttachAddOns(lines, h.clock().Now())
	})
	if err != nil {
		return nil, err
	}
	h.logger().InfoContext(ctx, "add-ons attached", "booking_id", res.BookingID, "count", len(cmd.AddOns))
	return res, nil
}

var (
	_ commands.Handler[ConfirmBookingCommand, *BookingActionResult]  = (*ConfirmBookingHandler)(nil)
	_ commands.Handler[CompleteBookingCommand, *BookingActionResult] = (*CompleteBookingHandler)(nil)
	_ commands.Handler[RejectBookingCommand, *BookingActionResult]   = (*RejectBookingHandler)(nil)
	_ commands.Handler[RecordPaymentCommand, *BookingActionResult]   = (*RecordPaymentHandler)(nil)
	_ commands.Handler[AttachAddOnsCommand, *BookingActionResult]    = (*AttachAddOnsHandler)(nil)
)
