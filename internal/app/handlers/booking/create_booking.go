package booking

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"glampbook/internal/app/commands"
	"glampbook/internal/app/handlers/support"
	"glampbook/internal/app/middleware"
	"glampbook/internal/app/outbox"
	"glampbook/internal/app/policies"
	"glampbook/internal/app/reconcile"
	"glampbook/internal/app/uow"
	domainavailability "glampbook/internal/domain/availability"
	domainbooking "glampbook/internal/domain/booking"
	"glampbook/internal/domain/property"
	"glampbook/internal/domain/shared/daterange"
	"glampbook/internal/domain/shared/money"
	"glampbook/internal/pkg/errs"
)

const createBookingKey = "booking.create"

type GuestsInput struct {
	Adults   int `json:"adults" validate:"min=1"`
	Children int `json:"children" validate:"min=0"`
	Infants  int `json:"infants" validate:"min=0"`
	Pets     int `json:"pets" validate:"min=0"`
}

type CreateBookingCommand struct {
	BookingID       string
	PropertyID      string    `validate:"required"`
	UserID          string    `validate:"required"`
	CheckIn         time.Time `validate:"required"`
	CheckOut        time.Time `validate:"required,gtfield=CheckIn"`
	Guests          GuestsInput
	Notes           string `validate:"max=1000"`
	IdempotencyKeyV string
}

func (c CreateBookingCommand) Key() string            { return createBookingKey }
func (c CreateBookingCommand) LockKey() string        { return "property:" + c.PropertyID }
func (c CreateBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }
func (c CreateBookingCommand) ResultPrototype() any   { return &CreateBookingResult{} }

type CreateBookingResult struct {
	BookingID string      `json:"booking_id"`
	Status    string      `json:"status"`
	CheckIn   string      `json:"check_in"`
	CheckOut  string      `json:"check_out"`
	Total     money.Money `json:"total"`
}

// CreateBookingHandler is the booking orchestrator. Property lookup, the
// availability check, the booking insert and the calendar hold all run in
// the caller's unit of work; the history append runs after commit.
type CreateBookingHandler struct {
	Deps
	Pricing policies.PricingPort
}

func (h *CreateBookingHandler) Handle(ctx context.Context, cmd CreateBookingCommand) (*CreateBookingResult, error) {
	unit, err := uow.Require(ctx)
	if err != nil {
		return nil, err
	}
	now := h.clock().Now()

	prop, err := support.RequireProperty(ctx, unit, property.ID(strings.TrimSpace(cmd.PropertyID)))
	if err != nil {
		return nil, err
	}
	dr, err := daterange.New(cmd.CheckIn, cmd.CheckOut)
	if err != nil {
		return nil, err
	}

	calendar, _, err := support.LoadOrInitializeCalendar(ctx, unit, prop.ID, h.HorizonDays, now)
	if err != nil {
		return nil, err
	}
	if !calendar.IsRangeAvailable(dr) {
		h.logger().InfoContext(ctx, "booking rejected, dates unavailable", "property_id", prop.ID, "range", dr.String())
		return nil, errs.Wrapf(domainavailability.ErrRangeUnavailable, "%s", dr)
	}

	guests := domainbooking.Guests{
		Adults:   cmd.Guests.Adults,
		Children: cmd.Guests.Children,
		Infants:  cmd.Guests.Infants,
		Pets:     cmd.Guests.Pets,
	}
	if !prop.Fits(guests.Adults, guests.Children) {
		return nil, errs.Wrapf(domainbooking.ErrCapacityExceeded, "%d guests, max %d", guests.Headcount(), prop.MaxGuests)
	}
	if minStay := calendar.MinimumStayOn(daterange.DayKey(dr.CheckIn)); minStay > dr.Nights() {
		return nil, errs.Wrapf(domainbooking.ErrMinimumStay, "%d nights, minimum %d", dr.Nights(), minStay)
	}

	price, err := h.Pricing.Quote(ctx, prop, calendar, dr)
	if err != nil {
		return nil, err
	}

	id := strings.TrimSpace(cmd.BookingID)
	if id == "" {
		id = uuid.NewString()
	}
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:         domainbooking.ID(id),
		PropertyID: prop.ID,
		UserID:     strings.TrimSpace(cmd.UserID),
		Range:      dr,
		Guests:     guests,
		Pricing:    price,
		Notes:      domainbooking.Notes{Public: strings.TrimSpace(cmd.Notes)},
		CreatedAt:  now,
	})
	if err != nil {
		return nil, err
	}
	if err := h.saveBooking(ctx, unit, b); err != nil {
		return nil, err
	}

	if err := calendar.MarkBooked(dr, string(b.ID), now); err != nil {
		return nil, err
	}
	if err := unit.Availability().Save(ctx, calendar); err != nil {
		return nil, err
	}
	if err := outbox.RecordFrom(ctx, h.Outbox, h.Encoder, calendar); err != nil {
		return nil, err
	}

	userID, bookingID := b.UserID, b.ID
	unit.AfterCommit(func(ctx context.Context) {
		h.appendHistory(ctx, userID, bookingID)
	})

	h.logger().InfoContext(ctx, "booking created", "booking_id", b.ID, "property_id", prop.ID, "user_id", b.UserID, "range", dr.String(), "total", b.Pricing.Total.Amount)
	return &CreateBookingResult{
		BookingID: string(b.ID),
		Status:    string(b.Status),
		CheckIn:   daterange.DayKey(dr.CheckIn),
		CheckOut:  daterange.DayKey(dr.CheckOut),
		Total:     b.Pricing.Total,
	}, nil
}

func (h *CreateBookingHandler) appendHistory(ctx context.Context, userID string, bookingID domainbooking.ID) {
	if h.Users == nil {
		return
	}
	if err := h.Users.AppendBookingToHistory(ctx, userID, bookingID); err != nil {
		h.partialFailure(ctx, reconcile.Failure{
			Kind:      reconcile.KindUserHistory,
			BookingID: string(bookingID),
			UserID:    userID,
		}, err)
	}
}

var (
	_ commands.Handler[CreateBookingCommand, *CreateBookingResult] = (*CreateBookingHandler)(nil)
	_ middleware.IdempotentCommand                                 = CreateBookingCommand{}
	_ middleware.LockScoped                                        = CreateBookingCommand{}
)
