package booking

import (
	"context"
	"strings"

	"glampbook/internal/app/auth"
	"glampbook/internal/app/dto"
	"glampbook/internal/app/handlers/support"
	"glampbook/internal/app/queries"
	"glampbook/internal/app/uow"
	domainbooking "glampbook/internal/domain/booking"
	"glampbook/internal/pkg/errs"
)

const (
	getBookingKey     = "booking.get"
	listMyBookingsKey = "booking.list_mine"
)

type GetBookingQuery struct {
	BookingID string `validate:"required"`
}

func (q GetBookingQuery) Key() string { return getBookingKey }

// GetBookingHandler returns the full view to staff and the guest view to the
// owner. Anyone else gets NotFound so booking ids cannot be probed.
type GetBookingHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetBookingHandler) Handle(ctx context.Context, q GetBookingQuery) (dto.Booking, error) {
	principal, ok := auth.FromContext(ctx)
	if !ok || !principal.Authenticated() {
		return dto.Booking{}, errs.Mark(errs.New("booking: caller is not authenticated"), errs.ErrUnauthenticated)
	}
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Booking{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	id := strings.TrimSpace(q.BookingID)
	b, err := unit.Bookings().ByID(execCtx, domainbooking.ID(id))
	if err != nil {
		return dto.Booking{}, err
	}
	switch {
	case principal.IsAdmin():
		return dto.MapBooking(b), nil
	case b.OwnedBy(principal.UserID):
		return dto.MapGuestBooking(b), nil
	default:
		return dto.Booking{}, errs.Wrapf(domainbooking.ErrNotFound, "%s", id)
	}
}

type ListMyBookingsQuery struct {
	UserID string `validate:"required"`
}

func (q ListMyBookingsQuery) Key() string { return listMyBookingsKey }

type ListMyBookingsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListMyBookingsHandler) Handle(ctx context.Context, q ListMyBookingsQuery) (dto.BookingCollection, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	list, err := unit.Bookings().ListByUser(execCtx, strings.TrimSpace(q.UserID))
	if err != nil {
		return dto.BookingCollection{}, err
	}
	out := dto.BookingCollection{Items: make([]dto.Booking, 0, len(list))}
	for _, b := range list {
		out.Items = append(out.Items, dto.MapGuestBooking(b))
	}
	return out, nil
}

var (
	_ queries.Handler[GetBookingQuery, dto.Booking]               = (*GetBookingHandler)(nil)
	_ queries.Handler[ListMyBookingsQuery, dto.BookingCollection] = (*ListMyBookingsHandler)(nil)
)
