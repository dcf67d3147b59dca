package availability

import (
	"context"
	"strings"
	"time"

	"glampbook/internal/app/dto"
	"glampbook/internal/app/handlers/support"
	"glampbook/internal/app/policies"
	"glampbook/internal/app/queries"
	"glampbook/internal/app/uow"
	domainavailability "glampbook/internal/domain/availability"
	"glampbook/internal/domain/property"
	"glampbook/internal/domain/shared/daterange"
	"glampbook/internal/pkg/errs"
)

const (
	getCalendarKey       = "availability.calendar"
	checkAvailabilityKey = "availability.check"

	defaultCalendarWindowDays = 30
	maxCalendarWindowDays     = 400
)

var ErrWindowTooLarge = errs.Mark(errs.New("availability: calendar window is too large"), errs.ErrInvalidInput)

type GetCalendarQuery struct {
	PropertyID string `validate:"required"`
	From       string `validate:"omitempty,datetime=2006-01-02"`
	To         string `validate:"omitempty,datetime=2006-01-02"`
}

func (q GetCalendarQuery) Key() string { return getCalendarKey }

type GetCalendarHandler struct {
	UoWFactory uow.UoWFactory
	Clock      policies.Clock
}

// Handle returns the day-by-day view for [From, To). Defaults to the next
// 30 days.
func (h *GetCalendarHandler) Handle(ctx context.Context, q GetCalendarQuery) (dto.Calendar, error) {
	window, err := h.window(q)
	if err != nil {
		return dto.Calendar{}, err
	}
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Calendar{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	rec, err := unit.Availability().Get(execCtx, property.ID(strings.TrimSpace(q.PropertyID)))
	if err != nil {
		return dto.Calendar{}, err
	}
	return dto.MapCalendar(rec, window), nil
}

func (h *GetCalendarHandler) window(q GetCalendarQuery) (daterange.DateRange, error) {
	from := daterange.Day(policies.Or(h.Clock).Now())
	if q.From != "" {
		parsed, err := daterange.ParseDay(q.From)
		if err != nil {
			return daterange.DateRange{}, err
		}
		from = parsed
	}
	to := from.AddDate(0, 0, defaultCalendarWindowDays)
	if q.To != "" {
		parsed, err := daterange.ParseDay(q.To)
		if err != nil {
			return daterange.DateRange{}, err
		}
		to = parsed
	}
	window, err := daterange.New(from, to)
	if err != nil {
		return daterange.DateRange{}, err
	}
	if window.Nights() > maxCalendarWindowDays {
		return daterange.DateRange{}, ErrWindowTooLarge
	}
	return window, nil
}

type CheckAvailabilityQuery struct {
	PropertyID string    `validate:"required"`
	CheckIn    time.Time `validate:"required"`
	CheckOut   time.Time `validate:"required,gtfield=CheckIn"`
}

func (q CheckAvailabilityQuery) Key() string { return checkAvailabilityKey }

// CheckAvailabilityHandler is read-only: a property without a calendar is
// reported as NotFound, never lazily created.
type CheckAvailabilityHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *CheckAvailabilityHandler) Handle(ctx context.Context, q CheckAvailabilityQuery) (dto.AvailabilityCheck, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.AvailabilityCheck{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	id := property.ID(strings.TrimSpace(q.PropertyID))
	svc := domainavailability.QueryService{Repo: unit.Availability()}
	ok, err := svc.IsRangeAvailable(execCtx, id, q.CheckIn, q.CheckOut)
	if err != nil {
		return dto.AvailabilityCheck{}, err
	}
	dr, _ := daterange.New(q.CheckIn, q.CheckOut)
	return dto.AvailabilityCheck{
		PropertyID: string(id),
		CheckIn:    daterange.DayKey(dr.CheckIn),
		CheckOut:   daterange.DayKey(dr.CheckOut),
		Nights:     dr.Nights(),
		Available:  ok,
	}, nil
}

var (
	_ queries.Handler[GetCalendarQuery, dto.Calendar]                = (*GetCalendarHandler)(nil)
	_ queries.Handler[CheckAvailabilityQuery, dto.AvailabilityCheck] = (*CheckAvailabilityHandler)(nil)
)
