package availability

import (
	"context"
	"strings"

	"glampbook/internal/app/auth"
	"glampbook/internal/app/commands"
	"glampbook/internal/app/dto"
	"glampbook/internal/app/handlers/support"
	"glampbook/internal/app/middleware"
	"glampbook/internal/app/policies"
	"glampbook/internal/app/uow"
	domainavailability "glampbook/internal/domain/availability"
	"glampbook/internal/domain/property"
	"glampbook/internal/domain/shared/daterange"
)

const (
	initializeCalendarKey = "availability.initialize"
	setDateStatusKey      = "availability.set_date"
	setDateRangeStatusKey = "availability.set_dates"
	addBlockedRangeKey    = "availability.block"
	removeBlockedRangeKey = "availability.unblock"
)

type InitializeCalendarCommand struct {
	PropertyID string `validate:"required"`
}

func (c InitializeCalendarCommand) Key() string          { return initializeCalendarKey }
func (c InitializeCalendarCommand) LockKey() string      { return lockKey(c.PropertyID) }
func (c InitializeCalendarCommand) RequiredRole() string { return auth.RoleAdmin }

type SetDateStatusCommand struct {
	PropertyID  string  `validate:"required"`
	Date        string  `validate:"required,datetime=2006-01-02"`
	IsAvailable *bool   `validate:"required_without_all=Price MinimumStay Notes"`
	Price       *int64  `validate:"omitempty,min=0"`
	MinimumStay *int    `validate:"omitempty,min=1"`
	Notes       *string `validate:"omitempty,max=500"`
}

func (c SetDateStatusCommand) Key() string          { return setDateStatusKey }
func (c SetDateStatusCommand) LockKey() string      { return lockKey(c.PropertyID) }
func (c SetDateStatusCommand) RequiredRole() string { return auth.RoleAdmin }

type DayUpdate struct {
	IsAvailable *bool   `json:"is_available"`
	Price       *int64  `json:"price" validate:"omitempty,min=0"`
	MinimumStay *int    `json:"minimum_stay" validate:"omitempty,min=1"`
	Notes       *string `json:"notes" validate:"omitempty,max=500"`
}

func (u DayUpdate) patch() domainavailability.DayPatch {
	return domainavailability.DayPatch{
		IsAvailable: u.IsAvailable,
		Price:       u.Price,
		MinimumStay: u.MinimumStay,
		Notes:       u.Notes,
	}
}

type SetDateRangeStatusCommand struct {
	PropertyID string               `validate:"required"`
	Updates    map[string]DayUpdate `validate:"required,min=1,max=400,dive,keys,datetime=2006-01-02,endkeys"`
}

func (c SetDateRangeStatusCommand) Key() string          { return setDateRangeStatusKey }
func (c SetDateRangeStatusCommand) LockKey() string      { return lockKey(c.PropertyID) }
func (c SetDateRangeStatusCommand) RequiredRole() string { return auth.RoleAdmin }

type AddBlockedRangeCommand struct {
	PropertyID string `validate:"required"`
	StartDate  string `validate:"required,datetime=2006-01-02"`
	EndDate    string `validate:"required,datetime=2006-01-02"`
	Reason     string `validate:"max=200"`
}

func (c AddBlockedRangeCommand) Key() string          { return addBlockedRangeKey }
func (c AddBlockedRangeCommand) LockKey() string      { return lockKey(c.PropertyID) }
func (c AddBlockedRangeCommand) RequiredRole() string { return auth.RoleAdmin }

type RemoveBlockedRangeCommand struct {
	PropertyID string `validate:"required"`
	StartDate  string `validate:"required,datetime=2006-01-02"`
	EndDate    string `validate:"required,datetime=2006-01-02"`
}

func (c RemoveBlockedRangeCommand) Key() string          { return removeBlockedRangeKey }
func (c RemoveBlockedRangeCommand) LockKey() string      { return lockKey(c.PropertyID) }
func (c RemoveBlockedRangeCommand) RequiredRole() string { return auth.RoleAdmin }

// InitializeCalendarHandler creates the calendar if it is missing. An
// existing calendar is returned untouched.
type InitializeCalendarHandler struct {
	Deps
}

func (h *InitializeCalendarHandler) Handle(ctx context.Context, cmd InitializeCalendarCommand) (*dto.CalendarChange, error) {
	unit, err := uow.Require(ctx)
	if err != nil {
		return nil, err
	}
	id := property.ID(strings.TrimSpace(cmd.PropertyID))
	if _, err := support.RequireProperty(ctx, unit, id); err != nil {
		return nil, err
	}
	now := policies.Or(h.Clock).Now()
	rec, created, err := support.LoadOrInitializeCalendar(ctx, unit, id, h.HorizonDays, now)
	if err != nil {
		return nil, err
	}
	if created {
		if err := h.save(ctx, unit, rec); err != nil {
			return nil, err
		}
		h.logger().InfoContext(ctx, "calendar initialized", "property_id", id, "days", len(rec.Dates))
	}
	result := dto.MapCalendarChange(rec, created)
	return &result, nil
}

type SetDateStatusHandler struct {
	Deps
}

func (h *SetDateStatusHandler) Handle(ctx context.Context, cmd SetDateStatusCommand) (*dto.CalendarChange, error) {
	patch := DayUpdate{IsAvailable: cmd.IsAvailable, Price: cmd.Price, MinimumStay: cmd.MinimumStay, Notes: cmd.Notes}
	return h.mutate(ctx, cmd.PropertyID, "date status set", func(rec *domainavailability.Record) error {
		return rec.SetDateStatus(cmd.Date, patch.patch(), policies.Or(h.Clock).Now())
	})
}

type SetDateRangeStatusHandler struct {
	Deps
}

func (h *SetDateRangeStatusHandler) Handle(ctx context.Context, cmd SetDateRangeStatusCommand) (*dto.CalendarChange, error) {
	patches := make(map[string]domainavailability.DayPatch, len(cmd.Updates))
	for day, update := range cmd.Updates {
		patches[day] = update.patch()
	}
	return h.mutate(ctx, cmd.PropertyID, "date range status set", func(rec *domainavailability.Record) error {
		return rec.SetDateRangeStatus(patches, policies.Or(h.Clock).Now())
	})
}

type AddBlockedRangeHandler struct {
	Deps
}

func (h *AddBlockedRangeHandler) Handle(ctx context.Context, cmd AddBlockedRangeCommand) (*dto.CalendarChange, error) {
	dr, err := daterange.FromKeys(cmd.StartDate, cmd.EndDate)
	if err != nil {
		return nil, err
	}
	return h.mutate(ctx, cmd.PropertyID, "blocked range added", func(rec *domainavailability.Record) error {
		return rec.AddBlockedRange(dr, cmd.Reason, policies.Or(h.Clock).Now())
	})
}

type RemoveBlockedRangeHandler struct {
	Deps
}

func (h *RemoveBlockedRangeHandler) Handle(ctx context.Context, cmd RemoveBlockedRangeCommand) (*dto.CalendarChange, error) {
	dr, err := daterange.FromKeys(cmd.StartDate, cmd.EndDate)
	if err != nil {
		return nil, err
	}
	return h.mutate(ctx, cmd.PropertyID, "blocked range removed", func(rec *domainavailability.Record) error {
		return rec.RemoveBlockedRange(dr, policies.Or(h.Clock).Now())
	})
}

// mutate runs an admin calendar edit: load or lazily create the record,
// apply fn, persist.
func (d Deps) mutate(ctx context.Context, rawID, msg string, fn func(rec *domainavailability.Record) error) (*dto.CalendarChange, error) {
	unit, err := uow.Require(ctx)
	if err != nil {
		return nil, err
	}
	id := property.ID(strings.TrimSpace(rawID))
	if _, err := support.RequireProperty(ctx, unit, id); err != nil {
		return nil, err
	}
	rec, created, err := support.LoadOrInitializeCalendar(ctx, unit, id, d.HorizonDays, policies.Or(d.Clock).Now())
	if err != nil {
		return nil, err
	}
	if err := fn(rec); err != nil {
		return nil, err
	}
	if err := d.save(ctx, unit, rec); err != nil {
		return nil, err
	}
	d.logger().InfoContext(ctx, msg, "property_id", id, "version", rec.Version, "initialized", created)
	result := dto.MapCalendarChange(rec, created)
	return &result, nil
}

var (
	_ commands.Handler[InitializeCalendarCommand, *dto.CalendarChange] = (*InitializeCalendarHandler)(nil)
	_ commands.Handler[SetDateStatusCommand, *dto.CalendarChange]      = (*SetDateStatusHandler)(nil)
	_ commands.Handler[SetDateRangeStatusCommand, *dto.CalendarChange] = (*SetDateRangeStatusHandler)(nil)
	_ commands.Handler[AddBlockedRangeCommand, *dto.CalendarChange]    = (*AddBlockedRangeHandler)(nil)
	_ commands.Handler[RemoveBlockedRangeCommand, *dto.CalendarChange] = (*RemoveBlockedRangeHandler)(nil)
	_ middleware.LockScoped                                            = AddBlockedRangeCommand{}
	_ middleware.RoleRestricted                                        = AddBlockedRangeCommand{}
)
