package support

import (
	"context"
	"time"

	"glampbook/internal/app/uow"
	"glampbook/internal/domain/availability"
	"glampbook/internal/domain/property"
	"glampbook/internal/pkg/errs"
)

// LoadOrInitializeCalendar returns the property's calendar, creating it with
// horizonDays open days from now when it does not exist yet. The new record
// is only persisted by the caller's Save.
func LoadOrInitializeCalendar(ctx context.Context, unit uow.UnitOfWork, id property.ID, horizonDays int, now time.Time) (*availability.Record, bool, error) {
	rec, err := unit.Availability().Get(ctx, id)
	if err == nil {
		return rec, false, nil
	}
	if !errs.Is(err, availability.ErrRecordNotFound) {
		return nil, false, err
	}
	if horizonDays <= 0 {
		horizonDays = availability.DefaultHorizonDays
	}
	rec, err = availability.Initialize(id, now, horizonDays, now)
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

// RequireProperty loads the property or fails with property.ErrNotFound.
func RequireProperty(ctx context.Context, unit uow.UnitOfWork, id property.ID) (*property.Property, error) {
	p, err := unit.Properties().ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, errs.Wrapf(property.ErrNotFound, "property %s is inactive", id)
	}
	return p, nil
}
