package availability

import (
	"context"
	"log/slog"

	"glampbook/internal/app/outbox"
	"glampbook/internal/app/policies"
	"glampbook/internal/app/uow"
	domainavailability "glampbook/internal/domain/availability"
)

// Deps are shared by the calendar command handlers.
type Deps struct {
	Outbox      outbox.Outbox
	Encoder     outbox.EventEncoder
	Clock       policies.Clock
	HorizonDays int
	Logger      *slog.Logger
}

func (d Deps) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

// save persists the record and moves its events to the outbox in the same
// unit of work.
func (d Deps) save(ctx context.Context, unit uow.UnitOfWork, rec *domainavailability.Record) error {
	if err := unit.Availability().Save(ctx, rec); err != nil {
		return err
	}
	return outbox.RecordFrom(ctx, d.Outbox, d.Encoder, rec)
}

func lockKey(propertyID string) string {
	return "property:" + propertyID
}
