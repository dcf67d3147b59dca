package booking

import (
	"context"
	"log/slog"

	"glampbook/internal/app/outbox"
	"glampbook/internal/app/policies"
	"glampbook/internal/app/reconcile"
	"glampbook/internal/app/uow"
	domainavailability "glampbook/internal/domain/availability"
	domainbooking "glampbook/internal/domain/booking"
	"glampbook/internal/pkg/errs"
)

// Deps are shared by the booking command handlers.
type Deps struct {
	Outbox      outbox.Outbox
	Encoder     outbox.EventEncoder
	Clock       policies.Clock
	Users       policies.UserDirectory
	Ledger      policies.PaymentLedger
	Reconcile   *reconcile.Log
	HorizonDays int
	Logger      *slog.Logger
}

func (d Deps) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

func (d Deps) clock() policies.Clock {
	return policies.Or(d.Clock)
}

func (d Deps) saveBooking(ctx context.Context, unit uow.UnitOfWork, b *domainbooking.Booking) error {
	if err := unit.Bookings().Save(ctx, b); err != nil {
		return err
	}
	return outbox.RecordFrom(ctx, d.Outbox, d.Encoder, b)
}

// releaseDates gives the booking's nights back to the calendar in the same
// unit of work as the status change.
func (d Deps) releaseDates(ctx context.Context, unit uow.UnitOfWork, b *domainbooking.Booking) ([]string, error) {
	rec, err := unit.Availability().Get(ctx, b.PropertyID)
	if err != nil {
		if errs.Is(err, domainavailability.ErrRecordNotFound) {
			d.logger().WarnContext(ctx, "no calendar to release booking from", "booking_id", b.ID, "property_id", b.PropertyID)
			return nil, nil
		}
		return nil, err
	}
	reopened, err := rec.ReleaseBooking(b.Range, string(b.ID), d.clock().Now())
	if err != nil {
		return nil, err
	}
	if err := unit.Availability().Save(ctx, rec); err != nil {
		return nil, err
	}
	if err := outbox.RecordFrom(ctx, d.Outbox, d.Encoder, rec); err != nil {
		return nil, err
	}
	return reopened, nil
}

func (d Deps) partialFailure(ctx context.Context, f reconcile.Failure, cause error) {
	if d.Reconcile == nil {
		d.logger().WarnContext(ctx, "secondary write failed", "kind", f.Kind, "booking_id", f.BookingID, "error", cause)
		return
	}
	d.Reconcile.Record(ctx, f, cause)
}
