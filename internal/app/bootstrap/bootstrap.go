// Package bootstrap assembles the command and query buses from storage and
// collaborator ports. Adapters are chosen by the caller.
package bootstrap

import (
	"log/slog"

	"glampbook/internal/app/commands"
	availabilityapp "glampbook/internal/app/handlers/availability"
	bookingapp "glampbook/internal/app/handlers/booking"
	"glampbook/internal/app/middleware"
	"glampbook/internal/app/outbox"
	"glampbook/internal/app/policies"
	"glampbook/internal/app/queries"
	"glampbook/internal/app/reconcile"
	"glampbook/internal/app/uow"
)

type Ports struct {
	UoW         uow.UoWFactory
	Outbox      outbox.Outbox
	Idempotency middleware.IdempotencyStore
	Locker      middleware.Locker
	Validator   middleware.Validator
	Pricing     policies.PricingPort
	Users       policies.UserDirectory
	Ledger      policies.PaymentLedger
	Reconcile   reconcile.Store
	Clock       policies.Clock
	HorizonDays int
	Retry       middleware.RetryPolicy
	Logger      *slog.Logger
}

type Buses struct {
	Commands commands.Bus
	Queries  queries.Bus
}

// Build registers every handler and wraps the buses, outermost first:
// validation, authorization, idempotency, retry, outbox flush, property
// lock, transaction.
func Build(p Ports) Buses {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	encoder := outbox.JSONEventEncoder{}
	calendarDeps := availabilityapp.Deps{
		Outbox:      p.Outbox,
		Encoder:     encoder,
		Clock:       p.Clock,
		HorizonDays: p.HorizonDays,
		Logger:      logger,
	}
	bookingDeps := bookingapp.Deps{
		Outbox:      p.Outbox,
		Encoder:     encoder,
		Clock:       p.Clock,
		Users:       p.Users,
		Ledger:      p.Ledger,
		Reconcile:   &reconcile.Log{Store: p.Reconcile, Logger: logger},
		HorizonDays: p.HorizonDays,
		Logger:      logger,
	}

	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler(commandBus, &availabilityapp.InitializeCalendarHandler{Deps: calendarDeps})
	commands.RegisterHandler(commandBus, &availabilityapp.SetDateStatusHandler{Deps: calendarDeps})
	commands.RegisterHandler(commandBus, &availabilityapp.SetDateRangeStatusHandler{Deps: calendarDeps})
	commands.RegisterHandler(commandBus, &availabilityapp.AddBlockedRangeHandler{Deps: calendarDeps})
	commands.RegisterHandler(commandBus, &availabilityapp.RemoveBlockedRangeHandler{Deps: calendarDeps})
	commands.RegisterHandler(commandBus, &bookingapp.CreateBookingHandler{Deps: bookingDeps, Pricing: p.Pricing})
	commands.RegisterHandler(commandBus, &bookingapp.CancelBookingHandler{Deps: bookingDeps})
	commands.RegisterHandler(commandBus, &bookingapp.GuestCancelBookingHandler{Deps: bookingDeps})
	commands.RegisterHandler(commandBus, &bookingapp.ConfirmBookingHandler{Deps: bookingDeps})
	commands.RegisterHandler(commandBus, &bookingapp.CompleteBookingHandler{Deps: bookingDeps})
	commands.RegisterHandler(commandBus, &bookingapp.RejectBookingHandler{Deps: bookingDeps})
	commands.RegisterHandler(commandBus, &bookingapp.RecordPaymentHandler{Deps: bookingDeps})
	commands.RegisterHandler(commandBus, &bookingapp.AttachAddOnsHandler{Deps: bookingDeps})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, &availabilityapp.GetCalendarHandler{UoWFactory: p.UoW, Clock: p.Clock})
	queries.RegisterHandler(queryBus, &availabilityapp.CheckAvailabilityHandler{UoWFactory: p.UoW})
	queries.RegisterHandler(queryBus, &bookingapp.GetBookingHandler{UoWFactory: p.UoW})
	queries.RegisterHandler(queryBus, &bookingapp.ListMyBookingsHandler{UoWFactory: p.UoW})

	authz := middleware.RoleAuthorizer{}
	return Buses{
		Commands: middleware.ChainCommands(
			commandBus,
			middleware.Validation(p.Validator),
			middleware.Authorization(authz),
			middleware.Idempotency(p.Idempotency, nil),
			middleware.Retry(p.Retry, logger),
			middleware.OutboxFlush(p.Outbox, logger),
			middleware.PropertyLock(p.Locker, logger),
			middleware.Transaction(p.UoW, nil),
		),
		Queries: middleware.ChainQueries(
			queryBus,
			middleware.QueryValidation(p.Validator),
			middleware.QueryAuthorization(authz),
		),
	}
}
