package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"glampbook/internal/app/bootstrap"
	"glampbook/internal/app/middleware"
	appoutbox "glampbook/internal/app/outbox"
	"glampbook/internal/app/policies"
	"glampbook/internal/app/reconcile"
	"glampbook/internal/domain/property"
	"glampbook/internal/infra/broker/kafka"
	"glampbook/internal/infra/config"
	mongodb "glampbook/internal/infra/db/mongo"
	"glampbook/internal/infra/fixtures"
	ginserver "glampbook/internal/infra/http/gin"
	"glampbook/internal/infra/lock"
	"glampbook/internal/infra/obs"
	"glampbook/internal/infra/outbox"
	"glampbook/internal/infra/pricing"
	"glampbook/internal/infra/storage/memory"
	"glampbook/internal/infra/validation"
)

const defaultFixturesPath = "data/properties.json"

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		obs.NewLogger(os.Getenv("APP_ENV")).Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("glampbook stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("glampbook stopped")
}

// application collects what run needs beyond the ports: background loops
// and shutdown hooks for the chosen adapters.
type application struct {
	ports   bootstrap.Ports
	checks  map[string]obs.Check
	workers []func(ctx context.Context) error
	closers []func(ctx context.Context) error
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	app := &application{checks: map[string]obs.Check{}}
	defer app.close(logger)

	producer, err := newProducer(cfg, logger)
	if err != nil {
		return err
	}
	if producer != nil {
		app.closers = append(app.closers, func(context.Context) error { return producer.Close() })
	}

	initial, maxInterval := cfg.RetryBounds()
	app.ports = bootstrap.Ports{
		Validator:   validation.New(),
		Pricing:     pricing.CalendarPricing{Clamps: pricing.LoadClampConfig(cfg.NightlyPriceClamps, logger), Logger: logger},
		Clock:       policies.SystemClock{},
		HorizonDays: cfg.HorizonDays,
		Retry: middleware.RetryPolicy{
			MaxRetries:      cfg.ConflictMaxRetries,
			InitialInterval: initial,
			MaxInterval:     maxInterval,
		},
		Logger: logger,
	}
	app.ports.Locker = app.newLocker(cfg, logger)

	switch cfg.Storage {
	case config.StorageMongo:
		err = app.wireMongo(ctx, cfg, producer, logger)
	default:
		err = app.wireMemory(cfg, producer, logger)
	}
	if err != nil {
		return err
	}

	app.workers = append(app.workers, (&reconcile.Worker{
		Store:       app.ports.Reconcile,
		Users:       app.ports.Users,
		Ledger:      app.ports.Ledger,
		Interval:    cfg.ReconcileInterval,
		BaseBackoff: cfg.ReconcileInterval,
		Logger:      logger,
	}).Run)

	buses := bootstrap.Build(app.ports)
	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Checks: app.checks}, ginserver.Handlers{
		Availability:      ginserver.AvailabilityHandler{Queries: buses.Queries, Logger: logger},
		AdminAvailability: ginserver.AdminAvailabilityHandler{Commands: buses.Commands, Logger: logger},
		Booking:           ginserver.BookingHandler{Commands: buses.Commands, Queries: buses.Queries, Logger: logger},
		AdminBooking:      ginserver.AdminBookingHandler{Commands: buses.Commands, Logger: logger},
		Me:                ginserver.MeHandler{Queries: buses.Queries, Logger: logger},
	})

	var wg sync.WaitGroup
	for _, work := range app.workers {
		wg.Add(1)
		go func(work func(context.Context) error) {
			defer wg.Done()
			if err := work(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("background worker stopped", "error", err)
			}
		}(work)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.Storage)
	err = server.ListenAndServe()
	cancel()
	wg.Wait()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newProducer(cfg config.Config, logger *slog.Logger) (*kafka.Producer, error) {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("kafka not configured, domain events stay local")
		return nil, nil
	}
	producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
	if err != nil {
		return nil, err
	}
	logger.Info("kafka producer ready", "brokers", cfg.KafkaBrokers)
	return producer, nil
}

func (a *application) newLocker(cfg config.Config, logger *slog.Logger) middleware.Locker {
	if cfg.RedisAddr == "" {
		logger.Info("using in-process property locks")
		return lock.NewKeyedLocker()
	}
	client := lock.NewRedisClient(cfg.RedisAddr)
	a.checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	a.closers = append(a.closers, func(context.Context) error { return client.Close() })
	logger.Info("using redis property locks", "addr", cfg.RedisAddr)
	return &lock.RedisLocker{Client: client, Prefix: "glampbook:lock:", TTL: cfg.LockTTL, Wait: cfg.LockWait}
}

func (a *application) wireMemory(cfg config.Config, producer *kafka.Producer, logger *slog.Logger) error {
	store := memory.NewStore()
	for _, p := range loadFixtures(cfg, logger) {
		store.PutProperty(p)
	}
	var publisher appoutbox.Publisher
	if producer != nil {
		publisher = outbox.Relay{Producer: producer, TopicPrefix: cfg.KafkaTopicPrefix}
	}
	a.ports.UoW = store
	a.ports.Outbox = memory.NewOutbox(store, publisher)
	a.ports.Idempotency = memory.NewIdempotencyStore()
	a.ports.Users = memory.NewUserHistory()
	a.ports.Ledger = memory.NewPaymentLedger()
	a.ports.Reconcile = memory.NewReconcileStore()
	return nil
}

func (a *application) wireMongo(ctx context.Context, cfg config.Config, producer *kafka.Producer, logger *slog.Logger) error {
	client, err := mongodb.New(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, client.Close)
	a.checks["mongo"] = client.Ping

	db := client.DB
	props := mongodb.NewPropertyRepository(db)
	for _, p := range loadFixtures(cfg, logger) {
		if err := props.Upsert(ctx, p); err != nil {
			logger.Error("cannot store fixture property", "property_id", p.ID, "error", err)
		}
	}
	bookings := mongodb.NewBookingRepository(db)
	if err := bookings.EnsureIndexes(ctx); err != nil {
		return err
	}
	outboxStore, err := outbox.NewStore(ctx, db)
	if err != nil {
		return err
	}
	idempotency, err := mongodb.NewIdempotencyStore(ctx, db, cfg.IdempotencyTTL)
	if err != nil {
		return err
	}
	reconcileStore, err := mongodb.NewReconcileStore(ctx, db)
	if err != nil {
		return err
	}

	a.ports.UoW = mongodb.Factory{
		DB:               db,
		PropertiesRepo:   props,
		AvailabilityRepo: mongodb.NewAvailabilityRepository(db),
		BookingRepo:      bookings,
	}
	a.ports.Outbox = outboxStore
	a.ports.Idempotency = idempotency
	a.ports.Users = mongodb.NewUserHistory(db)
	a.ports.Ledger = mongodb.NewPaymentLedger(db)
	a.ports.Reconcile = reconcileStore

	if producer == nil {
		logger.Warn("outbox relay disabled, events accumulate in the outbox collection")
		return nil
	}
	a.workers = append(a.workers, (&outbox.Worker{
		Store:       outboxStore,
		Producer:    producer,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		ID:          "glampbook-" + uuid.NewString(),
		Backoff:     cfg.OutboxBackoff,
		Logger:      logger,
	}).Run)
	return nil
}

func loadFixtures(cfg config.Config, logger *slog.Logger) []*property.Property {
	path := cfg.PropertyFixtures
	if path == "" {
		path = defaultFixturesPath
	}
	props, skipped, err := fixtures.LoadProperties(path, time.Now())
	if err != nil {
		logger.Warn("property fixtures load failed", "path", path, "error", err)
		return nil
	}
	for id, reason := range skipped {
		logger.Error("fixture invalid", "property_id", id, "error", reason)
	}
	logger.Info("property fixtures loaded", "path", path, "count", len(props))
	return props
}

func (a *application) close(logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			logger.Warn("shutdown hook failed", "error", err)
		}
	}
}
