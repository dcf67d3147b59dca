package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"glampbook/internal/app/uow"
	domainavailability "glampbook/internal/domain/availability"
	domainbooking "glampbook/internal/domain/booking"
	"glampbook/internal/domain/property"
	"glampbook/internal/pkg/errs"
)

var (
	ErrUnitOfWorkNotConfigured = errs.New("mongo: unit of work factory missing database")
	ErrTransactionConflict     = errs.Mark(errs.New("mongo: transaction aborted by a concurrent write"), errs.ErrConflict)
)

// Factory wires Mongo transactions into the generic UnitOfWork interface.
type Factory struct {
	DB *mongo.Database

	PropertiesRepo   property.Directory
	AvailabilityRepo domainavailability.Repository
	BookingRepo      domainbooking.Repository
}

// NewFactory builds the repositories over db.
func NewFactory(db *mongo.Database) Factory {
	return Factory{
		DB:               db,
		PropertiesRepo:   NewPropertyRepository(db),
		AvailabilityRepo: NewAvailabilityRepository(db),
		BookingRepo:      NewBookingRepository(db),
	}
}

// Begin starts a session with a snapshot transaction.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, errs.Wrap(err, "mongo: start session")
	}
	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, errs.Wrap(err, "mongo: start transaction")
	}
	return &Unit{
		session:      session,
		readOnly:     opts.ReadOnly,
		properties:   f.PropertiesRepo,
		availability: f.AvailabilityRepo,
		booking:      f.BookingRepo,
	}, nil
}

type Unit struct {
	uow.Hooks

	session  mongo.Session
	readOnly bool
	ended    bool

	properties   property.Directory
	availability domainavailability.Repository
	booking      domainbooking.Repository
}

func (u *Unit) Properties() property.Directory {
	return u.properties
}

func (u *Unit) Availability() domainavailability.Repository {
	return u.availability
}

func (u *Unit) Bookings() domainbooking.Repository {
	return u.booking
}

// Commit commits the transaction. A transient abort is reported as a
// conflict so the command can be retried from scratch.
func (u *Unit) Commit(ctx context.Context) error {
	if u.ended {
		return nil
	}
	u.ended = true
	defer u.session.EndSession(context.WithoutCancel(ctx))
	if u.readOnly {
		u.DiscardHooks()
		return u.session.AbortTransaction(ctx)
	}
	if err := u.session.CommitTransaction(ctx); err != nil {
		u.DiscardHooks()
		if isWriteConflict(err) {
			return errs.Wrap(ErrTransactionConflict, err.Error())
		}
		return errs.Wrap(err, "mongo: commit")
	}
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	if u.ended {
		return nil
	}
	u.ended = true
	u.DiscardHooks()
	defer u.session.EndSession(context.WithoutCancel(ctx))
	return u.session.AbortTransaction(context.WithoutCancel(ctx))
}

// InjectContext ensures Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}

var (
	_ uow.UoWFactory = Factory{}
	_ uow.UnitOfWork = (*Unit)(nil)
	_ uow.Injector   = (*Unit)(nil)
)
