package memory

import (
	"context"
	"sync"

	"glampbook/internal/app/outbox"
	"glampbook/internal/app/uow"
	domainavailability "glampbook/internal/domain/availability"
	domainbooking "glampbook/internal/domain/booking"
	"glampbook/internal/domain/property"
	"glampbook/internal/pkg/errs"
)

var (
	ErrReadOnlyUnit = errs.New("memory: write attempted in read-only unit of work")
	ErrUnitClosed   = errs.New("memory: unit of work already finished")
)

// Store keeps every aggregate in process memory. Units stage copies and
// Commit applies them atomically after checking versions, which gives the
// same optimistic concurrency contract as the Mongo adapter.
type Store struct {
	mu         sync.RWMutex
	properties map[property.ID]*property.Property
	calendars  map[property.ID]*domainavailability.Record
	bookings   map[domainbooking.ID]*domainbooking.Booking
	events     []outbox.EventRecord
}

func NewStore() *Store {
	return &Store{
		properties: make(map[property.ID]*property.Property),
		calendars:  make(map[property.ID]*domainavailability.Record),
		bookings:   make(map[domainbooking.ID]*domainbooking.Booking),
	}
}

// PutProperty seeds the read-only property directory.
func (s *Store) PutProperty(p *property.Property) {
	if p == nil {
		return
	}
	cp := *p
	s.mu.Lock()
	s.properties[p.ID] = &cp
	s.mu.Unlock()
}

// Begin implements uow.UoWFactory.
func (s *Store) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	return &Unit{
		store:     s,
		readOnly:  opts.ReadOnly,
		calendars: make(map[property.ID]stagedCalendar),
		bookings:  make(map[domainbooking.ID]stagedBooking),
	}, nil
}

type stagedCalendar struct {
	expected int64
	record   *domainavailability.Record
}

type stagedBooking struct {
	expected int64
	booking  *domainbooking.Booking
}

// Unit is a snapshot-free unit of work: reads see committed state plus the
// unit's own staged writes.
type Unit struct {
	uow.Hooks

	store    *Store
	readOnly bool

	mu        sync.Mutex
	done      bool
	calendars map[property.ID]stagedCalendar
	bookings  map[domainbooking.ID]stagedBooking
	events    []outbox.EventRecord
}

func (u *Unit) Properties() property.Directory {
	return propertyDirectory{store: u.store}
}

func (u *Unit) Availability() domainavailability.Repository {
	return calendarRepository{unit: u}
}

func (u *Unit) Bookings() domainbooking.Repository {
	return bookingRepository{unit: u}
}

func (u *Unit) stageEvent(rec outbox.EventRecord) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return ErrUnitClosed
	}
	u.events = append(u.events, rec)
	return nil
}

func (u *Unit) writable() error {
	if u.readOnly {
		return ErrReadOnlyUnit
	}
	if u.done {
		return ErrUnitClosed
	}
	return nil
}

// Commit verifies every staged version against the store and applies all
// writes, or none of them.
func (u *Unit) Commit(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return ErrUnitClosed
	}
	u.done = true

	s := u.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, staged := range u.calendars {
		var current int64
		if rec, ok := s.calendars[id]; ok {
			current = rec.Version
		}
		if current != staged.expected {
			u.DiscardHooks()
			return errs.Wrapf(domainavailability.ErrConcurrentUpdate, "calendar %s at version %d, expected %d", id, current, staged.expected)
		}
	}
	for id, staged := range u.bookings {
		var current int64
		if b, ok := s.bookings[id]; ok {
			current = b.Version
		}
		if current != staged.expected {
			u.DiscardHooks()
			return errs.Wrapf(domainbooking.ErrConcurrentUpdate, "booking %s at version %d, expected %d", id, current, staged.expected)
		}
	}
	for id, staged := range u.calendars {
		s.calendars[id] = staged.record
	}
	for id, staged := range u.bookings {
		s.bookings[id] = staged.booking
	}
	s.events = append(s.events, u.events...)
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return nil
	}
	u.done = true
	u.calendars = nil
	u.bookings = nil
	u.events = nil
	u.DiscardHooks()
	return nil
}

var (
	_ uow.UoWFactory = (*Store)(nil)
	_ uow.UnitOfWork = (*Unit)(nil)
)
