package memory

import (
	"context"
	"sort"

	domainavailability "glampbook/internal/domain/availability"
	domainbooking "glampbook/internal/domain/booking"
	"glampbook/internal/domain/property"
	"glampbook/internal/pkg/errs"
)

type propertyDirectory struct {
	store *Store
}

func (d propertyDirectory) ByID(ctx context.Context, id property.ID) (*property.Property, error) {
	d.store.mu.RLock()
	defer d.store.mu.RUnlock()
	p, ok := d.store.properties[id]
	if !ok {
		return nil, errs.Wrapf(property.ErrNotFound, "%s", id)
	}
	cp := *p
	return &cp, nil
}

type calendarRepository struct {
	unit *Unit
}

func (r calendarRepository) Get(ctx context.Context, id property.ID) (*domainavailability.Record, error) {
	r.unit.mu.Lock()
	staged, ok := r.unit.calendars[id]
	r.unit.mu.Unlock()
	if ok {
		return staged.record.Clone(), nil
	}
	s := r.unit.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.calendars[id]
	if !ok {
		return nil, errs.Wrapf(domainavailability.ErrRecordNotFound, "%s", id)
	}
	return rec.Clone(), nil
}

// Save stages the record and bumps its version. The version the record was
// read at is checked on commit.
func (r calendarRepository) Save(ctx context.Context, rec *domainavailability.Record) error {
	if rec == nil {
		return domainavailability.ErrPropertyRequired
	}
	r.unit.mu.Lock()
	defer r.unit.mu.Unlock()
	if err := r.unit.writable(); err != nil {
		return err
	}
	expected := rec.Version
	if prev, ok := r.unit.calendars[rec.PropertyID]; ok {
		if prev.record.Version != rec.Version {
			return errs.Wrapf(domainavailability.ErrConcurrentUpdate, "calendar %s saved from a stale copy", rec.PropertyID)
		}
		expected = prev.expected
	}
	rec.Version++
	r.unit.calendars[rec.PropertyID] = stagedCalendar{expected: expected, record: rec.Clone()}
	return nil
}

type bookingRepository struct {
	unit *Unit
}

func (r bookingRepository) ByID(ctx context.Context, id domainbooking.ID) (*domainbooking.Booking, error) {
	r.unit.mu.Lock()
	staged, ok := r.unit.bookings[id]
	r.unit.mu.Unlock()
	if ok {
		return staged.booking.Clone(), nil
	}
	s := r.unit.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, errs.Wrapf(domainbooking.ErrNotFound, "%s", id)
	}
	return b.Clone(), nil
}

func (r bookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	if b == nil {
		return domainbooking.ErrIDRequired
	}
	r.unit.mu.Lock()
	defer r.unit.mu.Unlock()
	if err := r.unit.writable(); err != nil {
		return err
	}
	expected := b.Version
	if prev, ok := r.unit.bookings[b.ID]; ok {
		if prev.booking.Version != b.Version {
			return errs.Wrapf(domainbooking.ErrConcurrentUpdate, "booking %s saved from a stale copy", b.ID)
		}
		expected = prev.expected
	}
	b.Version++
	r.unit.bookings[b.ID] = stagedBooking{expected: expected, booking: b.Clone()}
	return nil
}

// ListByUser returns the user's bookings, newest first.
func (r bookingRepository) ListByUser(ctx context.Context, userID string) ([]*domainbooking.Booking, error) {
	merged := make(map[domainbooking.ID]*domainbooking.Booking)
	s := r.unit.store
	s.mu.RLock()
	for id, b := range s.bookings {
		if b.UserID == userID {
			merged[id] = b
		}
	}
	s.mu.RUnlock()
	r.unit.mu.Lock()
	for id, staged := range r.unit.bookings {
		if staged.booking.UserID == userID {
			merged[id] = staged.booking
		}
	}
	r.unit.mu.Unlock()

	out := make([]*domainbooking.Booking, 0, len(merged))
	for _, b := range merged {
		out = append(out, b.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

var (
	_ property.Directory            = propertyDirectory{}
	_ domainavailability.Repository = calendarRepository{}
	_ domainbooking.Repository      = bookingRepository{}
)
