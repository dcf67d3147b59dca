package availability

import (
	"context"
	"sort"
	"strings"
	"time"

	"glampbook/internal/domain/property"
	"glampbook/internal/domain/shared/daterange"
	"glampbook/internal/domain/shared/events"
	"glampbook/internal/pkg/errs"
)

var (
	ErrRecordNotFound    = errs.Mark(errs.New("availability: record not found"), errs.ErrNotFound)
	ErrBlockNotFound     = errs.Mark(errs.New("availability: blocked range not found"), errs.ErrNotFound)
	ErrOverlappingBlock  = errs.Mark(errs.New("availability: range overlaps an existing blocked range"), errs.ErrInvalidInput)
	ErrRangeUnavailable  = errs.Mark(errs.New("availability: dates are not available"), errs.ErrUnavailable)
	ErrDayHeldByBooking  = errs.Mark(errs.New("availability: day is held by a booking"), errs.ErrInvalidInput)
	ErrDayBlocked        = errs.Mark(errs.New("availability: day is covered by a blocked range"), errs.ErrInvalidInput)
	ErrInvalidPrice      = errs.Mark(errs.New("availability: price cannot be negative"), errs.ErrInvalidInput)
	ErrInvalidMinStay    = errs.Mark(errs.New("availability: minimum stay must be at least one night"), errs.ErrInvalidInput)
	ErrInvalidHorizon    = errs.Mark(errs.New("availability: horizon must be positive"), errs.ErrInvalidInput)
	ErrPropertyRequired  = errs.Mark(errs.New("availability: property id is required"), errs.ErrInvalidInput)
	ErrEmptyPatch        = errs.Mark(errs.New("availability: no day updates given"), errs.ErrInvalidInput)
	ErrConcurrentUpdate  = errs.Mark(errs.New("availability: concurrent update detected"), errs.ErrConflict)
	ErrBookingIDRequired = errs.Mark(errs.New("availability: booking id is required"), errs.ErrInvalidInput)
)

// BookedNote is written on every day held by a booking.
const BookedNote = "Booked"

// DefaultHorizonDays is the number of days pre-populated by Initialize when
// no horizon is configured.
const DefaultHorizonDays = 365

// DayEntry is the state of one calendar day. Price is in minor units of the
// property currency.
type DayEntry struct {
	IsAvailable bool
	Price       *int64
	MinimumStay *int
	Notes       string
	BookingID   string
}

// DayPatch carries the fields to merge into a day. Nil fields keep the
// stored value.
type DayPatch struct {
	IsAvailable *bool
	Price       *int64
	MinimumStay *int
	Notes       *string
}

func (p DayPatch) validate() error {
	if p.Price != nil && *p.Price < 0 {
		return ErrInvalidPrice
	}
	if p.MinimumStay != nil && *p.MinimumStay < 1 {
		return ErrInvalidMinStay
	}
	return nil
}

type BlockedRange struct {
	Range     daterange.DateRange
	Reason    string
	CreatedAt time.Time
}

// Record is the availability calendar of one property: a per-day map plus
// the owner holds overlaid on it. Every mutation goes through the methods
// below so the two views never drift.
type Record struct {
	PropertyID    property.ID
	Dates         map[string]DayEntry
	BlockedRanges []BlockedRange
	LastUpdated   time.Time
	Version       int64
	events.EventRecorder
}

type Repository interface {
	Get(ctx context.Context, id property.ID) (*Record, error)
	Save(ctx context.Context, record *Record) error
}

// Initialize builds a record with horizonDays available days starting at the
// calendar day of from.
func Initialize(id property.ID, from time.Time, horizonDays int, now time.Time) (*Record, error) {
	if strings.TrimSpace(string(id)) == "" {
		return nil, ErrPropertyRequired
	}
	if horizonDays <= 0 {
		return nil, ErrInvalidHorizon
	}
	start := daterange.Day(from)
	y, m, d := start.Date()
	end := time.Date(y, m, d+horizonDays, 0, 0, 0, 0, time.UTC)
	days := daterange.Days(start, end)
	r := &Record{
		PropertyID:  id,
		Dates:       make(map[string]DayEntry, len(days)),
		LastUpdated: now.UTC(),
	}
	for _, day := range days {
		r.Dates[day] = DayEntry{IsAvailable: true}
	}
	return r, nil
}

// Entry returns the stored day. A missing key reports ok=false and must be
// treated as unavailable.
func (r *Record) Entry(day string) (DayEntry, bool) {
	e, ok := r.Dates[day]
	return e, ok
}

// SetDateStatus merges patch into a single day, creating the day if needed.
func (r *Record) SetDateStatus(day string, patch DayPatch, now time.Time) error {
	return r.SetDateRangeStatus(map[string]DayPatch{day: patch}, now)
}

// SetDateRangeStatus merges a batch of patches. The batch is validated as a
// whole before any day changes.
func (r *Record) SetDateRangeStatus(patches map[string]DayPatch, now time.Time) error {
	if len(patches) == 0 {
		return ErrEmptyPatch
	}
	for day, patch := range patches {
		if _, err := daterange.ParseDay(day); err != nil {
			return errs.Wrapf(err, "day %q", day)
		}
		if err := patch.validate(); err != nil {
			return errs.Wrapf(err, "day %q", day)
		}
		if patch.IsAvailable == nil {
			continue
		}
		// Held days change status only through the booking. Closing one here
		// would be undone when the booking is released; use a blocked range.
		if holder := r.Dates[day].BookingID; holder != "" {
			return errs.Wrapf(ErrDayHeldByBooking, "day %q held by %s", day, holder)
		}
		if *patch.IsAvailable && r.blockedOn(day) {
			return errs.Wrapf(ErrDayBlocked, "day %q", day)
		}
	}
	if r.Dates == nil {
		r.Dates = make(map[string]DayEntry, len(patches))
	}
	for day, patch := range patches {
		entry := r.Dates[day]
		if patch.IsAvailable != nil {
			entry.IsAvailable = *patch.IsAvailable
		}
		if patch.Price != nil {
			price := *patch.Price
			entry.Price = &price
		}
		if patch.MinimumStay != nil {
			stay := *patch.MinimumStay
			entry.MinimumStay = &stay
		}
		if patch.Notes != nil {
			entry.Notes = *patch.Notes
		}
		r.Dates[day] = entry
	}
	r.touch(now)
	return nil
}

// AddBlockedRange places an owner hold. Blocked ranges never overlap each
// other. Every day of the range is marked unavailable immediately, including
// days already held by a booking.
func (r *Record) AddBlockedRange(dr daterange.DateRange, reason string, now time.Time) error {
	if err := dr.Validate(); err != nil {
		return err
	}
	if r.BlockOverlapping(dr) {
		return ErrOverlappingBlock
	}
	r.BlockedRanges = append(r.BlockedRanges, BlockedRange{
		Range:     dr,
		Reason:    strings.TrimSpace(reason),
		CreatedAt: now.UTC(),
	})
	sort.SliceStable(r.BlockedRanges, func(i, j int) bool {
		return r.BlockedRanges[i].Range.CheckIn.Before(r.BlockedRanges[j].Range.CheckIn)
	})
	if r.Dates == nil {
		r.Dates = make(map[string]DayEntry)
	}
	for _, day := range dr.Days() {
		entry := r.Dates[day]
		entry.IsAvailable = false
		r.Dates[day] = entry
	}
	r.touch(now)
	r.Record(CalendarBlockedEvent(r.PropertyID, dr, ReasonOwnerBlock, "", now))
	return nil
}

// RemoveBlockedRange deletes the hold equal to dr and reopens the days it
// covered, except days still covered by another hold or held by a booking.
func (r *Record) RemoveBlockedRange(dr daterange.DateRange, now time.Time) error {
	idx := -1
	for i, block := range r.BlockedRanges {
		if block.Range.Equal(dr) {
			idx = i
			break
		}
	}
	if idx == -1 {
		return ErrBlockNotFound
	}
	r.BlockedRanges = append(r.BlockedRanges[:idx], r.BlockedRanges[idx+1:]...)
	for _, day := range dr.Days() {
		entry, ok := r.Dates[day]
		if !ok || entry.BookingID != "" {
			continue
		}
		if r.blockedOn(day) {
			continue
		}
		entry.IsAvailable = true
		r.Dates[day] = entry
	}
	r.touch(now)
	r.Record(CalendarReleasedEvent(r.PropertyID, dr, ReasonOwnerBlock, "", now))
	return nil
}

// IsRangeAvailable reports whether every night of dr is present and open and
// no hold overlaps it. Unknown days count as unavailable.
func (r *Record) IsRangeAvailable(dr daterange.DateRange) bool {
	days := dr.Days()
	if len(days) == 0 {
		return false
	}
	for _, day := range days {
		entry, ok := r.Dates[day]
		if !ok || !entry.IsAvailable {
			return false
		}
	}
	return !r.BlockOverlapping(dr)
}

// BlockOverlapping reports whether any hold intersects dr.
func (r *Record) BlockOverlapping(dr daterange.DateRange) bool {
	for _, block := range r.BlockedRanges {
		if block.Range.Overlaps(dr) {
			return true
		}
	}
	return false
}

// MarkBooked holds every night of dr for bookingID. It re-checks
// availability so the check and the write happen on the same snapshot.
func (r *Record) MarkBooked(dr daterange.DateRange, bookingID string, now time.Time) error {
	if bookingID == "" {
		return ErrBookingIDRequired
	}
	if !r.IsRangeAvailable(dr) {
		r.Record(CalendarOverbookingPreventedEvent(r.PropertyID, dr, now))
		return ErrRangeUnavailable
	}
	for _, day := range dr.Days() {
		entry := r.Dates[day]
		entry.IsAvailable = false
		entry.Notes = BookedNote
		entry.BookingID = bookingID
		r.Dates[day] = entry
	}
	r.touch(now)
	r.Record(CalendarBlockedEvent(r.PropertyID, dr, ReasonBooking, bookingID, now))
	return nil
}

// ReleaseBooking gives back the nights of dr held by bookingID. Days held by
// someone else are left alone, and days under a hold stay unavailable. It
// returns the day keys that became available again.
func (r *Record) ReleaseBooking(dr daterange.DateRange, bookingID string, now time.Time) ([]string, error) {
	if bookingID == "" {
		return nil, ErrBookingIDRequired
	}
	var reopened []string
	for _, day := range dr.Days() {
		entry, ok := r.Dates[day]
		if !ok || entry.BookingID != bookingID {
			continue
		}
		entry.BookingID = ""
		if entry.Notes == BookedNote {
			entry.Notes = ""
		}
		if !r.blockedOn(day) {
			entry.IsAvailable = true
			reopened = append(reopened, day)
		}
		r.Dates[day] = entry
	}
	r.touch(now)
	r.Record(CalendarReleasedEvent(r.PropertyID, dr, ReasonBooking, bookingID, now))
	return reopened, nil
}

// MinimumStayOn returns the minimum stay configured for day, or 0.
func (r *Record) MinimumStayOn(day string) int {
	entry, ok := r.Dates[day]
	if !ok || entry.MinimumStay == nil {
		return 0
	}
	return *entry.MinimumStay
}

// PriceOn returns the per-night override for day.
func (r *Record) PriceOn(day string) (int64, bool) {
	entry, ok := r.Dates[day]
	if !ok || entry.Price == nil {
		return 0, false
	}
	return *entry.Price, true
}

// Clone returns a deep copy without pending events.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := &Record{
		PropertyID:    r.PropertyID,
		Dates:         make(map[string]DayEntry, len(r.Dates)),
		BlockedRanges: append([]BlockedRange(nil), r.BlockedRanges...),
		LastUpdated:   r.LastUpdated,
		Version:       r.Version,
	}
	for day, entry := range r.Dates {
		if entry.Price != nil {
			price := *entry.Price
			entry.Price = &price
		}
		if entry.MinimumStay != nil {
			stay := *entry.MinimumStay
			entry.MinimumStay = &stay
		}
		out.Dates[day] = entry
	}
	return out
}

func (r *Record) blockedOn(day string) bool {
	for _, block := range r.BlockedRanges {
		if block.Range.ContainsDay(day) {
			return true
		}
	}
	return false
}

func (r *Record) touch(now time.Time) {
	r.LastUpdated = now.UTC()
}
