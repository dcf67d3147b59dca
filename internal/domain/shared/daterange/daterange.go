package daterange

import (
	"time"

	"glampbook/internal/pkg/errs"
)

// DayLayout is the calendar-day key format used by the availability map.
const DayLayout = "2006-01-02"

var (
	ErrInvalidRange = errs.Mark(errs.New("daterange: checkout must be after checkin"), errs.ErrInvalidInput)
	ErrInvalidDay   = errs.Mark(errs.New("daterange: day must be formatted as YYYY-MM-DD"), errs.ErrInvalidInput)
)

// DayKey returns the calendar day of t in its own location.
func DayKey(t time.Time) string {
	y, m, d := t.Date()
	return civil(y, m, d).Format(DayLayout)
}

// ParseDay parses a day key into midnight UTC of that day.
func ParseDay(key string) (time.Time, error) {
	t, err := time.Parse(DayLayout, key)
	if err != nil {
		return time.Time{}, ErrInvalidDay
	}
	return t, nil
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return civil(y, m, d)
}

// Days lists the day keys of the half-open interval [start, end). Both ends
// are reduced to calendar days first so wall-clock offsets and daylight
// saving transitions cannot add or drop a day. An empty or inverted
// interval yields nil.
func Days(start, end time.Time) []string {
	from := Day(start)
	to := Day(end)
	if !to.After(from) {
		return nil
	}
	out := make([]string, 0, int(to.Sub(from)/(24*time.Hour)))
	y, m, d := from.Date()
	for i := 0; ; i++ {
		day := civil(y, m, d+i)
		if !day.Before(to) {
			break
		}
		out = append(out, day.Format(DayLayout))
	}
	return out
}

func civil(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateRange represents a half-open interval [checkIn, checkOut)
type DateRange struct {
	CheckIn  time.Time
	CheckOut time.Time
}

// New normalizes both ends to midnight UTC of their calendar days and
// validates checkIn < checkOut.
func New(checkIn, checkOut time.Time) (DateRange, error) {
	dr := DateRange{CheckIn: Day(checkIn), CheckOut: Day(checkOut)}
	if err := dr.Validate(); err != nil {
		return DateRange{}, err
	}
	return dr, nil
}

// FromKeys builds a range from two day keys.
func FromKeys(checkIn, checkOut string) (DateRange, error) {
	in, err := ParseDay(checkIn)
	if err != nil {
		return DateRange{}, err
	}
	out, err := ParseDay(checkOut)
	if err != nil {
		return DateRange{}, err
	}
	return New(in, out)
}

func (dr DateRange) Validate() error {
	if dr.CheckOut.IsZero() || dr.CheckIn.IsZero() {
		return ErrInvalidRange
	}
	if !dr.CheckOut.After(dr.CheckIn) {
		return ErrInvalidRange
	}
	return nil
}

func (dr DateRange) Nights() int {
	return len(dr.Days())
}

func (dr DateRange) Days() []string {
	return Days(dr.CheckIn, dr.CheckOut)
}

// Overlaps reports interval intersection. Touching boundaries do not overlap,
// so back-to-back stays are allowed.
func (dr DateRange) Overlaps(other DateRange) bool {
	return dr.CheckIn.Before(other.CheckOut) && dr.CheckOut.After(other.CheckIn)
}

func (dr DateRange) Contains(other DateRange) bool {
	return (dr.CheckIn.Before(other.CheckIn) || dr.CheckIn.Equal(other.CheckIn)) &&
		(dr.CheckOut.After(other.CheckOut) || dr.CheckOut.Equal(other.CheckOut))
}

func (dr DateRange) ContainsDate(t time.Time) bool {
	t = t.UTC()
	return (t.Equal(dr.CheckIn) || t.After(dr.CheckIn)) && t.Before(dr.CheckOut)
}

// ContainsDay reports whether the day key falls inside the range.
func (dr DateRange) ContainsDay(key string) bool {
	day, err := ParseDay(key)
	if err != nil {
		return false
	}
	return dr.ContainsDate(day)
}

func (dr DateRange) Equal(other DateRange) bool {
	return dr.CheckIn.Equal(other.CheckIn) && dr.CheckOut.Equal(other.CheckOut)
}

func (dr DateRange) String() string {
	return DayKey(dr.CheckIn) + ".." + DayKey(dr.CheckOut)
}
