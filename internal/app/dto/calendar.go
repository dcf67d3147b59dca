package dto

import (
	"sort"
	"time"

	"glampbook/internal/domain/availability"
	"glampbook/internal/domain/shared/daterange"
)

type CalendarDay struct {
	Date        string `json:"date"`
	Known       bool   `json:"known"`
	IsAvailable bool   `json:"is_available"`
	Price       *int64 `json:"price,omitempty"`
	MinimumStay *int   `json:"minimum_stay,omitempty"`
	Notes       string `json:"notes,omitempty"`
	Booked      bool   `json:"booked"`
}

type CalendarBlock struct {
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Calendar struct {
	PropertyID    string          `json:"property_id"`
	Days          []CalendarDay   `json:"days"`
	BlockedRanges []CalendarBlock `json:"blocked_ranges"`
	LastUpdated   time.Time       `json:"last_updated"`
	Version       int64           `json:"version"`
}

type AvailabilityCheck struct {
	PropertyID string `json:"property_id"`
	CheckIn    string `json:"check_in"`
	CheckOut   string `json:"check_out"`
	Nights     int    `json:"nights"`
	Available  bool   `json:"available"`
}

type CalendarChange struct {
	PropertyID  string    `json:"property_id"`
	Days        int       `json:"days"`
	Created     bool      `json:"created,omitempty"`
	LastUpdated time.Time `json:"last_updated"`
	Version     int64     `json:"version"`
}

// MapCalendar renders days of window. Booking holders stay internal; the
// view only says whether a day is booked.
func MapCalendar(rec *availability.Record, window daterange.DateRange) Calendar {
	if rec == nil {
		return Calendar{}
	}
	out := Calendar{
		PropertyID:  string(rec.PropertyID),
		LastUpdated: rec.LastUpdated,
		Version:     rec.Version,
	}
	for _, day := range window.Days() {
		entry, ok := rec.Entry(day)
		out.Days = append(out.Days, CalendarDay{
			Date:        day,
			Known:       ok,
			IsAvailable: ok && entry.IsAvailable,
			Price:       entry.Price,
			MinimumStay: entry.MinimumStay,
			Notes:       entry.Notes,
			Booked:      entry.BookingID != "",
		})
	}
	blocks := make([]CalendarBlock, 0, len(rec.BlockedRanges))
	for _, b := range rec.BlockedRanges {
		if !b.Range.Overlaps(window) {
			continue
		}
		blocks = append(blocks, CalendarBlock{
			StartDate: daterange.DayKey(b.Range.CheckIn),
			EndDate:   daterange.DayKey(b.Range.CheckOut),
			Reason:    b.Reason,
			CreatedAt: b.CreatedAt,
		})
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].StartDate < blocks[j].StartDate })
	out.BlockedRanges = blocks
	return out
}

func MapCalendarChange(rec *availability.Record, created bool) CalendarChange {
	return CalendarChange{
		PropertyID:  string(rec.PropertyID),
		Days:        len(rec.Dates),
		Created:     created,
		LastUpdated: rec.LastUpdated,
		Version:     rec.Version,
	}
}
