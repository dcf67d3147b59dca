package availability

import (
	"time"

	"glampbook/internal/domain/property"
	"glampbook/internal/domain/shared/daterange"
)

type BlockReason string

const (
	ReasonBooking    BlockReason = "BOOKING"
	ReasonOwnerBlock BlockReason = "OWNER_BLOCK"
)

type CalendarBlocked struct {
	PropertyID string      `json:"propertyId"`
	CheckIn    string      `json:"startDate"`
	CheckOut   string      `json:"endDate"`
	Reason     BlockReason `json:"reason"`
	BookingID  string      `json:"bookingId,omitempty"`
	At         time.Time   `json:"at"`
}

func (e CalendarBlocked) EventName() string     { return "calendar.blocked" }
func (e CalendarBlocked) AggregateID() string   { return e.PropertyID }
func (e CalendarBlocked) OccurredAt() time.Time { return e.At }

type CalendarReleased struct {
	PropertyID string      `json:"propertyId"`
	CheckIn    string      `json:"startDate"`
	CheckOut   string      `json:"endDate"`
	Reason     BlockReason `json:"reason"`
	BookingID  string      `json:"bookingId,omitempty"`
	At         time.Time   `json:"at"`
}

func (e CalendarReleased) EventName() string     { return "calendar.released" }
func (e CalendarReleased) AggregateID() string   { return e.PropertyID }
func (e CalendarReleased) OccurredAt() time.Time { return e.At }

type CalendarOverbookingPrevented struct {
	PropertyID string    `json:"propertyId"`
	CheckIn    string    `json:"startDate"`
	CheckOut   string    `json:"endDate"`
	At         time.Time `json:"at"`
}

func (e CalendarOverbookingPrevented) EventName() string     { return "calendar.overbooking_prevented" }
func (e CalendarOverbookingPrevented) AggregateID() string   { return e.PropertyID }
func (e CalendarOverbookingPrevented) OccurredAt() time.Time { return e.At }

func CalendarBlockedEvent(id property.ID, r daterange.DateRange, reason BlockReason, bookingID string, at time.Time) CalendarBlocked {
	return CalendarBlocked{
		PropertyID: string(id),
		CheckIn:    daterange.DayKey(r.CheckIn),
		CheckOut:   daterange.DayKey(r.CheckOut),
		Reason:     reason,
		BookingID:  bookingID,
		At:         at.UTC(),
	}
}

func CalendarReleasedEvent(id property.ID, r daterange.DateRange, reason BlockReason, bookingID string, at time.Time) CalendarReleased {
	return CalendarReleased{
		PropertyID: string(id),
		CheckIn:    daterange.DayKey(r.CheckIn),
		CheckOut:   daterange.DayKey(r.CheckOut),
		Reason:     reason,
		BookingID:  bookingID,
		At:         at.UTC(),
	}
}

func CalendarOverbookingPreventedEvent(id property.ID, r daterange.DateRange, at time.Time) CalendarOverbookingPrevented {
	return CalendarOverbookingPrevented{
		PropertyID: string(id),
		CheckIn:    daterange.DayKey(r.CheckIn),
		CheckOut:   daterange.DayKey(r.CheckOut),
		At:         at.UTC(),
	}
}
