package booking

import (
	"time"

	"glampbook/internal/domain/shared/money"
)

type BookingRequested struct {
	BookingID  string      `json:"bookingId"`
	PropertyID string      `json:"propertyId"`
	UserID     string      `json:"userId"`
	CheckIn    string      `json:"checkIn"`
	CheckOut   string      `json:"checkOut"`
	Guests     int         `json:"guests"`
	Total      money.Money `json:"total"`
	At         time.Time   `json:"at"`
}

func (e BookingRequested) EventName() string     { return "booking.requested" }
func (e BookingRequested) AggregateID() string   { return e.BookingID }
func (e BookingRequested) OccurredAt() time.Time { return e.At }

type BookingConfirmed struct {
	BookingID  string      `json:"bookingId"`
	PropertyID string      `json:"propertyId"`
	UserID     string      `json:"userId"`
	Total      money.Money `json:"total"`
	At         time.Time   `json:"at"`
}

func (e BookingConfirmed) EventName() string     { return "booking.confirmed" }
func (e BookingConfirmed) AggregateID() string   { return e.BookingID }
func (e BookingConfirmed) OccurredAt() time.Time { return e.At }

type BookingCompleted struct {
	BookingID  string    `json:"bookingId"`
	PropertyID string    `json:"propertyId"`
	At         time.Time `json:"at"`
}

func (e BookingCompleted) EventName() string     { return "booking.completed" }
func (e BookingCompleted) AggregateID() string   { return e.BookingID }
func (e BookingCompleted) OccurredAt() time.Time { return e.At }

type BookingRejected struct {
	BookingID  string    `json:"bookingId"`
	PropertyID string    `json:"propertyId"`
	UserID     string    `json:"userId"`
	Reason     string    `json:"reason,omitempty"`
	At         time.Time `json:"at"`
}

func (e BookingRejected) EventName() string     { return "booking.rejected" }
func (e BookingRejected) AggregateID() string   { return e.BookingID }
func (e BookingRejected) OccurredAt() time.Time { return e.At }

type BookingCanceled struct {
	BookingID  string      `json:"bookingId"`
	PropertyID string      `json:"propertyId"`
	UserID     string      `json:"userId"`
	Reason     string      `json:"reason,omitempty"`
	CanceledBy string      `json:"canceledBy"`
	Refund     money.Money `json:"refund"`
	At         time.Time   `json:"at"`
}

func (e BookingCanceled) EventName() string     { return "booking.canceled" }
func (e BookingCanceled) AggregateID() string   { return e.BookingID }
func (e BookingCanceled) OccurredAt() time.Time { return e.At }

type PaymentRecorded struct {
	BookingID     string      `json:"bookingId"`
	Method        string      `json:"method"`
	TransactionID string      `json:"transactionId"`
	Amount        money.Money `json:"amount"`
	At            time.Time   `json:"at"`
}

func (e PaymentRecorded) EventName() string     { return "booking.payment_recorded" }
func (e PaymentRecorded) AggregateID() string   { return e.BookingID }
func (e PaymentRecorded) OccurredAt() time.Time { return e.At }

type AddOnsAttached struct {
	BookingID string      `json:"bookingId"`
	Count     int         `json:"count"`
	Total     money.Money `json:"total"`
	At        time.Time   `json:"at"`
}

func (e AddOnsAttached) EventName() string     { return "booking.addons_attached" }
func (e AddOnsAttached) AggregateID() string   { return e.BookingID }
func (e AddOnsAttached) OccurredAt() time.Time { return e.At }
