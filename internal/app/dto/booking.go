package dto

import (
	"time"

	"glampbook/internal/domain/booking"
	"glampbook/internal/domain/pricing"
	"glampbook/internal/domain/shared/daterange"
	"glampbook/internal/domain/shared/money"
)

type MoneyDTO struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type LineDTO struct {
	Name   string   `json:"name"`
	Amount MoneyDTO `json:"amount"`
}

type PricingDTO struct {
	NightlyRate MoneyDTO  `json:"nightly_rate"`
	Nights      int       `json:"nights"`
	Subtotal    MoneyDTO  `json:"subtotal"`
	Fees        []LineDTO `json:"fees"`
	Taxes       []LineDTO `json:"taxes"`
	AddOns      []LineDTO `json:"add_ons"`
	Discount    *LineDTO  `json:"discount,omitempty"`
	Total       MoneyDTO  `json:"total"`
}

type GuestsDTO struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
	Infants  int `json:"infants"`
	Pets     int `json:"pets"`
}

type PaymentDTO struct {
	Status        string     `json:"status"`
	Method        string     `json:"method,omitempty"`
	TransactionID string     `json:"transaction_id,omitempty"`
	RefundAmount  MoneyDTO   `json:"refund_amount"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
}

type CancellationDTO struct {
	CanceledAt   time.Time `json:"canceled_at"`
	Reason       string    `json:"reason,omitempty"`
	CanceledBy   string    `json:"canceled_by"`
	RefundAmount MoneyDTO  `json:"refund_amount"`
}

type NotesDTO struct {
	Public  string `json:"public,omitempty"`
	Private string `json:"private,omitempty"`
}

type Booking struct {
	ID           string           `json:"id"`
	PropertyID   string           `json:"property_id"`
	UserID       string           `json:"user_id"`
	Status       string           `json:"status"`
	CheckIn      string           `json:"check_in"`
	CheckOut     string           `json:"check_out"`
	Nights       int              `json:"nights"`
	Guests       GuestsDTO        `json:"guests"`
	Pricing      PricingDTO       `json:"pricing"`
	Payment      PaymentDTO       `json:"payment"`
	Cancellation *CancellationDTO `json:"cancellation,omitempty"`
	Notes        NotesDTO         `json:"notes"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

type BookingCollection struct {
	Items []Booking `json:"items"`
}

func MapMoney(value money.Money) MoneyDTO {
	return MoneyDTO{Amount: value.Amount, Currency: value.Currency}
}

func mapLines(lines []pricing.Line) []LineDTO {
	out := make([]LineDTO, 0, len(lines))
	for _, l := range lines {
		out = append(out, LineDTO{Name: l.Name, Amount: MapMoney(l.Amount)})
	}
	return out
}

func MapPricing(b pricing.Breakdown) PricingDTO {
	out := PricingDTO{
		NightlyRate: MapMoney(b.NightlyRate),
		Nights:      b.Nights,
		Subtotal:    MapMoney(b.Subtotal),
		Fees:        mapLines(b.Fees),
		Taxes:       mapLines(b.Taxes),
		AddOns:      mapLines(b.AddOns),
		Total:       MapMoney(b.Total),
	}
	if b.Discount != nil {
		out.Discount = &LineDTO{Name: b.Discount.Name, Amount: MapMoney(b.Discount.Amount)}
	}
	return out
}

// MapBooking renders the staff view, private notes included.
func MapBooking(b *booking.Booking) Booking {
	out := Booking{
		ID:         string(b.ID),
		PropertyID: string(b.PropertyID),
		UserID:     b.UserID,
		Status:     string(b.Status),
		CheckIn:    daterange.DayKey(b.Range.CheckIn),
		CheckOut:   daterange.DayKey(b.Range.CheckOut),
		Nights:     b.Range.Nights(),
		Guests: GuestsDTO{
			Adults:   b.Guests.Adults,
			Children: b.Guests.Children,
			Infants:  b.Guests.Infants,
			Pets:     b.Guests.Pets,
		},
		Pricing: MapPricing(b.Pricing),
		Payment: PaymentDTO{
			Status:        string(b.Payment.Status),
			Method:        b.Payment.Method,
			TransactionID: b.Payment.TransactionID,
			RefundAmount:  MapMoney(b.Payment.RefundAmount),
		},
		Notes:     NotesDTO{Public: b.Notes.Public, Private: b.Notes.Private},
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
	if !b.Payment.PaidAt.IsZero() {
		paid := b.Payment.PaidAt
		out.Payment.PaidAt = &paid
	}
	if c := b.Cancellation; c != nil {
		out.Cancellation = &CancellationDTO{
			CanceledAt:   c.CanceledAt,
			Reason:       c.Reason,
			CanceledBy:   c.CanceledBy,
			RefundAmount: MapMoney(c.RefundAmount),
		}
	}
	return out
}

// MapGuestBooking renders what the guest may see.
func MapGuestBooking(b *booking.Booking) Booking {
	return MapBooking(b.ForGuest())
}
