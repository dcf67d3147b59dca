package pricing

import (
	"glampbook/internal/domain/property"
	"glampbook/internal/domain/shared/money"
	"glampbook/internal/pkg/errs"
)

var (
	ErrNegativeComponent = errs.Mark(errs.New("pricing: components cannot be negative"), errs.ErrInvalidInput)
	ErrCurrencyUnset     = errs.Mark(errs.New("pricing: currency must be defined"), errs.ErrInvalidInput)
	ErrNoNights          = errs.Mark(errs.New("pricing: nights must be positive"), errs.ErrInvalidInput)
	ErrDiscountTooLarge  = errs.Mark(errs.New("pricing: discount exceeds chargeable amount"), errs.ErrInvalidInput)
)

const weeklyStayNights = 7

// Line is a named priced component (fee, tax, add-on or discount).
type Line struct {
	Name   string
	Amount money.Money
}

// Breakdown is the price snapshot stored on a booking. Total always equals
// Subtotal + Fees + Taxes + AddOns - Discount.
type Breakdown struct {
	NightlyRate money.Money
	Nights      int
	Subtotal    money.Money
	Fees        []Line
	Taxes       []Line
	AddOns      []Line
	Discount    *Line
	Total       money.Money
}

func (b *Breakdown) Currency() string {
	return b.NightlyRate.Currency
}

func (b *Breakdown) Validate() error {
	if b.NightlyRate.Currency == "" {
		return ErrCurrencyUnset
	}
	if b.Nights <= 0 {
		return ErrNoNights
	}
	if b.NightlyRate.IsNegative() || b.Subtotal.IsNegative() {
		return ErrNegativeComponent
	}
	return nil
}

// Recalculate recomputes Total from the components.
func (b *Breakdown) Recalculate() error {
	if err := b.Validate(); err != nil {
		return err
	}
	total := b.Subtotal
	add := func(lines []Line) error {
		for _, line := range lines {
			if line.Amount.IsNegative() {
				return ErrNegativeComponent
			}
			next, err := total.Add(line.Amount)
			if err != nil {
				return err
			}
			total = next
		}
		return nil
	}
	if err := add(b.Fees); err != nil {
		return err
	}
	if err := add(b.Taxes); err != nil {
		return err
	}
	if err := add(b.AddOns); err != nil {
		return err
	}
	if b.Discount != nil {
		if b.Discount.Amount.IsNegative() {
			return ErrNegativeComponent
		}
		next, err := total.Sub(b.Discount.Amount)
		if err != nil {
			return err
		}
		if next.IsNegative() {
			return ErrDiscountTooLarge
		}
		total = next
	}
	b.Total = total
	return nil
}

// WithAddOns returns a copy carrying the given add-ons with Total recomputed.
func (b Breakdown) WithAddOns(addOns []Line) (Breakdown, error) {
	clone := b.Copy()
	clone.AddOns = append(clone.AddOns, addOns...)
	if err := clone.Recalculate(); err != nil {
		return Breakdown{}, err
	}
	return clone, nil
}

func (b Breakdown) Copy() Breakdown {
	clone := b
	clone.Fees = append([]Line(nil), b.Fees...)
	clone.Taxes = append([]Line(nil), b.Taxes...)
	clone.AddOns = append([]Line(nil), b.AddOns...)
	if b.Discount != nil {
		d := *b.Discount
		clone.Discount = &d
	}
	return clone
}

// Quote prices a stay from per-night amounts. nightly holds one entry per
// night; callers fill gaps with the property's base rate.
func Quote(p *property.Property, nightly []money.Money) (Breakdown, error) {
	if len(nightly) == 0 {
		return Breakdown{}, ErrNoNights
	}
	currency := p.Currency()
	subtotal := money.Zero(currency)
	for _, night := range nightly {
		next, err := subtotal.Add(night)
		if err != nil {
			return Breakdown{}, err
		}
		subtotal = next
	}

	b := Breakdown{
		NightlyRate: p.NightlyRate,
		Nights:      len(nightly),
		Subtotal:    subtotal,
	}
	if !p.CleaningFee.IsZero() {
		b.Fees = append(b.Fees, Line{Name: "cleaning_fee", Amount: p.CleaningFee})
	}
	if p.ServiceFeePercent > 0 {
		b.Fees = append(b.Fees, Line{Name: "service_fee", Amount: subtotal.Percent(p.ServiceFeePercent)})
	}
	taxable := subtotal
	if b.Nights >= weeklyStayNights && p.WeeklyDiscountPercent > 0 {
		discount := subtotal.Percent(p.WeeklyDiscountPercent)
		b.Discount = &Line{Name: "weekly_stay", Amount: discount}
		taxable, _ = taxable.Sub(discount)
	}
	if p.TaxPercent > 0 {
		for _, fee := range b.Fees {
			taxable, _ = taxable.Add(fee.Amount)
		}
		b.Taxes = append(b.Taxes, Line{Name: "lodging_tax", Amount: taxable.Percent(p.TaxPercent)})
	}
	if err := b.Recalculate(); err != nil {
		return Breakdown{}, err
	}
	return b, nil
}
