package money

import (
	"strings"

	"glampbook/internal/pkg/errs"
)

var (
	ErrInvalidCurrency  = errs.Mark(errs.New("money: invalid currency code"), errs.ErrInvalidInput)
	ErrCurrencyMismatch = errs.Mark(errs.New("money: currency mismatch"), errs.ErrInvalidInput)
	ErrNegativeAmount   = errs.Mark(errs.New("money: amount cannot be negative"), errs.ErrInvalidInput)
)

// Money keeps amounts in integer minor units to avoid floating point issues.
type Money struct {
	Amount   int64  `json:"amount" bson:"amount"`
	Currency string `json:"currency" bson:"currency"`
}

// New constructs Money validating the currency code.
func New(amount int64, currency string) (Money, error) {
	if len(strings.TrimSpace(currency)) != 3 {
		return Money{}, ErrInvalidCurrency
	}
	return Money{Amount: amount, Currency: strings.ToUpper(strings.TrimSpace(currency))}, nil
}

// Must creates Money and panics if validation fails; useful in tests and fixtures.
func Must(amount int64, currency string) Money {
	m, err := New(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns a zero amount in the given currency.
func Zero(currency string) Money {
	return Money{Currency: strings.ToUpper(currency)}
}

func (m Money) Add(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}, nil
}

func (m Money) Sub(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount - other.Amount, Currency: m.Currency}, nil
}

func (m Money) Multiply(times int64) Money {
	return Money{Amount: m.Amount * times, Currency: m.Currency}
}

// Percent returns p percent of m, rounded down to the minor unit.
func (m Money) Percent(p int) Money {
	if p <= 0 {
		return Money{Currency: m.Currency}
	}
	return Money{Amount: m.Amount * int64(p) / 100, Currency: m.Currency}
}

func (m Money) IsZero() bool {
	return m.Amount == 0
}

func (m Money) IsNegative() bool {
	return m.Amount < 0
}

func (m Money) GreaterThan(other Money) bool {
	return m.Currency == other.Currency && m.Amount > other.Amount
}

func (m Money) ensureSameCurrency(other Money) error {
	if m.Currency == "" || other.Currency == "" {
		return ErrInvalidCurrency
	}
	if m.Currency != other.Currency {
		return ErrCurrencyMismatch
	}
	return nil
}
