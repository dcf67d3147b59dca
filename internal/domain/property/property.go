package property

import (
	"context"
	"strings"
	"time"

	"glampbook/internal/domain/shared/money"
	"glampbook/internal/pkg/errs"
)

var (
	ErrNotFound     = errs.Mark(errs.New("property: not found"), errs.ErrNotFound)
	ErrIDRequired   = errs.Mark(errs.New("property: id is required"), errs.ErrInvalidInput)
	ErrGuestsLimit  = errs.Mark(errs.New("property: max guests must be at least 1"), errs.ErrInvalidInput)
	ErrNightlyRate  = errs.Mark(errs.New("property: nightly rate must be positive"), errs.ErrInvalidInput)
	ErrPercentRange = errs.Mark(errs.New("property: percentages must be between 0 and 100"), errs.ErrInvalidInput)
)

type ID string

// Property is the read-only projection of a glamping unit this service needs.
// The catalogue that owns it lives elsewhere.
type Property struct {
	ID                    ID
	Name                  string
	MaxGuests             int
	NightlyRate           money.Money
	CleaningFee           money.Money
	ServiceFeePercent     int
	TaxPercent            int
	WeeklyDiscountPercent int
	Active                bool
	UpdatedAt             time.Time
}

// Directory resolves properties by id. It is read-only for this service.
type Directory interface {
	ByID(ctx context.Context, id ID) (*Property, error)
}

type CreateParams struct {
	ID                    ID
	Name                  string
	MaxGuests             int
	NightlyRate           money.Money
	CleaningFee           money.Money
	ServiceFeePercent     int
	TaxPercent            int
	WeeklyDiscountPercent int
	Now                   time.Time
}

func New(params CreateParams) (*Property, error) {
	id := ID(strings.TrimSpace(string(params.ID)))
	if id == "" {
		return nil, ErrIDRequired
	}
	if params.MaxGuests < 1 {
		return nil, ErrGuestsLimit
	}
	if params.NightlyRate.Amount <= 0 || params.NightlyRate.Currency == "" {
		return nil, ErrNightlyRate
	}
	for _, p := range []int{params.ServiceFeePercent, params.TaxPercent, params.WeeklyDiscountPercent} {
		if p < 0 || p > 100 {
			return nil, ErrPercentRange
		}
	}
	cleaning := params.CleaningFee
	if cleaning.Currency == "" {
		cleaning = money.Zero(params.NightlyRate.Currency)
	}
	return &Property{
		ID:                    id,
		Name:                  strings.TrimSpace(params.Name),
		MaxGuests:             params.MaxGuests,
		NightlyRate:           params.NightlyRate,
		CleaningFee:           cleaning,
		ServiceFeePercent:     params.ServiceFeePercent,
		TaxPercent:            params.TaxPercent,
		WeeklyDiscountPercent: params.WeeklyDiscountPercent,
		Active:                true,
		UpdatedAt:             params.Now.UTC(),
	}, nil
}

// Fits reports whether the party size stays within capacity. Infants and
// pets do not count toward the limit.
func (p *Property) Fits(adults, children int) bool {
	return adults+children <= p.MaxGuests
}

func (p *Property) Currency() string {
	return p.NightlyRate.Currency
}
