package fixtures

import (
	"encoding/json"
	"os"
	"time"

	"glampbook/internal/domain/property"
	"glampbook/internal/domain/shared/money"
	"glampbook/internal/pkg/errs"
)

type propertyFixture struct {
	ID                    string `json:"id"`
	Name                  string `json:"name"`
	MaxGuests             int    `json:"max_guests"`
	Currency              string `json:"currency"`
	NightlyRate           int64  `json:"nightly_rate"`
	CleaningFee           int64  `json:"cleaning_fee"`
	ServiceFeePercent     int    `json:"service_fee_percent"`
	TaxPercent            int    `json:"tax_percent"`
	WeeklyDiscountPercent int    `json:"weekly_discount_percent"`
	Inactive              bool   `json:"inactive"`
}

// LoadProperties reads the property projection seed from path. A missing
// file yields no properties. Invalid entries are reported in skipped and do
// not stop the load.
func LoadProperties(path string, now time.Time) (props []*property.Property, skipped map[string]error, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errs.Is(err, os.ErrNotExist) {
			return nil, nil, nil
		}
		return nil, nil, errs.Wrap(err, "read fixtures")
	}
	if len(data) == 0 {
		return nil, nil, nil
	}
	var raw []propertyFixture
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, errs.Wrap(err, "decode fixtures")
	}
	skipped = map[string]error{}
	for _, fx := range raw {
		p, err := fx.build(now)
		if err != nil {
			skipped[fx.ID] = err
			continue
		}
		props = append(props, p)
	}
	return props, skipped, nil
}

func (fx propertyFixture) build(now time.Time) (*property.Property, error) {
	rate, err := money.New(fx.NightlyRate, fx.Currency)
	if err != nil {
		return nil, err
	}
	p, err := property.New(property.CreateParams{
		ID:                    property.ID(fx.ID),
		Name:                  fx.Name,
		MaxGuests:             fx.MaxGuests,
		NightlyRate:           rate,
		CleaningFee:           money.Money{Amount: fx.CleaningFee, Currency: rate.Currency},
		ServiceFeePercent:     fx.ServiceFeePercent,
		TaxPercent:            fx.TaxPercent,
		WeeklyDiscountPercent: fx.WeeklyDiscountPercent,
		Now:                   now,
	})
	if err != nil {
		return nil, err
	}
	p.Active = !fx.Inactive
	return p, nil
}
