package pricing

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"glampbook/internal/app/policies"
	"glampbook/internal/domain/availability"
	domainpricing "glampbook/internal/domain/pricing"
	"glampbook/internal/domain/property"
	"glampbook/internal/domain/shared/daterange"
	"glampbook/internal/domain/shared/money"
)

// ClampRange bounds a nightly amount in minor units. Zero disables a side.
type ClampRange struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// ClampConfig holds nightly bounds per currency.
type ClampConfig map[string]ClampRange

// LoadClampConfig parses NIGHTLY_PRICE_CLAMPS. Invalid JSON disables clamping.
func LoadClampConfig(raw string, logger *slog.Logger) ClampConfig {
	if strings.TrimSpace(raw) == "" {
		return ClampConfig{}
	}
	var cfg ClampConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		if logger != nil {
			logger.Warn("invalid NIGHTLY_PRICE_CLAMPS JSON, clamping disabled", "error", err)
		}
		return ClampConfig{}
	}
	normalized := make(ClampConfig, len(cfg))
	for currency, rng := range cfg {
		normalized[strings.ToUpper(strings.TrimSpace(currency))] = rng
	}
	return normalized
}

func (c ClampConfig) apply(m money.Money) (money.Money, bool) {
	rng, ok := c[m.Currency]
	if !ok {
		return m, false
	}
	if rng.Min > 0 && m.Amount < rng.Min {
		return money.Money{Amount: rng.Min, Currency: m.Currency}, true
	}
	if rng.Max > 0 && m.Amount > rng.Max {
		return money.Money{Amount: rng.Max, Currency: m.Currency}, true
	}
	return m, false
}

// CalendarPricing quotes a stay night by night: a day's price override wins
// over the property rate, then the configured clamps apply.
type CalendarPricing struct {
	Clamps ClampConfig
	Logger *slog.Logger
}

func (c CalendarPricing) Quote(ctx context.Context, p *property.Property, calendar *availability.Record, dr daterange.DateRange) (domainpricing.Breakdown, error) {
	days := dr.Days()
	nightly := make([]money.Money, 0, len(days))
	for _, day := range days {
		amount := p.NightlyRate
		if calendar != nil {
			if override, ok := calendar.PriceOn(day); ok {
				amount = money.Money{Amount: override, Currency: p.Currency()}
			}
		}
		if clamped, ok := c.Clamps.apply(amount); ok {
			if c.Logger != nil {
				c.Logger.DebugContext(ctx, "nightly price clamped", "property_id", p.ID, "day", day, "from", amount.Amount, "to", clamped.Amount)
			}
			amount = clamped
		}
		nightly = append(nightly, amount)
	}
	return domainpricing.Quote(p, nightly)
}

var _ policies.PricingPort = CalendarPricing{}
