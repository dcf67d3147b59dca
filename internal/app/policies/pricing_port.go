package policies

import (
	"context"

	"glampbook/internal/domain/availability"
	"glampbook/internal/domain/pricing"
	"glampbook/internal/domain/property"
	"glampbook/internal/domain/shared/daterange"
)

// PricingPort prices a stay from the property rates and the calendar's
// per-night overrides.
type PricingPort interface {
	Quote(ctx context.Context, p *property.Property, calendar *availability.Record, dr daterange.DateRange) (pricing.Breakdown, error)
}
