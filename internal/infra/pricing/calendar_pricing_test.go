package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glampbook/internal/domain/availability"
	"glampbook/internal/domain/property"
	"glampbook/internal/domain/shared/daterange"
	"glampbook/internal/domain/shared/money"
)

func testProperty(t *testing.T) *property.Property {
	t.Helper()
	p, err := property.New(property.CreateParams{
		ID:          "yurt-1",
		Name:        "Forest Yurt",
		MaxGuests:   4,
		NightlyRate: money.Must(10000, "USD"),
		Now:         time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return p
}

func TestCalendarPricingUsesOverrides(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	p := testProperty(t)
	rec, err := availability.Initialize(p.ID, now, 30, now)
	require.NoError(t, err)
	weekend := int64(15000)
	require.NoError(t, rec.SetDateStatus("2025-06-07", availability.DayPatch{Price: &weekend}, now))

	dr, err := daterange.FromKeys("2025-06-06", "2025-06-09")
	require.NoError(t, err)
	quote, err := CalendarPricing{}.Quote(context.Background(), p, rec, dr)
	require.NoError(t, err)

	assert.Equal(t, 3, quote.Nights)
	assert.Equal(t, int64(35000), quote.Subtotal.Amount)
	assert.Equal(t, int64(35000), quote.Total.Amount)
}

func TestCalendarPricingClamps(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	p := testProperty(t)
	rec, err := availability.Initialize(p.ID, now, 30, now)
	require.NoError(t, err)
	steep := int64(90000)
	require.NoError(t, rec.SetDateStatus("2025-06-06", availability.DayPatch{Price: &steep}, now))

	dr, err := daterange.FromKeys("2025-06-06", "2025-06-08")
	require.NoError(t, err)
	pricer := CalendarPricing{Clamps: LoadClampConfig(`{"usd":{"min":12000,"max":50000}}`, nil)}
	quote, err := pricer.Quote(context.Background(), p, rec, dr)
	require.NoError(t, err)

	assert.Equal(t, int64(50000+12000), quote.Subtotal.Amount)
}

func TestLoadClampConfigInvalid(t *testing.T) {
	assert.Empty(t, LoadClampConfig("{not json", nil))
	assert.Empty(t, LoadClampConfig("", nil))
}
