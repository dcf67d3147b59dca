package fixtures

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glampbook/internal/domain/property"
	"glampbook/internal/pkg/errs"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "properties.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadProperties(t *testing.T) {
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	path := writeFile(t, `[
		{"id": "dome-1", "name": "Sky Dome", "max_guests": 2, "currency": "usd", "nightly_rate": 18000, "cleaning_fee": 4000, "service_fee_percent": 10},
		{"id": "yurt-9", "name": "Old Yurt", "max_guests": 4, "currency": "EUR", "nightly_rate": 9000, "inactive": true},
		{"id": "broken", "max_guests": 0, "currency": "USD", "nightly_rate": 100}
	]`)

	props, skipped, err := LoadProperties(path, now)
	require.NoError(t, err)
	require.Len(t, props, 2)

	assert.Equal(t, property.ID("dome-1"), props[0].ID)
	assert.Equal(t, "USD", props[0].CleaningFee.Currency)
	assert.Equal(t, int64(4000), props[0].CleaningFee.Amount)
	assert.True(t, props[0].Active)
	assert.False(t, props[1].Active)

	require.Contains(t, skipped, "broken")
	assert.True(t, errs.Is(skipped["broken"], property.ErrGuestsLimit))
}

func TestLoadPropertiesMissingFile(t *testing.T) {
	props, _, err := LoadProperties(filepath.Join(t.TempDir(), "nope.json"), time.Now())
	require.NoError(t, err)
	assert.Empty(t, props)
}

func TestLoadPropertiesBadJSON(t *testing.T) {
	_, _, err := LoadProperties(writeFile(t, `{`), time.Now())
	assert.Error(t, err)
}
