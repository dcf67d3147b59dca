package validation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glampbook/internal/pkg/errs"
)

type stay struct {
	PropertyID string    `validate:"required"`
	CheckIn    time.Time `validate:"required"`
	CheckOut   time.Time `validate:"required,gtfield=CheckIn"`
	Adults     int       `json:"adults" validate:"min=1"`
	Day        string    `validate:"omitempty,datetime=2006-01-02"`
}

func TestValidateAcceptsGoodMessage(t *testing.T) {
	in := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	msg := stay{PropertyID: "tent", CheckIn: in, CheckOut: in.AddDate(0, 0, 2), Adults: 2, Day: "2025-06-01"}
	assert.NoError(t, New().Validate(context.Background(), msg))
	assert.NoError(t, New().Validate(context.Background(), &msg))
}

func TestValidateReportsEveryField(t *testing.T) {
	in := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	msg := stay{CheckIn: in, CheckOut: in, Day: "06/01/2025"}

	err := New().Validate(context.Background(), msg)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrInvalidInput))
	assert.Contains(t, err.Error(), "PropertyID is required")
	assert.Contains(t, err.Error(), "CheckOut must be after CheckIn")
	assert.Contains(t, err.Error(), "adults must be at least 1")
	assert.Contains(t, err.Error(), "Day must match")
}

func TestValidateIgnoresNonStructs(t *testing.T) {
	assert.NoError(t, New().Validate(context.Background(), "plain"))
	assert.NoError(t, New().Validate(context.Background(), nil))
}
