package mongo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glampbook/internal/domain/shared/daterange"
)

func TestBookingDocumentRejectsCorruptStay(t *testing.T) {
	tests := []struct {
		name      string
		checkIn   string
		checkOut  string
		wantError bool
	}{
		{name: "valid", checkIn: "2025-06-01", checkOut: "2025-06-03"},
		{name: "garbled check-out", checkIn: "2025-06-01", checkOut: "06/03/2025", wantError: true},
		{name: "missing check-in", checkOut: "2025-06-03", wantError: true},
		{name: "inverted", checkIn: "2025-06-03", checkOut: "2025-06-01", wantError: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := bookingDocument{ID: "bk-1", Status: "pending", CheckIn: tt.checkIn, CheckOut: tt.checkOut}

			b, err := doc.toAggregate()

			if tt.wantError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "bk-1")
				assert.Nil(t, b)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.checkIn, daterange.DayKey(b.Range.CheckIn))
			assert.Equal(t, []string{"2025-06-01", "2025-06-02"}, b.Range.Days())
		})
	}
}
