package availability

import (
	"context"
	"time"

	"glampbook/internal/domain/property"
	"glampbook/internal/domain/shared/daterange"
)

// QueryService answers availability questions without mutating records.
type QueryService struct {
	Repo Repository
}

// IsRangeAvailable fails with ErrRecordNotFound when the property has no
// calendar. A missing calendar is an error, not a negative answer.
func (s QueryService) IsRangeAvailable(ctx context.Context, id property.ID, checkIn, checkOut time.Time) (bool, error) {
	dr, err := daterange.New(checkIn, checkOut)
	if err != nil {
		return false, err
	}
	record, err := s.Repo.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return record.IsRangeAvailable(dr), nil
}
