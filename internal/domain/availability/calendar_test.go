package availability_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glampbook/internal/domain/availability"
	"glampbook/internal/domain/property"
	"glampbook/internal/domain/shared/daterange"
	"glampbook/internal/pkg/errs"
)

var now = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

func newRecord(t *testing.T) *availability.Record {
	t.Helper()
	rec, err := availability.Initialize("prop-1", now, availability.DefaultHorizonDays, now)
	require.NoError(t, err)
	return rec
}

func rng(t *testing.T, in, out string) daterange.DateRange {
	t.Helper()
	dr, err := daterange.FromKeys(in, out)
	require.NoError(t, err)
	return dr
}

func ptr[T any](v T) *T { return &v }

func TestInitializePopulatesHorizon(t *testing.T) {
	rec := newRecord(t)

	assert.Len(t, rec.Dates, availability.DefaultHorizonDays)
	first, ok := rec.Entry("2025-05-01")
	require.True(t, ok)
	assert.True(t, first.IsAvailable)
	_, ok = rec.Entry("2026-05-01")
	assert.False(t, ok)

	_, err := availability.Initialize("", now, 10, now)
	assert.True(t, errs.Is(err, errs.ErrInvalidInput))
}

func TestSetDateStatusPreservesUnspecifiedFields(t *testing.T) {
	rec := newRecord(t)
	require.NoError(t, rec.SetDateStatus("2025-06-01", availability.DayPatch{Price: ptr(int64(15000)), MinimumStay: ptr(2)}, now))

	require.NoError(t, rec.SetDateStatus("2025-06-01", availability.DayPatch{IsAvailable: ptr(false)}, now))

	entry, _ := rec.Entry("2025-06-01")
	assert.False(t, entry.IsAvailable)
	require.NotNil(t, entry.Price)
	assert.Equal(t, int64(15000), *entry.Price)
	assert.Equal(t, 2, rec.MinimumStayOn("2025-06-01"))
}

func TestSetDateRangeStatusIsAllOrNothing(t *testing.T) {
	rec := newRecord(t)
	err := rec.SetDateRangeStatus(map[string]availability.DayPatch{
		"2025-06-01": {IsAvailable: ptr(false)},
		"2025-06-02": {Price: ptr(int64(-1))},
	}, now)

	require.Error(t, err)
	assert.True(t, errs.Is(err, availability.ErrInvalidPrice))
	entry, _ := rec.Entry("2025-06-01")
	assert.True(t, entry.IsAvailable)
}

func TestSetDateStatusCannotReopenHeldOrBlockedDay(t *testing.T) {
	rec := newRecord(t)
	require.NoError(t, rec.MarkBooked(rng(t, "2025-06-01", "2025-06-03"), "bk-1", now))
	require.NoError(t, rec.AddBlockedRange(rng(t, "2025-06-10", "2025-06-12"), "repairs", now))

	err := rec.SetDateStatus("2025-06-02", availability.DayPatch{IsAvailable: ptr(true)}, now)
	assert.True(t, errs.Is(err, availability.ErrDayHeldByBooking))

	err = rec.SetDateStatus("2025-06-11", availability.DayPatch{IsAvailable: ptr(true)}, now)
	assert.True(t, errs.Is(err, availability.ErrDayBlocked))
}

func TestSetDateStatusCannotCloseHeldDay(t *testing.T) {
	rec := newRecord(t)
	stay := rng(t, "2025-06-01", "2025-06-03")
	require.NoError(t, rec.MarkBooked(stay, "bk-1", now))

	err := rec.SetDateStatus("2025-06-02", availability.DayPatch{IsAvailable: ptr(false)}, now)
	assert.True(t, errs.Is(err, availability.ErrDayHeldByBooking))

	require.NoError(t, rec.SetDateStatus("2025-06-02", availability.DayPatch{Price: ptr(int64(12000))}, now))

	// A close that must outlive the booking goes through a blocked range.
	require.NoError(t, rec.AddBlockedRange(rng(t, "2025-06-02", "2025-06-03"), "owner close", now))
	reopened, err := rec.ReleaseBooking(stay, "bk-1", now)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-06-01"}, reopened)
	entry, _ := rec.Entry("2025-06-02")
	assert.False(t, entry.IsAvailable)
}

func TestAddBlockedRangeMarksDaysAndRejectsOverlap(t *testing.T) {
	rec := newRecord(t)
	block := rng(t, "2025-07-10", "2025-07-15")

	require.NoError(t, rec.AddBlockedRange(block, "maintenance", now))

	for _, day := range block.Days() {
		entry, _ := rec.Entry(day)
		assert.False(t, entry.IsAvailable, day)
	}
	entry, _ := rec.Entry("2025-07-15")
	assert.True(t, entry.IsAvailable)

	err := rec.AddBlockedRange(rng(t, "2025-07-14", "2025-07-20"), "", now)
	assert.True(t, errs.Is(err, availability.ErrOverlappingBlock))
	assert.NoError(t, rec.AddBlockedRange(rng(t, "2025-07-15", "2025-07-20"), "", now))
	assert.Len(t, rec.BlockedRanges, 2)
}

func TestRemoveBlockedRangeRescansRemainingHolds(t *testing.T) {
	rec := newRecord(t)
	first := rng(t, "2025-07-10", "2025-07-15")
	second := rng(t, "2025-07-15", "2025-07-18")
	require.NoError(t, rec.AddBlockedRange(first, "", now))
	require.NoError(t, rec.AddBlockedRange(second, "", now))
	// A stale record may still carry holds that overlap.
	rec.BlockedRanges = append(rec.BlockedRanges, availability.BlockedRange{Range: rng(t, "2025-07-13", "2025-07-16")})

	require.NoError(t, rec.RemoveBlockedRange(first, now))

	for day, want := range map[string]bool{
		"2025-07-10": true,
		"2025-07-12": true,
		"2025-07-13": false,
		"2025-07-14": false,
		"2025-07-15": false,
	} {
		entry, _ := rec.Entry(day)
		assert.Equal(t, want, entry.IsAvailable, day)
	}

	err := rec.RemoveBlockedRange(first, now)
	assert.True(t, errs.Is(err, errs.ErrNotFound))
}

func TestRemoveBlockedRangeKeepsBookedDays(t *testing.T) {
	rec := newRecord(t)
	require.NoError(t, rec.MarkBooked(rng(t, "2025-07-10", "2025-07-12"), "bk-1", now))
	block := rng(t, "2025-07-11", "2025-07-14")
	require.NoError(t, rec.AddBlockedRange(block, "", now))

	require.NoError(t, rec.RemoveBlockedRange(block, now))

	entry, _ := rec.Entry("2025-07-11")
	assert.False(t, entry.IsAvailable)
	assert.Equal(t, "bk-1", entry.BookingID)
	entry, _ = rec.Entry("2025-07-12")
	assert.True(t, entry.IsAvailable)
}

func TestIsRangeAvailable(t *testing.T) {
	rec := newRecord(t)
	require.NoError(t, rec.AddBlockedRange(rng(t, "2025-07-10", "2025-07-15"), "", now))

	assert.True(t, rec.IsRangeAvailable(rng(t, "2025-06-01", "2025-06-04")))
	assert.False(t, rec.IsRangeAvailable(rng(t, "2025-07-12", "2025-07-14")))
	assert.True(t, rec.IsRangeAvailable(rng(t, "2025-07-15", "2025-07-17")))
	assert.True(t, rec.IsRangeAvailable(rng(t, "2025-07-05", "2025-07-10")))
	// Past the initialized horizon days are unknown.
	assert.False(t, rec.IsRangeAvailable(rng(t, "2026-04-29", "2026-05-03")))
}

func TestIsRangeAvailableChecksHoldsIndependently(t *testing.T) {
	rec := newRecord(t)
	rec.BlockedRanges = append(rec.BlockedRanges, availability.BlockedRange{Range: rng(t, "2025-07-10", "2025-07-15")})

	assert.False(t, rec.IsRangeAvailable(rng(t, "2025-07-12", "2025-07-14")))
}

func TestMarkBookedAndRelease(t *testing.T) {
	rec := newRecord(t)
	stay := rng(t, "2025-06-01", "2025-06-04")

	require.NoError(t, rec.MarkBooked(stay, "bk-1", now))

	for _, day := range []string{"2025-06-01", "2025-06-02", "2025-06-03"} {
		entry, _ := rec.Entry(day)
		assert.False(t, entry.IsAvailable)
		assert.Equal(t, availability.BookedNote, entry.Notes)
	}
	entry, _ := rec.Entry("2025-06-04")
	assert.True(t, entry.IsAvailable)

	err := rec.MarkBooked(rng(t, "2025-06-03", "2025-06-05"), "bk-2", now)
	assert.True(t, errs.Is(err, errs.ErrUnavailable))

	reopened, err := rec.ReleaseBooking(stay, "bk-1", now)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-06-01", "2025-06-02", "2025-06-03"}, reopened)
	assert.True(t, rec.IsRangeAvailable(stay))
}

func TestReleaseBookingLeavesOtherHoldersAndBlocks(t *testing.T) {
	rec := newRecord(t)
	require.NoError(t, rec.MarkBooked(rng(t, "2025-08-01", "2025-08-05"), "bk-1", now))
	require.NoError(t, rec.MarkBooked(rng(t, "2025-08-05", "2025-08-07"), "bk-2", now))
	require.NoError(t, rec.AddBlockedRange(rng(t, "2025-08-03", "2025-08-04"), "owner stay", now))

	reopened, err := rec.ReleaseBooking(rng(t, "2025-08-01", "2025-08-07"), "bk-1", now)
	require.NoError(t, err)

	assert.Equal(t, []string{"2025-08-01", "2025-08-02", "2025-08-04"}, reopened)
	entry, _ := rec.Entry("2025-08-03")
	assert.False(t, entry.IsAvailable)
	assert.Empty(t, entry.BookingID)
	entry, _ = rec.Entry("2025-08-05")
	assert.False(t, entry.IsAvailable)
	assert.Equal(t, "bk-2", entry.BookingID)
}

func TestCloneIsDeep(t *testing.T) {
	rec := newRecord(t)
	require.NoError(t, rec.SetDateStatus("2025-06-01", availability.DayPatch{Price: ptr(int64(100))}, now))

	clone := rec.Clone()
	require.NoError(t, clone.SetDateStatus("2025-06-01", availability.DayPatch{Price: ptr(int64(200)), IsAvailable: ptr(false)}, now))

	price, _ := rec.PriceOn("2025-06-01")
	assert.Equal(t, int64(100), price)
	entry, _ := rec.Entry("2025-06-01")
	assert.True(t, entry.IsAvailable)
	assert.Empty(t, clone.PendingEvents())
}

type stubRepo struct {
	rec *availability.Record
}

func (s stubRepo) Get(_ context.Context, id property.ID) (*availability.Record, error) {
	if s.rec == nil || s.rec.PropertyID != id {
		return nil, availability.ErrRecordNotFound
	}
	return s.rec, nil
}

func (s stubRepo) Save(context.Context, *availability.Record) error { return nil }

func TestQueryService(t *testing.T) {
	svc := availability.QueryService{Repo: stubRepo{rec: newRecord(t)}}
	ctx := context.Background()
	in := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	ok, err := svc.IsRangeAvailable(ctx, "prop-1", in, in.AddDate(0, 0, 3))
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = svc.IsRangeAvailable(ctx, "missing", in, in.AddDate(0, 0, 3))
	assert.True(t, errs.Is(err, errs.ErrNotFound))

	_, err = svc.IsRangeAvailable(ctx, "prop-1", in, in)
	assert.True(t, errs.Is(err, errs.ErrInvalidInput))
}
