package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	domainavailability "glampbook/internal/domain/availability"
	"glampbook/internal/domain/property"
	"glampbook/internal/domain/shared/daterange"
	"glampbook/internal/pkg/errs"
)

type AvailabilityRepository struct {
	col *mongo.Collection
}

func NewAvailabilityRepository(db *mongo.Database) *AvailabilityRepository {
	return &AvailabilityRepository{col: db.Collection("availability")}
}

func (r *AvailabilityRepository) Get(ctx context.Context, id property.ID) (*domainavailability.Record, error) {
	var doc calendarDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errs.Is(err, mongo.ErrNoDocuments) {
			return nil, errs.Wrapf(domainavailability.ErrRecordNotFound, "%s", id)
		}
		return nil, errs.Wrapf(err, "mongo: load calendar %s", id)
	}
	return doc.toAggregate()
}

// Save is a compare-and-set on version. Version zero means the record is
// new and must not exist yet.
func (r *AvailabilityRepository) Save(ctx context.Context, rec *domainavailability.Record) error {
	doc := newCalendarDocument(rec)
	doc.Version = rec.Version + 1
	if rec.Version == 0 {
		if _, err := r.col.InsertOne(ctx, doc); err != nil {
			return conflictOrErr(err, domainavailability.ErrConcurrentUpdate)
		}
		rec.Version = doc.Version
		return nil
	}
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID, "version": rec.Version}, doc)
	if err != nil {
		return conflictOrErr(err, domainavailability.ErrConcurrentUpdate)
	}
	if res.MatchedCount == 0 {
		return errs.Wrapf(domainavailability.ErrConcurrentUpdate, "calendar %s version %d", rec.PropertyID, rec.Version)
	}
	rec.Version = doc.Version
	return nil
}

type dayDocument struct {
	IsAvailable bool   `bson:"isAvailable"`
	Price       *int64 `bson:"price,omitempty"`
	MinimumStay *int   `bson:"minimumStay,omitempty"`
	Notes       string `bson:"notes,omitempty"`
	BookingID   string `bson:"bookingId,omitempty"`
}

type blockDocument struct {
	StartDate string    `bson:"startDate"`
	EndDate   string    `bson:"endDate"`
	Reason    string    `bson:"reason,omitempty"`
	CreatedAt time.Time `bson:"createdAt"`
}

type calendarDocument struct {
	ID            string                 `bson:"_id"`
	Dates         map[string]dayDocument `bson:"dates"`
	BlockedRanges []blockDocument        `bson:"blockedRanges"`
	LastUpdated   time.Time              `bson:"lastUpdated"`
	Version       int64                  `bson:"version"`
}

func newCalendarDocument(rec *domainavailability.Record) calendarDocument {
	doc := calendarDocument{
		ID:            string(rec.PropertyID),
		Dates:         make(map[string]dayDocument, len(rec.Dates)),
		BlockedRanges: make([]blockDocument, 0, len(rec.BlockedRanges)),
		LastUpdated:   rec.LastUpdated,
		Version:       rec.Version,
	}
	for day, e := range rec.Dates {
		doc.Dates[day] = dayDocument(e)
	}
	for _, b := range rec.BlockedRanges {
		doc.BlockedRanges = append(doc.BlockedRanges, blockDocument{
			StartDate: daterange.DayKey(b.Range.CheckIn),
			EndDate:   daterange.DayKey(b.Range.CheckOut),
			Reason:    b.Reason,
			CreatedAt: b.CreatedAt,
		})
	}
	return doc
}

func (d calendarDocument) toAggregate() (*domainavailability.Record, error) {
	rec := &domainavailability.Record{
		PropertyID:  property.ID(d.ID),
		Dates:       make(map[string]domainavailability.DayEntry, len(d.Dates)),
		LastUpdated: d.LastUpdated.UTC(),
		Version:     d.Version,
	}
	for day, e := range d.Dates {
		rec.Dates[day] = domainavailability.DayEntry(e)
	}
	for _, b := range d.BlockedRanges {
		dr, err := daterange.FromKeys(b.StartDate, b.EndDate)
		if err != nil {
			return nil, errs.Wrapf(err, "mongo: calendar %s has a corrupt blocked range", d.ID)
		}
		rec.BlockedRanges = append(rec.BlockedRanges, domainavailability.BlockedRange{
			Range:     dr,
			Reason:    b.Reason,
			CreatedAt: b.CreatedAt.UTC(),
		})
	}
	return rec, nil
}

var _ domainavailability.Repository = (*AvailabilityRepository)(nil)
