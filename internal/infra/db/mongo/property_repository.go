package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"glampbook/internal/domain/property"
	"glampbook/internal/domain/shared/money"
	"glampbook/internal/pkg/errs"
)

// PropertyRepository reads the property projection. Upsert is only used to
// load fixtures; the catalogue owns the data.
type PropertyRepository struct {
	col *mongo.Collection
}

func NewPropertyRepository(db *mongo.Database) *PropertyRepository {
	return &PropertyRepository{col: db.Collection("properties")}
}

func (r *PropertyRepository) ByID(ctx context.Context, id property.ID) (*property.Property, error) {
	var doc propertyDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errs.Is(err, mongo.ErrNoDocuments) {
			return nil, errs.Wrapf(property.ErrNotFound, "%s", id)
		}
		return nil, errs.Wrapf(err, "mongo: load property %s", id)
	}
	return doc.toAggregate(), nil
}

func (r *PropertyRepository) Upsert(ctx context.Context, p *property.Property) error {
	doc := propertyDocument{
		ID:                    string(p.ID),
		Name:                  p.Name,
		MaxGuests:             p.MaxGuests,
		NightlyRate:           p.NightlyRate,
		CleaningFee:           p.CleaningFee,
		ServiceFeePercent:     p.ServiceFeePercent,
		TaxPercent:            p.TaxPercent,
		WeeklyDiscountPercent: p.WeeklyDiscountPercent,
		Active:                p.Active,
		UpdatedAt:             p.UpdatedAt,
	}
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

type propertyDocument struct {
	ID                    string      `bson:"_id"`
	Name                  string      `bson:"name"`
	MaxGuests             int         `bson:"maxGuests"`
	NightlyRate           money.Money `bson:"nightlyRate"`
	CleaningFee           money.Money `bson:"cleaningFee"`
	ServiceFeePercent     int         `bson:"serviceFeePercent"`
	TaxPercent            int         `bson:"taxPercent"`
	WeeklyDiscountPercent int         `bson:"weeklyDiscountPercent"`
	Active                bool        `bson:"active"`
	UpdatedAt             time.Time   `bson:"updatedAt"`
}

func (d propertyDocument) toAggregate() *property.Property {
	return &property.Property{
		ID:                    property.ID(d.ID),
		Name:                  d.Name,
		MaxGuests:             d.MaxGuests,
		NightlyRate:           d.NightlyRate,
		CleaningFee:           d.CleaningFee,
		ServiceFeePercent:     d.ServiceFeePercent,
		TaxPercent:            d.TaxPercent,
		WeeklyDiscountPercent: d.WeeklyDiscountPercent,
		Active:                d.Active,
		UpdatedAt:             d.UpdatedAt.UTC(),
	}
}

var _ property.Directory = (*PropertyRepository)(nil)
