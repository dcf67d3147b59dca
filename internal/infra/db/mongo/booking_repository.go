package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "glampbook/internal/domain/booking"
	domainpricing "glampbook/internal/domain/pricing"
	"glampbook/internal/domain/property"
	"glampbook/internal/domain/shared/daterange"
	"glampbook/internal/domain/shared/money"
	"glampbook/internal/pkg/errs"
)

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{col: db.Collection("bookings")}
}

// EnsureIndexes creates the per-user listing index.
func (r *BookingRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	return err
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.ID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errs.Is(err, mongo.ErrNoDocuments) {
			return nil, errs.Wrapf(domainbooking.ErrNotFound, "%s", id)
		}
		return nil, errs.Wrapf(err, "mongo: load booking %s", id)
	}
	return doc.toAggregate()
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	doc.Version = b.Version + 1
	if b.Version == 0 {
		if _, err := r.col.InsertOne(ctx, doc); err != nil {
			return conflictOrErr(err, domainbooking.ErrConcurrentUpdate)
		}
		b.Version = doc.Version
		return nil
	}
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID, "version": b.Version}, doc)
	if err != nil {
		return conflictOrErr(err, domainbooking.ErrConcurrentUpdate)
	}
	if res.MatchedCount == 0 {
		return errs.Wrapf(domainbooking.ErrConcurrentUpdate, "booking %s version %d", b.ID, b.Version)
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) ListByUser(ctx context.Context, userID string) ([]*domainbooking.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, errs.Wrapf(err, "mongo: list bookings of %s", userID)
	}
	var docs []bookingDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domainbooking.Booking, 0, len(docs))
	for _, d := range docs {
		b, err := d.toAggregate()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

type lineDocument struct {
	Name   string      `bson:"name"`
	Amount money.Money `bson:"amount"`
}

type pricingDocument struct {
	NightlyRate money.Money    `bson:"nightlyRate"`
	Nights      int            `bson:"nights"`
	Subtotal    money.Money    `bson:"subtotal"`
	Fees        []lineDocument `bson:"fees"`
	Taxes       []lineDocument `bson:"taxes"`
	AddOns      []lineDocument `bson:"addOns"`
	Discount    *lineDocument  `bson:"discount,omitempty"`
	Total       money.Money    `bson:"total"`
}

type guestsDocument struct {
	Adults   int `bson:"adults"`
	Children int `bson:"children"`
	Infants  int `bson:"infants"`
	Pets     int `bson:"pets"`
}

type paymentDocument struct {
	Status        string      `bson:"status"`
	Method        string      `bson:"method,omitempty"`
	TransactionID string      `bson:"transactionId,omitempty"`
	RefundAmount  money.Money `bson:"refundAmount"`
	PaidAt        time.Time   `bson:"paidAt,omitempty"`
}

type cancellationDocument struct {
	CanceledAt   time.Time   `bson:"canceledAt"`
	Reason       string      `bson:"reason,omitempty"`
	CanceledBy   string      `bson:"canceledBy"`
	RefundAmount money.Money `bson:"refundAmount"`
}

type bookingDocument struct {
	ID           string                `bson:"_id"`
	PropertyID   string                `bson:"propertyId"`
	UserID       string                `bson:"userId"`
	Status       string                `bson:"status"`
	CheckIn      string                `bson:"checkIn"`
	CheckOut     string                `bson:"checkOut"`
	Guests       guestsDocument        `bson:"guests"`
	Pricing      pricingDocument       `bson:"pricing"`
	Payment      paymentDocument       `bson:"payment"`
	Cancellation *cancellationDocument `bson:"cancellation,omitempty"`
	PublicNotes  string                `bson:"publicNotes,omitempty"`
	PrivateNotes string                `bson:"privateNotes,omitempty"`
	CreatedAt    time.Time             `bson:"createdAt"`
	UpdatedAt    time.Time             `bson:"updatedAt"`
	Version      int64                 `bson:"version"`
}

func toLineDocs(lines []domainpricing.Line) []lineDocument {
	out := make([]lineDocument, 0, len(lines))
	for _, l := range lines {
		out = append(out, lineDocument{Name: l.Name, Amount: l.Amount})
	}
	return out
}

func fromLineDocs(docs []lineDocument) []domainpricing.Line {
	if len(docs) == 0 {
		return nil
	}
	out := make([]domainpricing.Line, 0, len(docs))
	for _, d := range docs {
		out = append(out, domainpricing.Line{Name: d.Name, Amount: d.Amount})
	}
	return out
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	doc := bookingDocument{
		ID:         string(b.ID),
		PropertyID: string(b.PropertyID),
		UserID:     b.UserID,
		Status:     string(b.Status),
		CheckIn:    daterange.DayKey(b.Range.CheckIn),
		CheckOut:   daterange.DayKey(b.Range.CheckOut),
		Guests:     guestsDocument(b.Guests),
		Pricing: pricingDocument{
			NightlyRate: b.Pricing.NightlyRate,
			Nights:      b.Pricing.Nights,
			Subtotal:    b.Pricing.Subtotal,
			Fees:        toLineDocs(b.Pricing.Fees),
			Taxes:       toLineDocs(b.Pricing.Taxes),
			AddOns:      toLineDocs(b.Pricing.AddOns),
			Total:       b.Pricing.Total,
		},
		Payment: paymentDocument{
			Status:        string(b.Payment.Status),
			Method:        b.Payment.Method,
			TransactionID: b.Payment.TransactionID,
			RefundAmount:  b.Payment.RefundAmount,
			PaidAt:        b.Payment.PaidAt,
		},
		PublicNotes:  b.Notes.Public,
		PrivateNotes: b.Notes.Private,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
		Version:      b.Version,
	}
	if d := b.Pricing.Discount; d != nil {
		doc.Pricing.Discount = &lineDocument{Name: d.Name, Amount: d.Amount}
	}
	if c := b.Cancellation; c != nil {
		doc.Cancellation = &cancellationDocument{
			CanceledAt:   c.CanceledAt,
			Reason:       c.Reason,
			CanceledBy:   c.CanceledBy,
			RefundAmount: c.RefundAmount,
		}
	}
	return doc
}

func (d bookingDocument) toAggregate() (*domainbooking.Booking, error) {
	stay, err := daterange.FromKeys(d.CheckIn, d.CheckOut)
	if err != nil {
		return nil, errs.Wrapf(err, "mongo: booking %s has a corrupt stay", d.ID)
	}
	b := &domainbooking.Booking{
		ID:         domainbooking.ID(d.ID),
		PropertyID: property.ID(d.PropertyID),
		UserID:     d.UserID,
		Status:     domainbooking.Status(d.Status),
		Range:      stay,
		Guests:     domainbooking.Guests(d.Guests),
		Pricing: domainpricing.Breakdown{
			NightlyRate: d.Pricing.NightlyRate,
			Nights:      d.Pricing.Nights,
			Subtotal:    d.Pricing.Subtotal,
			Fees:        fromLineDocs(d.Pricing.Fees),
			Taxes:       fromLineDocs(d.Pricing.Taxes),
			AddOns:      fromLineDocs(d.Pricing.AddOns),
			Total:       d.Pricing.Total,
		},
		Payment: domainbooking.Payment{
			Status:        domainbooking.PaymentStatus(d.Payment.Status),
			Method:        d.Payment.Method,
			TransactionID: d.Payment.TransactionID,
			RefundAmount:  d.Payment.RefundAmount,
			PaidAt:        d.Payment.PaidAt.UTC(),
		},
		Notes:     domainbooking.Notes{Public: d.PublicNotes, Private: d.PrivateNotes},
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
		Version:   d.Version,
	}
	if d.Pricing.Discount != nil {
		b.Pricing.Discount = &domainpricing.Line{Name: d.Pricing.Discount.Name, Amount: d.Pricing.Discount.Amount}
	}
	if c := d.Cancellation; c != nil {
		b.Cancellation = &domainbooking.Cancellation{
			CanceledAt:   c.CanceledAt.UTC(),
			Reason:       c.Reason,
			CanceledBy:   c.CanceledBy,
			RefundAmount: c.RefundAmount,
		}
	}
	return b, nil
}

var _ domainbooking.Repository = (*BookingRepository)(nil)
