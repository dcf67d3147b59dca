package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"glampbook/internal/app/middleware"
	"glampbook/internal/pkg/errs"
)

type IdempotencyStore struct {
	col *mongo.Collection
}

// NewIdempotencyStore expires records ttl after creation.
func NewIdempotencyStore(ctx context.Context, db *mongo.Database, ttl time.Duration) (*IdempotencyStore, error) {
	col := db.Collection("idempotency")
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	_, err := col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "createdAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(int32(ttl.Seconds())),
	})
	if err != nil {
		return nil, errs.Wrap(err, "mongo: idempotency ttl index")
	}
	return &IdempotencyStore{col: col}, nil
}

// Claim relies on the unique _id: the insert wins or the key is taken.
func (s *IdempotencyStore) Claim(ctx context.Context, rec middleware.IdempotencyRecord, staleBefore time.Time) (middleware.IdempotencyRecord, bool, error) {
	rec.Pending = true
	_, err := s.col.InsertOne(ctx, newIdempotencyDocument(rec))
	if err == nil {
		return rec, true, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return middleware.IdempotencyRecord{}, false, errs.Wrapf(err, "mongo: claim idempotency key %s", rec.Key)
	}
	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": rec.Key, "pending": true, "occurredAt": bson.M{"$lt": staleBefore}},
		bson.M{"$set": bson.M{"occurredAt": rec.OccurredAt, "createdAt": time.Now().UTC()}},
	)
	if err != nil {
		return middleware.IdempotencyRecord{}, false, errs.Wrapf(err, "mongo: take over idempotency key %s", rec.Key)
	}
	if res.ModifiedCount == 1 {
		return rec, true, nil
	}
	var doc idempotencyDocument
	if err := s.col.FindOne(ctx, bson.M{"_id": rec.Key}).Decode(&doc); err != nil {
		if errs.Is(err, mongo.ErrNoDocuments) {
			// Released between the insert and the read.
			return middleware.IdempotencyRecord{}, false, errs.Wrapf(middleware.ErrRequestInFlight, "key %s", rec.Key)
		}
		return middleware.IdempotencyRecord{}, false, err
	}
	return doc.toRecord(), false, nil
}

func (s *IdempotencyStore) Complete(ctx context.Context, rec middleware.IdempotencyRecord) error {
	rec.Pending = false
	_, err := s.col.ReplaceOne(ctx, bson.M{"_id": rec.Key}, newIdempotencyDocument(rec), options.Replace().SetUpsert(true))
	if err != nil {
		return errs.Wrapf(err, "mongo: complete idempotency key %s", rec.Key)
	}
	return nil
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if _, err := s.col.DeleteOne(ctx, bson.M{"_id": key, "pending": true}); err != nil {
		return errs.Wrapf(err, "mongo: release idempotency key %s", key)
	}
	return nil
}

func newIdempotencyDocument(rec middleware.IdempotencyRecord) idempotencyDocument {
	return idempotencyDocument{
		ID:         rec.Key,
		Payload:    rec.Payload,
		Error:      rec.Error,
		ErrorKind:  rec.ErrorKind,
		Pending:    rec.Pending,
		OccurredAt: rec.OccurredAt,
		CreatedAt:  time.Now().UTC(),
	}
}

type idempotencyDocument struct {
	ID         string    `bson:"_id"`
	Payload    []byte    `bson:"payload,omitempty"`
	Error      string    `bson:"error,omitempty"`
	ErrorKind  string    `bson:"errorKind,omitempty"`
	Pending    bool      `bson:"pending"`
	OccurredAt time.Time `bson:"occurredAt"`
	CreatedAt  time.Time `bson:"createdAt"`
}

func (d idempotencyDocument) toRecord() middleware.IdempotencyRecord {
	return middleware.IdempotencyRecord{
		Key:        d.ID,
		Payload:    d.Payload,
		Error:      d.Error,
		ErrorKind:  d.ErrorKind,
		Pending:    d.Pending,
		OccurredAt: d.OccurredAt,
	}
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
