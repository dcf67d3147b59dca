package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"glampbook/internal/app/reconcile"
	"glampbook/internal/domain/shared/money"
	"glampbook/internal/pkg/errs"
)

var ErrFailureNotFound = errs.Mark(errs.New("mongo: reconciliation entry not found"), errs.ErrNotFound)

type ReconcileStore struct {
	col *mongo.Collection
}

func NewReconcileStore(ctx context.Context, db *mongo.Database) (*ReconcileStore, error) {
	col := db.Collection("reconciliation")
	_, err := col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "resolved", Value: 1}, {Key: "nextAttemptAt", Value: 1}},
	})
	if err != nil {
		return nil, errs.Wrap(err, "mongo: reconciliation index")
	}
	return &ReconcileStore{col: col}, nil
}

type failureDocument struct {
	ID            string      `bson:"_id"`
	Kind          string      `bson:"kind"`
	BookingID     string      `bson:"bookingId"`
	UserID        string      `bson:"userId,omitempty"`
	TransactionID string      `bson:"transactionId,omitempty"`
	Refund        money.Money `bson:"refund"`
	Reason        string      `bson:"reason,omitempty"`
	Attempts      int         `bson:"attempts"`
	LastError     string      `bson:"lastError,omitempty"`
	NextAttemptAt time.Time   `bson:"nextAttemptAt"`
	CreatedAt     time.Time   `bson:"createdAt"`
	Resolved      bool        `bson:"resolved"`
	ResolvedAt    time.Time   `bson:"resolvedAt,omitempty"`
}

func (s *ReconcileStore) Add(ctx context.Context, f reconcile.Failure) error {
	doc := failureDocument{
		ID:            f.ID,
		Kind:          string(f.Kind),
		BookingID:     f.BookingID,
		UserID:        f.UserID,
		TransactionID: f.TransactionID,
		Refund:        f.Refund,
		Reason:        f.Reason,
		Attempts:      f.Attempts,
		LastError:     f.LastError,
		NextAttemptAt: f.NextAttemptAt.UTC(),
		CreatedAt:     f.CreatedAt.UTC(),
	}
	if _, err := s.col.InsertOne(ctx, doc); err != nil && !mongo.IsDuplicateKeyError(err) {
		return errs.Wrapf(err, "mongo: record %s failure", f.Kind)
	}
	return nil
}

func (s *ReconcileStore) Due(ctx context.Context, now time.Time, limit int) ([]reconcile.Failure, error) {
	opts := options.Find().SetSort(bson.D{{Key: "nextAttemptAt", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.col.Find(ctx, bson.M{"resolved": false, "nextAttemptAt": bson.M{"$lte": now.UTC()}}, opts)
	if err != nil {
		return nil, err
	}
	var docs []failureDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]reconcile.Failure, 0, len(docs))
	for _, d := range docs {
		out = append(out, reconcile.Failure{
			ID:            d.ID,
			Kind:          reconcile.Kind(d.Kind),
			BookingID:     d.BookingID,
			UserID:        d.UserID,
			TransactionID: d.TransactionID,
			Refund:        d.Refund,
			Reason:        d.Reason,
			Attempts:      d.Attempts,
			LastError:     d.LastError,
			NextAttemptAt: d.NextAttemptAt.UTC(),
			CreatedAt:     d.CreatedAt.UTC(),
		})
	}
	return out, nil
}

func (s *ReconcileStore) MarkResolved(ctx context.Context, id string, at time.Time) error {
	res, err := s.col.UpdateByID(ctx, id, bson.M{"$set": bson.M{"resolved": true, "resolvedAt": at.UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errs.Wrapf(ErrFailureNotFound, "%s", id)
	}
	return nil
}

func (s *ReconcileStore) MarkRetry(ctx context.Context, id string, next time.Time, lastErr string) error {
	res, err := s.col.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"nextAttemptAt": next.UTC(), "lastError": lastErr},
		"$inc": bson.M{"attempts": 1},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errs.Wrapf(ErrFailureNotFound, "%s", id)
	}
	return nil
}

var _ reconcile.Store = (*ReconcileStore)(nil)
