package outbox

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	appoutbox "glampbook/internal/app/outbox"
	"glampbook/internal/pkg/errs"
)

const (
	stateNew     = "NEW"
	stateClaimed = "CLAIMED"
	stateSent    = "SENT"
	stateFailed  = "FAILED"
)

// Store is the Mongo outbox. Add runs on the caller's context, so inside a
// unit of work the insert joins the session transaction.
type Store struct {
	col          *mongo.Collection
	claimTimeout time.Duration
}

func NewStore(ctx context.Context, db *mongo.Database) (*Store, error) {
	col := db.Collection("outbox")
	_, err := col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "state", Value: 1}, {Key: "nextAttemptAt", Value: 1}}},
		{Keys: bson.D{{Key: "state", Value: 1}, {Key: "claimedAt", Value: 1}}},
	})
	if err != nil {
		return nil, errs.Wrap(err, "outbox: create indexes")
	}
	return &Store{col: col, claimTimeout: time.Minute}, nil
}

func (s *Store) Add(ctx context.Context, record appoutbox.EventRecord) error {
	now := time.Now().UTC()
	doc := EventDocument{
		ID:          record.ID,
		Name:        record.Name,
		Payload:     record.Payload,
		OccurredAt:  record.OccurredAt,
		Aggregate:   record.Aggregate,
		Headers:     record.Headers,
		State:       stateNew,
		NextAttempt: now,
		CreatedAt:   now,
	}
	if _, err := s.col.InsertOne(ctx, doc); err != nil {
		return errs.Wrapf(err, "outbox: add %s", record.Name)
	}
	return nil
}

// Flush is a no-op: Worker polls committed records.
func (s *Store) Flush(context.Context) error {
	return nil
}

type EventDocument struct {
	ID          string            `bson:"_id"`
	Name        string            `bson:"name"`
	Payload     []byte            `bson:"payload"`
	OccurredAt  time.Time         `bson:"occurredAt"`
	Aggregate   string            `bson:"aggregate"`
	Headers     map[string]string `bson:"headers"`
	State       string            `bson:"state"`
	Attempts    int               `bson:"attempts"`
	NextAttempt time.Time         `bson:"nextAttemptAt"`
	ClaimedBy   string            `bson:"claimedBy,omitempty"`
	ClaimedAt   time.Time         `bson:"claimedAt,omitempty"`
	SentAt      time.Time         `bson:"sentAt,omitempty"`
	LastError   string            `bson:"lastError,omitempty"`
	CreatedAt   time.Time         `bson:"createdAt"`
}

// Claim takes the oldest due record. Records claimed by a worker that died
// are reclaimed after the claim timeout.
func (s *Store) Claim(ctx context.Context, workerID string) (*EventDocument, error) {
	now := time.Now().UTC()
	filter := bson.M{"$or": bson.A{
		bson.M{"state": bson.M{"$in": bson.A{stateNew, stateFailed}}, "nextAttemptAt": bson.M{"$lte": now}},
		bson.M{"state": stateClaimed, "claimedAt": bson.M{"$lte": now.Add(-s.claimTimeout)}},
	}}
	update := bson.M{"$set": bson.M{"state": stateClaimed, "claimedBy": workerID, "claimedAt": now}}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetSort(bson.D{{Key: "createdAt", Value: 1}})
	var doc EventDocument
	err := s.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err != nil {
		if errs.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, errs.Wrap(err, "outbox: claim")
	}
	return &doc, nil
}

func (s *Store) MarkSent(ctx context.Context, id string) error {
	_, err := s.col.UpdateByID(ctx, id, bson.M{"$set": bson.M{"state": stateSent, "sentAt": time.Now().UTC()}})
	return err
}

func (s *Store) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	update := bson.M{
		"$set": bson.M{
			"state":         stateFailed,
			"nextAttemptAt": next,
			"lastError":     errMsg,
		},
		"$inc": bson.M{"attempts": 1},
	}
	_, err := s.col.UpdateByID(ctx, id, update)
	return err
}

var _ appoutbox.Outbox = (*Store)(nil)
