package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"glampbook/internal/domain/shared/events"
	"glampbook/internal/pkg/errs"
)

type EventRecord struct {
	ID         string
	Name       string
	Payload    []byte
	OccurredAt time.Time
	Aggregate  string
	Headers    map[string]string
}

// Outbox stores event records. Add must join the transaction carried by
// ctx so events are only published for committed state.
type Outbox interface {
	Add(ctx context.Context, record EventRecord) error
	Flush(ctx context.Context) error
}

// Publisher delivers a record to a broker.
type Publisher interface {
	Publish(ctx context.Context, record EventRecord) error
}

type EventEncoder interface {
	Encode(ev events.DomainEvent) (EventRecord, error)
}

type JSONEventEncoder struct {
	IDGenerator func() string
}

func (e JSONEventEncoder) Encode(ev events.DomainEvent) (EventRecord, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return EventRecord{}, errs.Wrapf(err, "encode %s", ev.EventName())
	}
	idGen := e.IDGenerator
	if idGen == nil {
		idGen = uuid.NewString
	}
	return EventRecord{
		ID:         idGen(),
		Name:       ev.EventName(),
		Payload:    payload,
		OccurredAt: ev.OccurredAt(),
		Aggregate:  ev.AggregateID(),
		Headers:    map[string]string{},
	}, nil
}

func RecordDomainEvents(ctx context.Context, box Outbox, encoder EventEncoder, evs []events.DomainEvent) error {
	if box == nil || len(evs) == 0 {
		return nil
	}
	if encoder == nil {
		encoder = JSONEventEncoder{}
	}
	for _, ev := range evs {
		rec, err := encoder.Encode(ev)
		if err != nil {
			return err
		}
		if err := box.Add(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

type drainer interface {
	DrainEvents() []events.DomainEvent
}

// RecordFrom drains the pending events of every aggregate into the outbox.
func RecordFrom(ctx context.Context, box Outbox, encoder EventEncoder, aggregates ...drainer) error {
	var evs []events.DomainEvent
	for _, agg := range aggregates {
		evs = append(evs, agg.DrainEvents()...)
	}
	return RecordDomainEvents(ctx, box, encoder, evs)
}
