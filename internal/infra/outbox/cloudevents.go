package outbox

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	appoutbox "glampbook/internal/app/outbox"
	"glampbook/internal/pkg/errs"
)

const defaultSource = "app://glampbook"

// Producer is the broker side of the relay.
type Producer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// Envelope wraps outbox records as structured CloudEvents.
type Envelope struct {
	Source string
	IDGen  func() string
}

func (e Envelope) Format(name string, payload []byte, occurredAt time.Time, headers map[string]string) ([]byte, map[string]string, error) {
	data := map[string]any{}
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, nil, errs.Wrapf(err, "outbox: decode %s payload", name)
	}
	idGen := e.IDGen
	if idGen == nil {
		idGen = uuid.NewString
	}
	source := e.Source
	if source == "" {
		source = defaultSource
	}
	evt := map[string]any{
		"specversion":     "1.0",
		"id":              idGen(),
		"type":            name + ".v1",
		"source":          source,
		"time":            occurredAt.UTC(),
		"datacontenttype": "application/json",
		"data":            data,
	}
	if trace, ok := headers["traceparent"]; ok {
		evt["traceparent"] = trace
	}
	out, err := json.Marshal(evt)
	if err != nil {
		return nil, nil, err
	}
	hs := map[string]string{"content-type": "application/cloudevents+json"}
	for k, v := range headers {
		hs[k] = v
	}
	return out, hs, nil
}

// TopicFor maps "booking.confirmed" to "<prefix>booking.events.v1".
func TopicFor(prefix, name string) string {
	base := name
	if idx := strings.IndexRune(name, '.'); idx > 0 {
		base = name[:idx]
	}
	return prefix + base + ".events.v1"
}

// Relay publishes records straight to the broker. The in-memory outbox uses
// it on flush; the Mongo deployment goes through Worker instead.
type Relay struct {
	Producer    Producer
	TopicPrefix string
	Envelope    Envelope
}

func (r Relay) Publish(ctx context.Context, rec appoutbox.EventRecord) error {
	payload, headers, err := r.Envelope.Format(rec.Name, rec.Payload, rec.OccurredAt, rec.Headers)
	if err != nil {
		return err
	}
	return r.Producer.Publish(ctx, TopicFor(r.TopicPrefix, rec.Name), rec.Aggregate, payload, headers)
}

var _ appoutbox.Publisher = Relay{}
