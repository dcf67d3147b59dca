package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appoutbox "glampbook/internal/app/outbox"
)

type fakeClaims struct {
	queue  []*EventDocument
	sent   []string
	failed map[string]string
}

func (f *fakeClaims) Claim(ctx context.Context, workerID string) (*EventDocument, error) {
	if len(f.queue) == 0 {
		return nil, nil
	}
	doc := f.queue[0]
	f.queue = f.queue[1:]
	return doc, nil
}

func (f *fakeClaims) MarkSent(ctx context.Context, id string) error {
	f.sent = append(f.sent, id)
	return nil
}

func (f *fakeClaims) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	if f.failed == nil {
		f.failed = map[string]string{}
	}
	f.failed[id] = errMsg
	return nil
}

type published struct {
	topic, key string
	payload    []byte
	headers    map[string]string
}

type fakeProducer struct {
	failFor string
	out     []published
}

func (p *fakeProducer) Publish(ctx context.Context, topic, key string, payload []byte, headers map[string]string) error {
	if key == p.failFor {
		return errors.New("broker unavailable")
	}
	p.out = append(p.out, published{topic: topic, key: key, payload: payload, headers: headers})
	return nil
}

func TestWorkerRelaysCloudEvents(t *testing.T) {
	occurred := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	store := &fakeClaims{queue: []*EventDocument{
		{ID: "e1", Name: "calendar.blocked", Aggregate: "tent-1", Payload: []byte(`{"propertyId":"tent-1"}`), OccurredAt: occurred},
		{ID: "e2", Name: "booking.requested", Aggregate: "bk-9", Payload: []byte(`{"bookingId":"bk-9"}`), OccurredAt: occurred},
		{ID: "e3", Name: "booking.confirmed", Aggregate: "bk-bad", Payload: []byte(`{}`), OccurredAt: occurred},
	}}
	producer := &fakeProducer{failFor: "bk-bad"}
	w := &Worker{
		Store:       store,
		Producer:    producer,
		TopicPrefix: "glamp.",
		Envelope:    Envelope{IDGen: func() string { return "ce-1" }},
		ID:          "w1",
		Backoff:     []time.Duration{time.Second},
	}

	n, err := w.ProcessBatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"e1", "e2"}, store.sent)
	assert.Contains(t, store.failed["e3"], "broker unavailable")
	require.Len(t, producer.out, 2)
	assert.Equal(t, "glamp.calendar.events.v1", producer.out[0].topic)
	assert.Equal(t, "tent-1", producer.out[0].key)
	assert.Equal(t, "application/cloudevents+json", producer.out[0].headers["content-type"])

	var evt map[string]any
	require.NoError(t, json.Unmarshal(producer.out[1].payload, &evt))
	assert.Equal(t, "booking.requested.v1", evt["type"])
	assert.Equal(t, "ce-1", evt["id"])
	assert.Equal(t, defaultSource, evt["source"])
	assert.Equal(t, map[string]any{"bookingId": "bk-9"}, evt["data"])
}

func TestWorkerCountsOnlySentRecords(t *testing.T) {
	occurred := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	store := &fakeClaims{queue: []*EventDocument{
		{ID: "e1", Name: "booking.confirmed", Aggregate: "bk-bad", Payload: []byte(`{}`), OccurredAt: occurred},
		{ID: "e2", Name: "booking.canceled", Aggregate: "bk-bad", Payload: []byte(`{}`), OccurredAt: occurred},
		{ID: "e3", Name: "booking.requested", Aggregate: "bk-1", Payload: []byte(`{}`), OccurredAt: occurred},
	}}
	w := &Worker{Store: store, Producer: &fakeProducer{failFor: "bk-bad"}, ID: "w1", BatchSize: 10}

	n, err := w.ProcessBatch(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"e3"}, store.sent)
	assert.Len(t, store.failed, 2)
}

func TestWorkerRequiresDependencies(t *testing.T) {
	err := (&Worker{}).Run(context.Background())
	assert.ErrorIs(t, err, ErrWorkerNotConfigured)
}

func TestRelayPublishesRecord(t *testing.T) {
	producer := &fakeProducer{}
	relay := Relay{Producer: producer}
	err := relay.Publish(context.Background(), appoutbox.EventRecord{
		ID:        "1",
		Name:      "calendar.released",
		Aggregate: "tent-1",
		Payload:   []byte(`{"propertyId":"tent-1"}`),
	})
	require.NoError(t, err)
	require.Len(t, producer.out, 1)
	assert.Equal(t, "calendar.events.v1", producer.out[0].topic)
}

func TestEnvelopeRejectsBadPayload(t *testing.T) {
	_, _, err := Envelope{}.Format("booking.canceled", []byte("not json"), time.Now(), nil)
	assert.Error(t, err)
}
