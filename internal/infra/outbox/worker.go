package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"glampbook/internal/pkg/errs"
)

var ErrWorkerNotConfigured = errs.New("outbox: worker missing dependencies")

// ClaimStore is the worker's view of the outbox collection.
type ClaimStore interface {
	Claim(ctx context.Context, workerID string) (*EventDocument, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error
}

// Worker relays committed outbox records to Kafka as CloudEvents.
type Worker struct {
	Store       ClaimStore
	Producer    Producer
	Interval    time.Duration
	BatchSize   int
	TopicPrefix string
	Envelope    Envelope
	ID          string
	Backoff     []time.Duration
	Logger      *slog.Logger
}

func (w *Worker) Run(ctx context.Context) error {
	if w.Store == nil || w.Producer == nil {
		return ErrWorkerNotConfigured
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	ticker := time.NewTicker(w.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.ProcessBatch(ctx); err != nil {
				w.logger().ErrorContext(ctx, "outbox batch failed", "error", err)
			}
		}
	}
}

type outcome int

const (
	idle outcome = iota
	sent
	failed
)

// ProcessBatch relays up to BatchSize records and returns how many were sent.
// Records whose publish failed are rescheduled and not counted.
func (w *Worker) ProcessBatch(ctx context.Context) (int, error) {
	count := 0
	for i := 0; i < w.batchSize(); i++ {
		res, err := w.processOnce(ctx)
		if err != nil {
			return count, err
		}
		switch res {
		case idle:
			return count, nil
		case sent:
			count++
		}
	}
	return count, nil
}

func (w *Worker) processOnce(ctx context.Context) (outcome, error) {
	doc, err := w.Store.Claim(ctx, w.ID)
	if err != nil || doc == nil {
		return idle, err
	}
	payload, headers, err := w.Envelope.Format(doc.Name, doc.Payload, doc.OccurredAt, doc.Headers)
	if err != nil {
		return failed, w.fail(ctx, doc, err)
	}
	if err := w.Producer.Publish(ctx, TopicFor(w.TopicPrefix, doc.Name), doc.Aggregate, payload, headers); err != nil {
		return failed, w.fail(ctx, doc, err)
	}
	if err := w.Store.MarkSent(ctx, doc.ID); err != nil {
		return failed, err
	}
	return sent, nil
}

func (w *Worker) fail(ctx context.Context, doc *EventDocument, cause error) error {
	next := w.nextRetry(doc.Attempts)
	w.logger().WarnContext(ctx, "outbox publish failed", "event_id", doc.ID, "name", doc.Name, "attempts", doc.Attempts+1, "next_attempt_at", next, "error", cause)
	return w.Store.MarkFailed(ctx, doc.ID, next, cause.Error())
}

func (w *Worker) interval() time.Duration {
	if w.Interval <= 0 {
		return 500 * time.Millisecond
	}
	return w.Interval
}

func (w *Worker) batchSize() int {
	if w.BatchSize <= 0 {
		return 100
	}
	return w.BatchSize
}

func (w *Worker) nextRetry(attempts int) time.Time {
	if attempts < len(w.Backoff) {
		return time.Now().Add(w.Backoff[attempts])
	}
	if len(w.Backoff) > 0 {
		return time.Now().Add(w.Backoff[len(w.Backoff)-1])
	}
	return time.Now().Add(5 * time.Second)
}

func (w *Worker) logger() *slog.Logger {
	if w.Logger == nil {
		return slog.Default()
	}
	return w.Logger
}
