package memory

import (
	"context"
	"sync"

	appoutbox "glampbook/internal/app/outbox"
	"glampbook/internal/app/uow"
)

type eventStager interface {
	stageEvent(rec appoutbox.EventRecord) error
}

// Outbox joins the unit of work found in ctx: records only become visible
// to Flush once that unit commits. Without a unit they are stored directly.
type Outbox struct {
	store     *Store
	publisher appoutbox.Publisher

	flushMu   sync.Mutex
	delivered []appoutbox.EventRecord
}

// NewOutbox returns an outbox over store. publisher may be nil, in which
// case flushed records are only kept for inspection.
func NewOutbox(store *Store, publisher appoutbox.Publisher) *Outbox {
	return &Outbox{store: store, publisher: publisher}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	if unit, ok := uow.FromContext(ctx); ok {
		if stager, ok := unit.(eventStager); ok {
			return stager.stageEvent(record)
		}
	}
	o.store.mu.Lock()
	o.store.events = append(o.store.events, record)
	o.store.mu.Unlock()
	return nil
}

// Flush hands committed records to the publisher in order. A failed record
// and everything after it stay queued for the next flush.
func (o *Outbox) Flush(ctx context.Context) error {
	o.flushMu.Lock()
	defer o.flushMu.Unlock()

	o.store.mu.Lock()
	pending := o.store.events
	o.store.events = nil
	o.store.mu.Unlock()

	for i, rec := range pending {
		if o.publisher != nil {
			if err := o.publisher.Publish(ctx, rec); err != nil {
				o.requeue(pending[i:])
				return err
			}
		}
		o.delivered = append(o.delivered, rec)
	}
	return nil
}

func (o *Outbox) requeue(records []appoutbox.EventRecord) {
	o.store.mu.Lock()
	o.store.events = append(append([]appoutbox.EventRecord(nil), records...), o.store.events...)
	o.store.mu.Unlock()
}

// Pending returns committed records not yet flushed.
func (o *Outbox) Pending() []appoutbox.EventRecord {
	o.store.mu.RLock()
	defer o.store.mu.RUnlock()
	return append([]appoutbox.EventRecord(nil), o.store.events...)
}

// Delivered returns every record flushed so far.
func (o *Outbox) Delivered() []appoutbox.EventRecord {
	o.flushMu.Lock()
	defer o.flushMu.Unlock()
	return append([]appoutbox.EventRecord(nil), o.delivered...)
}

var _ appoutbox.Outbox = (*Outbox)(nil)
