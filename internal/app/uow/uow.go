package uow

import (
	"context"
	"sync"

	"glampbook/internal/domain/availability"
	"glampbook/internal/domain/booking"
	"glampbook/internal/domain/property"
)

// UnitOfWork coordinates repositories inside a transaction boundary.
type UnitOfWork interface {
	Properties() property.Directory
	Availability() availability.Repository
	Bookings() booking.Repository

	// AfterCommit registers work that must only run once the transaction
	// has committed. Hooks never run after a rollback.
	AfterCommit(fn func(ctx context.Context))

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}

// Hooks is embedded by unit implementations to collect after-commit work.
type Hooks struct {
	mu    sync.Mutex
	hooks []func(ctx context.Context)
}

func (h *Hooks) AfterCommit(fn func(ctx context.Context)) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	h.hooks = append(h.hooks, fn)
	h.mu.Unlock()
}

// RunAfterCommit executes and clears the registered hooks in order.
func (h *Hooks) RunAfterCommit(ctx context.Context) {
	h.mu.Lock()
	hooks := h.hooks
	h.hooks = nil
	h.mu.Unlock()
	for _, fn := range hooks {
		fn(ctx)
	}
}

// DiscardHooks drops registered hooks, used on rollback.
func (h *Hooks) DiscardHooks() {
	h.mu.Lock()
	h.hooks = nil
	h.mu.Unlock()
}
