package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"glampbook/internal/app/reconcile"
	"glampbook/internal/pkg/errs"
)

var ErrFailureNotFound = errs.Mark(errs.New("memory: reconciliation entry not found"), errs.ErrNotFound)

// ReconcileStore queues partial failures for the reconciliation worker.
type ReconcileStore struct {
	mu    sync.Mutex
	items map[string]reconcile.Failure
}

func NewReconcileStore() *ReconcileStore {
	return &ReconcileStore{items: make(map[string]reconcile.Failure)}
}

func (s *ReconcileStore) Add(ctx context.Context, f reconcile.Failure) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[f.ID] = f
	return nil
}

// Due returns unresolved entries whose next attempt is not after now,
// oldest first.
func (s *ReconcileStore) Due(ctx context.Context, now time.Time, limit int) ([]reconcile.Failure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []reconcile.Failure
	for _, f := range s.items {
		if f.Resolved() || f.NextAttemptAt.After(now) {
			continue
		}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].NextAttemptAt.Before(out[j].NextAttemptAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *ReconcileStore) MarkResolved(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.items[id]
	if !ok {
		return errs.Wrapf(ErrFailureNotFound, "%s", id)
	}
	f.ResolvedAt = at.UTC()
	s.items[id] = f
	return nil
}

func (s *ReconcileStore) MarkRetry(ctx context.Context, id string, next time.Time, lastErr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.items[id]
	if !ok {
		return errs.Wrapf(ErrFailureNotFound, "%s", id)
	}
	f.Attempts++
	f.NextAttemptAt = next.UTC()
	f.LastError = lastErr
	s.items[id] = f
	return nil
}

// All returns every entry, resolved ones included.
func (s *ReconcileStore) All() []reconcile.Failure {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]reconcile.Failure, 0, len(s.items))
	for _, f := range s.items {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

var _ reconcile.Store = (*ReconcileStore)(nil)
