package memory

import (
	"context"
	"sync"
	"time"

	"glampbook/internal/app/middleware"
)

// IdempotencyStore stores results in memory.
type IdempotencyStore struct {
	mu    sync.Mutex
	items map[string]middleware.IdempotencyRecord
}

func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{items: make(map[string]middleware.IdempotencyRecord)}
}

func (s *IdempotencyStore) Claim(ctx context.Context, rec middleware.IdempotencyRecord, staleBefore time.Time) (middleware.IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, exists := s.items[rec.Key]; exists {
		if !cur.Pending || !cur.OccurredAt.Before(staleBefore) {
			return cur, false, nil
		}
	}
	rec.Pending = true
	s.items[rec.Key] = rec
	return rec, true, nil
}

func (s *IdempotencyStore) Complete(ctx context.Context, rec middleware.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.Pending = false
	s.items[rec.Key] = rec
	return nil
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.items[key]; ok && cur.Pending {
		delete(s.items, key)
	}
	return nil
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
