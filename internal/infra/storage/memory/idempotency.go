package memory

import (
	"context"
	"sync"

	"tumbi/internal/app/uow"
)

// IdempotencyStore stores replayable results in memory.
type IdempotencyStore struct {
	mu    sync.RWMutex
	items map[string]uow.IdempotencyRecord
}

func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{items: make(map[string]uow.IdempotencyRecord)}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (uow.IdempotencyRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.items[key]
	return rec, ok, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, rec uow.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[rec.Key]; exists {
		return uow.ErrDuplicateRequest
	}
	rec.Payload = append([]byte(nil), rec.Payload...)
	s.items[rec.Key] = rec
	return nil
}

var _ uow.IdempotencyStore = (*IdempotencyStore)(nil)
