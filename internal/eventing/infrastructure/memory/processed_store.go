package memory

import (
	"context"
	"sync"
)

// ProcessedStore is an in-memory idempotency store for tests and local runs.
type ProcessedStore struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewProcessedStore constructs an empty store.
func NewProcessedStore() *ProcessedStore {
	return &ProcessedStore{seen: make(map[string]struct{})}
}

// HasProcessed reports whether the event was already handled by the consumer.
func (s *ProcessedStore) HasProcessed(_ context.Context, eventID, consumerName string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[eventID+"|"+consumerName]
	return ok, nil
}

// MarkProcessed records the event as handled by the consumer.
func (s *ProcessedStore) MarkProcessed(_ context.Context, eventID, consumerName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[eventID+"|"+consumerName] = struct{}{}
	return nil
}
