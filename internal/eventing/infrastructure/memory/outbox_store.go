package memory

import (
	"context"
	"sync"

	"coopmarket/internal/eventing"
)

// OutboxStore is an in-memory outbox for tests and local runs.
type OutboxStore struct {
	mu      sync.Mutex
	records []record
}

type record struct {
	id     string
	env    eventing.Envelope
	status string
}

// NewOutboxStore constructs an empty outbox.
func NewOutboxStore() *OutboxStore {
	return &OutboxStore{}
}

// Insert appends a pending envelope.
func (s *OutboxStore) Insert(_ context.Context, env eventing.Envelope) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := eventing.NewEventID()
	s.records = append(s.records, record{id: id, env: env, status: "pending"})
	return id, nil
}

// ListPending returns up to limit pending records in insertion order.
func (s *OutboxStore) ListPending(_ context.Context, limit int) ([]eventing.OutboxRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 {
		limit = 50
	}
	var result []eventing.OutboxRecord
	for _, r := range s.records {
		if r.status != "pending" {
			continue
		}
		result = append(result, eventing.OutboxRecord{ID: r.id, Envelope: r.env})
		if len(result) >= limit {
			break
		}
	}
	return result, nil
}

// MarkSent marks the record as sent.
func (s *OutboxStore) MarkSent(_ context.Context, id string) error {
	return s.setStatus(id, "sent")
}

// MarkFailed marks the record as failed.
func (s *OutboxStore) MarkFailed(_ context.Context, id string) error {
	return s.setStatus(id, "failed")
}

func (s *OutboxStore) setStatus(id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].id == id {
			s.records[i].status = status
			return nil
		}
	}
	return nil
}
