package interfaces

import (
	"context"

	"coopmarket/internal/eventing"
)

// OutboxPublisher writes settlement events to the outbox.
type OutboxPublisher struct {
	publisher     *eventing.Publisher
	cooperativeID string
}

// NewOutboxPublisher constructs an outbox publisher.
func NewOutboxPublisher(publisher *eventing.Publisher, cooperativeID string) *OutboxPublisher {
	return &OutboxPublisher{publisher: publisher, cooperativeID: cooperativeID}
}

// Publish writes the event to the outbox.
func (p *OutboxPublisher) Publish(ctx context.Context, event any) error {
	if p == nil || p.publisher == nil {
		return nil
	}
	ctx = eventing.WithCooperativeID(ctx, p.cooperativeID)
	return p.publisher.Publish(ctx, event)
}
