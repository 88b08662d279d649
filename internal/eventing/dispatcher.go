package eventing

import (
	"context"
)

// DefaultDispatchBatch bounds how many outbox rows one dispatch pass drains.
const DefaultDispatchBatch = 50

// Dispatcher drains the outbox and delivers cooperative events to the
// in-process bus. Delivery is at-least-once: a row is marked sent only after
// the bus accepted it, and undecodable or rejected envelopes land in the DLQ.
type Dispatcher struct {
	bus      EventBus
	outbox   OutboxStore
	registry *Registry
	dlq      DLQStore
}

// OutboxStore provides access to outbox records.
type OutboxStore interface {
	ListPending(ctx context.Context, limit int) ([]OutboxRecord, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
}

// DLQStore records failures.
type DLQStore interface {
	RecordFailure(ctx context.Context, env Envelope, err error) error
}

// OutboxRecord is one pending outbox entry. The envelope carries the
// cooperative and balance group the event belongs to.
type OutboxRecord struct {
	ID       string
	Envelope Envelope
}

// NewDispatcher constructs a dispatcher.
func NewDispatcher(bus EventBus, outbox OutboxStore, registry *Registry, dlq DLQStore) *Dispatcher {
	return &Dispatcher{bus: bus, outbox: outbox, registry: registry, dlq: dlq}
}

// Dispatch pulls up to limit pending outbox records and delivers them. Each
// record fails or succeeds on its own; one poisoned envelope does not stall
// the rest of the batch.
func (d *Dispatcher) Dispatch(ctx context.Context, limit int) error {
	if d == nil || d.outbox == nil || d.bus == nil || d.registry == nil {
		return nil
	}
	if limit <= 0 {
		limit = DefaultDispatchBatch
	}
	records, err := d.outbox.ListPending(ctx, limit)
	if err != nil {
		return err
	}

	for _, record := range records {
		if err := d.deliver(ctx, record); err != nil {
			d.fail(ctx, record, err)
			continue
		}
		_ = d.outbox.MarkSent(ctx, record.ID)
	}
	return nil
}

func (d *Dispatcher) deliver(ctx context.Context, record OutboxRecord) error {
	payload, err := d.registry.DecodePayload(record.Envelope)
	if err != nil {
		return err
	}
	// Handlers read the envelope from the context, the idempotency wrapper
	// keys on its event id.
	return d.bus.Publish(WithEnvelope(ctx, record.Envelope), payload)
}

func (d *Dispatcher) fail(ctx context.Context, record OutboxRecord, cause error) {
	_ = d.outbox.MarkFailed(ctx, record.ID)
	if d.dlq != nil {
		_ = d.dlq.RecordFailure(ctx, record.Envelope, cause)
	}
}
