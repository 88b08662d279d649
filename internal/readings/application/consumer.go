package application

import (
	"context"
	"errors"
	"fmt"
	"log"

	ediapp "coopmarket/internal/edi/application"
	"coopmarket/internal/eventing"
	readings "coopmarket/internal/readings/domain"
)

// ExtractConsumerName identifies this consumer in the idempotency store.
const ExtractConsumerName = "readings.extract-consumer"

// ExtractConsumer feeds MSCONS extracts into the regular ingest path.
type ExtractConsumer struct {
	ingest *IngestService
	logger *log.Logger
}

// NewExtractConsumer constructs the consumer.
func NewExtractConsumer(ingest *IngestService, logger *log.Logger) (*ExtractConsumer, error) {
	if ingest == nil {
		return nil, errors.New("extract consumer: nil ingest service")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ExtractConsumer{ingest: ingest, logger: logger}, nil
}

// Register subscribes the consumer on the bus with idempotency.
func (c *ExtractConsumer) Register(bus eventing.EventBus, store eventing.ProcessedStore) {
	eventing.Subscribe(
		bus,
		eventing.EventTypeName(ediapp.ReadingExtracted{}),
		ExtractConsumerName,
		c.Handle,
		store,
	)
}

// Handle processes one ReadingExtracted event. Business rejections are logged
// and swallowed since retrying the same event cannot change the outcome;
// infrastructure errors propagate so the dispatcher can retry.
func (c *ExtractConsumer) Handle(ctx context.Context, event any) error {
	extracted, ok := event.(ediapp.ReadingExtracted)
	if !ok {
		return fmt.Errorf("extract consumer: unexpected event %T", event)
	}

	_, err := c.ingest.Ingest(ctx, MSCONSExtract{
		MessageReference: extracted.MessageReference,
		MeteringPoint:    extracted.MeteringPoint,
		Timestamp:        extracted.Timestamp,
		Value:            extracted.Value,
		Direction:        extracted.Direction,
	})
	if err != nil {
		if errors.Is(err, readings.ErrConflict) || errors.Is(err, readings.ErrInvalidReading) {
			c.logger.Printf("readings: extract from message %s dropped: %v", extracted.MessageReference, err)
			return nil
		}
		return err
	}
	return nil
}
