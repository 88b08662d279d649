package application

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	ediapp "coopmarket/internal/edi/application"
	"coopmarket/internal/eventing"
	readings "coopmarket/internal/readings/domain"
	memory "coopmarket/internal/readings/infrastructure/memory"
)

func extractedEvent(value string) ediapp.ReadingExtracted {
	return ediapp.ReadingExtracted{
		MessageReference: "MSG001",
		MeteringPoint:    "ZP001",
		Timestamp:        time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		Value:            decimal.RequireFromString(value),
		Unit:             "KWH",
		Direction:        ediapp.DirectionOut,
	}
}

func TestExtractConsumerIngestsReading(t *testing.T) {
	repo := memory.NewReadingRepository()
	consumer, err := NewExtractConsumer(newTestIngest(t, repo, allowPoints{}), nil)
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}

	if err := consumer.Handle(context.Background(), extractedEvent("510.2")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	stored, _ := repo.ListForPoints(context.Background(), []string{"ZP001"},
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	if len(stored) != 1 {
		t.Fatalf("stored = %+v", stored)
	}
	if stored[0].Source != readings.SourceEDI || stored[0].SubmissionID != "MSG001" {
		t.Errorf("reading = %+v", stored[0])
	}
}

func TestExtractConsumerSwallowsBusinessRejections(t *testing.T) {
	repo := memory.NewReadingRepository()
	consumer, err := NewExtractConsumer(newTestIngest(t, repo, allowPoints{}), nil)
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}

	if err := consumer.Handle(context.Background(), extractedEvent("510.2")); err != nil {
		t.Fatalf("first handle: %v", err)
	}
	// Conflicting re-delivery must not bubble up, a retry cannot fix it.
	if err := consumer.Handle(context.Background(), extractedEvent("999.9")); err != nil {
		t.Errorf("conflict handle: %v", err)
	}
	if repo.Len() != 1 {
		t.Errorf("stored = %d", repo.Len())
	}
}

func TestExtractConsumerRejectsForeignEvent(t *testing.T) {
	repo := memory.NewReadingRepository()
	consumer, err := NewExtractConsumer(newTestIngest(t, repo, allowPoints{}), nil)
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}
	if err := consumer.Handle(context.Background(), "not an event"); err == nil {
		t.Error("expected error for foreign event type")
	}
}

func TestExtractConsumerIdempotentOnRedelivery(t *testing.T) {
	repo := memory.NewReadingRepository()
	consumer, err := NewExtractConsumer(newTestIngest(t, repo, allowPoints{}), nil)
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}

	bus := eventing.NewInMemoryBus()
	store := &redeliveryStore{seen: make(map[string]bool)}
	consumer.Register(bus, store)

	env := eventing.Envelope{EventID: "evt-1"}
	ctx := eventing.WithEnvelope(context.Background(), env)
	for i := 0; i < 3; i++ {
		if err := bus.Publish(ctx, extractedEvent("510.2")); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}
	if repo.Len() != 1 {
		t.Errorf("stored = %d", repo.Len())
	}
}

type redeliveryStore struct {
	seen map[string]bool
}

func (s *redeliveryStore) HasProcessed(_ context.Context, eventID, consumer string) (bool, error) {
	return s.seen[eventID+"|"+consumer], nil
}

func (s *redeliveryStore) MarkProcessed(_ context.Context, eventID, consumer string) error {
	s.seen[eventID+"|"+consumer] = true
	return nil
}
