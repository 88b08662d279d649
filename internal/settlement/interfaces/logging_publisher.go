package interfaces

import (
	"context"
	"errors"
	"log"

	"coopmarket/internal/settlement/application"
)

// LoggingPublisher logs settlement events. Used when no outbox is wired.
type LoggingPublisher struct {
	logger *log.Logger
}

// NewLoggingPublisher constructs a logging publisher.
func NewLoggingPublisher(logger *log.Logger) *LoggingPublisher {
	if logger == nil {
		logger = log.Default()
	}
	return &LoggingPublisher{logger: logger}
}

// Publish logs the event.
func (p *LoggingPublisher) Publish(ctx context.Context, event any) error {
	_ = ctx
	if p == nil {
		return errors.New("settlement publisher: nil publisher")
	}
	if completed, ok := event.(application.SettlementCompleted); ok {
		p.logger.Printf("settlement completed: group=%s period=%s..%s cost=%s",
			completed.GroupID,
			completed.PeriodFrom.Format("2006-01-02"),
			completed.PeriodTo.Format("2006-01-02"),
			completed.TotalCostEUR.StringFixed(2),
		)
		return nil
	}
	p.logger.Printf("settlement event: %T", event)
	return nil
}
