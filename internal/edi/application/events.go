package application

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReadingExtracted is emitted for each quantity found in an accepted MSCONS
// message. The readings context consumes it and runs the extract through the
// same normalization as every other submission channel.
type ReadingExtracted struct {
	MessageReference string          `json:"message_reference"`
	MeteringPoint    string          `json:"metering_point"`
	Timestamp        time.Time       `json:"timestamp"`
	Value            decimal.Decimal `json:"value"`
	Unit             string          `json:"unit"`
	Direction        string          `json:"direction"`
	OccurredAt       time.Time       `json:"occurred_at"`
}

// InterchangeAcknowledged is emitted after an acknowledgment has been built
// for an inbound message.
type InterchangeAcknowledged struct {
	InterchangeReference string    `json:"interchange_reference"`
	MessageReference     string    `json:"message_reference"`
	MessageType          string    `json:"message_type"`
	Status               string    `json:"status"`
	ViolationCount       int       `json:"violation_count"`
	OccurredAt           time.Time `json:"occurred_at"`
}
