package readings

import (
	"context"
	"time"
)

// InsertOutcome reports what an insert did.
type InsertOutcome int

const (
	// OutcomeStored means the reading was new and persisted.
	OutcomeStored InsertOutcome = iota
	// OutcomeDuplicate means an identical reading already existed.
	OutcomeDuplicate
)

// Repository persists energy readings. Insert must be idempotent for
// identical submissions and must return a ConflictError when the same key
// carries a different value or direction.
type Repository interface {
	Insert(ctx context.Context, reading EnergyReading) (InsertOutcome, error)
	ListForPoints(ctx context.Context, points []string, from, to time.Time) ([]EnergyReading, error)
}
