package settlement

import "context"

// Repository persists settlement runs. Runs are immutable; Save must fail on
// an identity collision rather than overwrite.
type Repository interface {
	FindByGroupAndPeriod(ctx context.Context, groupID string, period Period) (*SettlementRun, error)
	FindOverlapping(ctx context.Context, groupID string, period Period) (*SettlementRun, error)
	Save(ctx context.Context, run *SettlementRun) error
}
