package balancegroup

import "context"

// Repository persists balance groups and their memberships. AddMembership
// must reject windows that would put a metering point into two groups at the
// same time.
type Repository interface {
	FindByID(ctx context.Context, groupID string) (*BalanceGroup, error)
	Save(ctx context.Context, group *BalanceGroup) error
	AddMembership(ctx context.Context, groupID string, membership Membership) error
	ListGroupIDs(ctx context.Context) ([]string, error)
}
