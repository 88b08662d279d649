package memory

import (
	"context"
	"sort"
	"sync"

	balancegroup "coopmarket/internal/balancegroup/domain"
)

// GroupRepository is an in-memory balance group store for tests and local
// runs.
type GroupRepository struct {
	mu     sync.RWMutex
	groups map[string]*balancegroup.BalanceGroup
}

// NewGroupRepository constructs an empty repository.
func NewGroupRepository() *GroupRepository {
	return &GroupRepository{groups: make(map[string]*balancegroup.BalanceGroup)}
}

// FindByID returns a deep copy of the group.
func (r *GroupRepository) FindByID(_ context.Context, groupID string) (*balancegroup.BalanceGroup, error) {
	if groupID == "" {
		return nil, balancegroup.ErrEmptyGroupID
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	group, ok := r.groups[groupID]
	if !ok {
		return nil, balancegroup.ErrGroupNotFound
	}
	return copyGroup(group), nil
}

// Save stores a deep copy of the group.
func (r *GroupRepository) Save(_ context.Context, group *balancegroup.BalanceGroup) error {
	if group == nil || group.ID == "" {
		return balancegroup.ErrEmptyGroupID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range group.Memberships {
		if err := r.checkOverlapLocked(group.ID, m); err != nil {
			return err
		}
	}
	r.groups[group.ID] = copyGroup(group)
	return nil
}

// AddMembership appends a membership after the overlap check. A metering
// point may belong to at most one group at any instant.
func (r *GroupRepository) AddMembership(_ context.Context, groupID string, membership balancegroup.Membership) error {
	if groupID == "" {
		return balancegroup.ErrEmptyGroupID
	}
	if membership.MeteringPoint == "" {
		return balancegroup.ErrEmptyMeteringPoint
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	group, ok := r.groups[groupID]
	if !ok {
		return balancegroup.ErrGroupNotFound
	}
	if err := r.checkOverlapLocked(groupID, membership); err != nil {
		return err
	}
	group.Memberships = append(group.Memberships, membership)
	return nil
}

// IsKnown reports whether a metering point has ever been assigned to a
// group.
func (r *GroupRepository) IsKnown(_ context.Context, meteringPoint string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, group := range r.groups {
		for _, m := range group.Memberships {
			if m.MeteringPoint == meteringPoint {
				return true, nil
			}
		}
	}
	return false, nil
}

// ListGroupIDs returns all group ids sorted.
func (r *GroupRepository) ListGroupIDs(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.groups))
	for id := range r.groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *GroupRepository) checkOverlapLocked(groupID string, membership balancegroup.Membership) error {
	for otherID, other := range r.groups {
		if otherID == groupID {
			continue
		}
		for _, existing := range other.Memberships {
			if existing.MeteringPoint != membership.MeteringPoint {
				continue
			}
			if windowsOverlap(existing, membership) {
				return &balancegroup.MembershipOverlapError{
					MeteringPoint: membership.MeteringPoint,
					GroupID:       groupID,
					OtherGroupID:  otherID,
				}
			}
		}
	}
	return nil
}

func windowsOverlap(a, b balancegroup.Membership) bool {
	aOpen := a.ValidTo.IsZero()
	bOpen := b.ValidTo.IsZero()
	if !aOpen && !a.ValidTo.After(b.ValidFrom) {
		return false
	}
	if !bOpen && !b.ValidTo.After(a.ValidFrom) {
		return false
	}
	return true
}

func copyGroup(group *balancegroup.BalanceGroup) *balancegroup.BalanceGroup {
	clone := *group
	clone.Memberships = append([]balancegroup.Membership(nil), group.Memberships...)
	return &clone
}
