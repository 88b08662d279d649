package memory

import (
	"context"
	"sync"

	settlement "coopmarket/internal/settlement/domain"
)

// RunRepository is an in-memory settlement run store for tests and local
// runs.
type RunRepository struct {
	mu   sync.RWMutex
	runs map[settlement.RunID]*settlement.SettlementRun
}

// NewRunRepository constructs an empty repository.
func NewRunRepository() *RunRepository {
	return &RunRepository{runs: make(map[settlement.RunID]*settlement.SettlementRun)}
}

// FindByGroupAndPeriod returns the run with the exact identity.
func (r *RunRepository) FindByGroupAndPeriod(_ context.Context, groupID string, period settlement.Period) (*settlement.SettlementRun, error) {
	id, err := settlement.BuildRunID(groupID, period)
	if err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, settlement.ErrRunNotFound
	}
	return run.Clone(), nil
}

// FindOverlapping returns any run of the group whose window intersects the
// period.
func (r *RunRepository) FindOverlapping(_ context.Context, groupID string, period settlement.Period) (*settlement.SettlementRun, error) {
	if groupID == "" {
		return nil, settlement.ErrEmptyGroupID
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, run := range r.runs {
		if run.GroupID() != groupID {
			continue
		}
		if run.Period().Overlaps(period) {
			return run.Clone(), nil
		}
	}
	return nil, settlement.ErrRunNotFound
}

// Save stores a detached copy. An identity collision is an error, runs are
// immutable.
func (r *RunRepository) Save(_ context.Context, run *settlement.SettlementRun) error {
	if run == nil {
		return settlement.ErrNilRun
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[run.ID()]; ok {
		return &settlement.AlreadySettledError{GroupID: run.GroupID(), Existing: r.runs[run.ID()].Clone()}
	}
	r.runs[run.ID()] = run.Clone()
	return nil
}

// Len returns the number of stored runs.
func (r *RunRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.runs)
}
