package settlement

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyGroupID is returned when the balance group id is empty.
	ErrEmptyGroupID = errors.New("settlement: empty group id")
	// ErrInvalidPeriod is returned when the settlement window is malformed.
	ErrInvalidPeriod = errors.New("settlement: invalid period")
	// ErrNegativePrice is returned when the internal price is negative.
	ErrNegativePrice = errors.New("settlement: negative price")
	// ErrNilRun is returned when saving a nil run.
	ErrNilRun = errors.New("settlement: nil run")
	// ErrRunNotFound is returned when a settlement run is not found.
	ErrRunNotFound = errors.New("settlement: run not found")
	// ErrAlreadySettled is returned when a window overlapping an existing
	// run is settled again.
	ErrAlreadySettled = errors.New("settlement: period already settled")
)

// AlreadySettledError carries the existing run that blocks a new settlement.
type AlreadySettledError struct {
	GroupID  string
	Existing *SettlementRun
}

func (e *AlreadySettledError) Error() string {
	if e.Existing == nil {
		return fmt.Sprintf("settlement: group %s already settled", e.GroupID)
	}
	return fmt.Sprintf(
		"settlement: group %s already settled for %s",
		e.GroupID, e.Existing.Period().String(),
	)
}

// Is matches the ErrAlreadySettled sentinel.
func (e *AlreadySettledError) Is(target error) bool {
	return target == ErrAlreadySettled
}
