package balancegroup

import (
	"errors"
	"fmt"
)

// Sentinel errors of the balance group context.
var (
	ErrGroupNotFound      = errors.New("balancegroup: group not found")
	ErrEmptyGroupID       = errors.New("balancegroup: empty group id")
	ErrMembershipOverlap  = errors.New("balancegroup: overlapping membership")
	ErrEmptyMeteringPoint = errors.New("balancegroup: empty metering point")
)

// MembershipOverlapError reports a metering point that would belong to two
// groups at once.
type MembershipOverlapError struct {
	MeteringPoint string
	GroupID       string
	OtherGroupID  string
}

func (e *MembershipOverlapError) Error() string {
	return fmt.Sprintf(
		"balancegroup: metering point %s already belongs to group %s while assigning to %s",
		e.MeteringPoint, e.OtherGroupID, e.GroupID,
	)
}

// Is matches the ErrMembershipOverlap sentinel.
func (e *MembershipOverlapError) Is(target error) bool {
	return target == ErrMembershipOverlap
}
