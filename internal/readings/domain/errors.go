package readings

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Sentinel errors of the readings context.
var (
	ErrInvalidReading = errors.New("readings: invalid reading")
	ErrConflict       = errors.New("readings: conflicting duplicate")
)

// InvalidReadingError describes a submission that failed normalization.
type InvalidReadingError struct {
	Field  string
	Reason string
}

func (e *InvalidReadingError) Error() string {
	return fmt.Sprintf("readings: invalid %s: %s", e.Field, e.Reason)
}

// Is matches the ErrInvalidReading sentinel.
func (e *InvalidReadingError) Is(target error) bool {
	return target == ErrInvalidReading
}

// ConflictError describes a duplicate submission whose value differs from the
// stored one. The stored value always wins.
type ConflictError struct {
	Key       ReadingKey
	Existing  decimal.Decimal
	Submitted decimal.Decimal
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf(
		"readings: conflicting duplicate for %s at %d from %s: stored %s, submitted %s",
		e.Key.MeteringPoint, e.Key.UnixTimestamp, e.Key.Source,
		e.Existing.String(), e.Submitted.String(),
	)
}

// Is matches the ErrConflict sentinel.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}
