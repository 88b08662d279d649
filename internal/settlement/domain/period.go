package settlement

import "time"

// Period is a half-open settlement window [From, To) in UTC.
type Period struct {
	From time.Time
	To   time.Time
}

// NewPeriod validates and normalizes a settlement window.
func NewPeriod(from, to time.Time) (Period, error) {
	if from.IsZero() || to.IsZero() {
		return Period{}, ErrInvalidPeriod
	}
	from = from.UTC()
	to = to.UTC()
	if !from.Before(to) {
		return Period{}, ErrInvalidPeriod
	}
	return Period{From: from, To: to}, nil
}

// Equal reports whether both windows are identical.
func (p Period) Equal(other Period) bool {
	return p.From.Equal(other.From) && p.To.Equal(other.To)
}

// Overlaps reports whether the half-open windows intersect.
func (p Period) Overlaps(other Period) bool {
	return p.From.Before(other.To) && other.From.Before(p.To)
}

// Key returns a stable textual identity of the window.
func (p Period) Key() string {
	return p.From.Format(time.RFC3339) + "|" + p.To.Format(time.RFC3339)
}

// String renders the window the way reports print it.
func (p Period) String() string {
	return p.From.Format(time.RFC3339) + " to " + p.To.Format(time.RFC3339)
}
