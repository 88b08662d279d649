package balancegroup

import (
	"time"

	"github.com/shopspring/decimal"
)

// Membership assigns a metering point to a balance group for a validity
// window. ValidTo is exclusive; a zero ValidTo means open-ended.
type Membership struct {
	MeteringPoint string
	ValidFrom     time.Time
	ValidTo       time.Time
}

// ActiveAt reports whether the membership covers the instant t.
func (m Membership) ActiveAt(t time.Time) bool {
	if t.Before(m.ValidFrom) {
		return false
	}
	if m.ValidTo.IsZero() {
		return true
	}
	return t.Before(m.ValidTo)
}

// Clip intersects the membership window with [from, to) and reports whether
// anything remains.
func (m Membership) Clip(from, to time.Time) (time.Time, time.Time, bool) {
	start := from
	if m.ValidFrom.After(start) {
		start = m.ValidFrom
	}
	end := to
	if !m.ValidTo.IsZero() && m.ValidTo.Before(end) {
		end = m.ValidTo
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

// BalanceGroup is a set of metering points settled together against a shared
// forecast. Membership windows may not overlap for the same metering point
// across groups; the stores enforce that on write.
type BalanceGroup struct {
	ID            string
	Name          string
	PriceCtPerKWh decimal.Decimal
	Memberships   []Membership
}

// MembersActiveDuring returns the memberships that overlap [from, to).
func (g BalanceGroup) MembersActiveDuring(from, to time.Time) []Membership {
	var result []Membership
	for _, m := range g.Memberships {
		if _, _, ok := m.Clip(from, to); ok {
			result = append(result, m)
		}
	}
	return result
}
