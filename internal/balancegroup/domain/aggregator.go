package balancegroup

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	readings "coopmarket/internal/readings/domain"
)

// PointTotals are the summed flows of one metering point inside a period.
type PointTotals struct {
	In  decimal.Decimal
	Out decimal.Decimal
}

// Usage is the total metered energy of the point, both directions.
func (t PointTotals) Usage() decimal.Decimal {
	return t.In.Add(t.Out)
}

// Aggregation is the summed energy of a balance group over a period. Only
// readings inside both the period and the membership validity window count.
type Aggregation struct {
	GroupID    string
	From       time.Time
	To         time.Time
	TotalIn    decimal.Decimal
	TotalOut   decimal.Decimal
	PerPoint   map[string]PointTotals
	ReadingIDs []string
}

// MeteringPoints returns the aggregated points in stable order.
func (a Aggregation) MeteringPoints() []string {
	points := make([]string, 0, len(a.PerPoint))
	for point := range a.PerPoint {
		points = append(points, point)
	}
	sort.Strings(points)
	return points
}

// Aggregator sums group readings with exact decimal arithmetic.
type Aggregator struct {
	readings readings.Repository
}

// NewAggregator constructs an aggregator.
func NewAggregator(repo readings.Repository) *Aggregator {
	return &Aggregator{readings: repo}
}

// Aggregate sums the readings of every group member over [from, to), clipped
// to each membership's validity window.
func (a *Aggregator) Aggregate(ctx context.Context, group *BalanceGroup, from, to time.Time) (Aggregation, error) {
	result := Aggregation{
		GroupID:  group.ID,
		From:     from,
		To:       to,
		PerPoint: make(map[string]PointTotals),
	}

	members := group.MembersActiveDuring(from, to)
	if len(members) == 0 {
		return result, nil
	}

	windows := make(map[string][]Membership, len(members))
	points := make([]string, 0, len(members))
	for _, m := range members {
		if _, ok := windows[m.MeteringPoint]; !ok {
			points = append(points, m.MeteringPoint)
		}
		windows[m.MeteringPoint] = append(windows[m.MeteringPoint], m)
	}
	sort.Strings(points)

	list, err := a.readings.ListForPoints(ctx, points, from, to)
	if err != nil {
		return Aggregation{}, err
	}

	for _, reading := range list {
		if !coveredByMembership(windows[reading.MeteringPoint], reading.Timestamp, from, to) {
			continue
		}
		totals := result.PerPoint[reading.MeteringPoint]
		switch reading.Direction {
		case readings.DirectionIn:
			totals.In = totals.In.Add(reading.Value)
			result.TotalIn = result.TotalIn.Add(reading.Value)
		case readings.DirectionOut:
			totals.Out = totals.Out.Add(reading.Value)
			result.TotalOut = result.TotalOut.Add(reading.Value)
		default:
			continue
		}
		result.PerPoint[reading.MeteringPoint] = totals
		result.ReadingIDs = append(result.ReadingIDs, reading.ID)
	}
	return result, nil
}

func coveredByMembership(memberships []Membership, ts, from, to time.Time) bool {
	for _, m := range memberships {
		start, end, ok := m.Clip(from, to)
		if !ok {
			continue
		}
		if !ts.Before(start) && ts.Before(end) {
			return true
		}
	}
	return false
}
