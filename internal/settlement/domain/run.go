package settlement

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// RunID is the identity of a settlement run.
type RunID string

// BuildRunID builds the run identity from group and period.
func BuildRunID(groupID string, period Period) (RunID, error) {
	if groupID == "" {
		return "", ErrEmptyGroupID
	}
	return RunID(groupID + "|" + period.Key()), nil
}

// SettlementLine is the settled share of one metering point. Costs are in
// euro with two decimal places, banker's rounded.
type SettlementLine struct {
	MeteringPoint string
	UsageKWh      decimal.Decimal
	CostEUR       decimal.Decimal
}

// SettlementRun is the immutable settlement of one balance group over one
// period. Identity: group id + period.
type SettlementRun struct {
	id            RunID
	groupID       string
	period        Period
	priceCtPerKWh decimal.Decimal

	totalInKWh   decimal.Decimal
	totalOutKWh  decimal.Decimal
	forecastKWh  decimal.Decimal
	deviationKWh decimal.Decimal

	lines        []SettlementLine
	totalCostEUR decimal.Decimal
	readingIDs   []string

	createdAt time.Time
	isNew     bool
}

// NewSettlementRun settles a balance group. The deviation compares the energy
// fed into the group against the forecast; each member's cost is its metered
// usage times the internal price, rounded half to even at cents. readingIDs
// are the identities of the readings the aggregation covered, kept for audit.
func NewSettlementRun(
	groupID string,
	period Period,
	priceCtPerKWh decimal.Decimal,
	forecastKWh decimal.Decimal,
	totalInKWh decimal.Decimal,
	totalOutKWh decimal.Decimal,
	usageByPoint map[string]decimal.Decimal,
	readingIDs []string,
	createdAt time.Time,
) (*SettlementRun, error) {
	id, err := BuildRunID(groupID, period)
	if err != nil {
		return nil, err
	}
	if priceCtPerKWh.IsNegative() {
		return nil, ErrNegativePrice
	}

	points := make([]string, 0, len(usageByPoint))
	for point := range usageByPoint {
		points = append(points, point)
	}
	sort.Strings(points)

	hundred := decimal.NewFromInt(100)
	lines := make([]SettlementLine, 0, len(points))
	totalCost := decimal.Zero
	for _, point := range points {
		usage := usageByPoint[point]
		cost := usage.Mul(priceCtPerKWh).Div(hundred).RoundBank(2)
		lines = append(lines, SettlementLine{
			MeteringPoint: point,
			UsageKWh:      usage,
			CostEUR:       cost,
		})
		totalCost = totalCost.Add(cost)
	}

	ids := append([]string(nil), readingIDs...)
	sort.Strings(ids)

	return &SettlementRun{
		id:            id,
		groupID:       groupID,
		period:        period,
		priceCtPerKWh: priceCtPerKWh,
		totalInKWh:    totalInKWh,
		totalOutKWh:   totalOutKWh,
		forecastKWh:   forecastKWh,
		deviationKWh:  totalInKWh.Sub(forecastKWh),
		lines:         lines,
		totalCostEUR:  totalCost,
		readingIDs:    ids,
		createdAt:     createdAt.UTC(),
		isNew:         true,
	}, nil
}

// RestoreSettlementRun rebuilds a persisted run.
func RestoreSettlementRun(
	groupID string,
	period Period,
	priceCtPerKWh decimal.Decimal,
	forecastKWh decimal.Decimal,
	totalInKWh decimal.Decimal,
	totalOutKWh decimal.Decimal,
	deviationKWh decimal.Decimal,
	totalCostEUR decimal.Decimal,
	lines []SettlementLine,
	readingIDs []string,
	createdAt time.Time,
) (*SettlementRun, error) {
	id, err := BuildRunID(groupID, period)
	if err != nil {
		return nil, err
	}
	return &SettlementRun{
		id:            id,
		groupID:       groupID,
		period:        period,
		priceCtPerKWh: priceCtPerKWh,
		totalInKWh:    totalInKWh,
		totalOutKWh:   totalOutKWh,
		forecastKWh:   forecastKWh,
		deviationKWh:  deviationKWh,
		lines:         append([]SettlementLine(nil), lines...),
		totalCostEUR:  totalCostEUR,
		readingIDs:    append([]string(nil), readingIDs...),
		createdAt:     createdAt.UTC(),
	}, nil
}

// ID returns the run identity.
func (r *SettlementRun) ID() RunID { return r.id }

// GroupID returns the balance group id.
func (r *SettlementRun) GroupID() string { return r.groupID }

// Period returns the settled window.
func (r *SettlementRun) Period() Period { return r.period }

// PriceCtPerKWh returns the internal price in cents per kWh.
func (r *SettlementRun) PriceCtPerKWh() decimal.Decimal { return r.priceCtPerKWh }

// TotalInKWh returns the energy fed into the group.
func (r *SettlementRun) TotalInKWh() decimal.Decimal { return r.totalInKWh }

// TotalOutKWh returns the energy drawn from the group.
func (r *SettlementRun) TotalOutKWh() decimal.Decimal { return r.totalOutKWh }

// ForecastKWh returns the forecast the group was settled against.
func (r *SettlementRun) ForecastKWh() decimal.Decimal { return r.forecastKWh }

// DeviationKWh returns fed-in energy minus forecast.
func (r *SettlementRun) DeviationKWh() decimal.Decimal { return r.deviationKWh }

// Lines returns copies of the settlement lines ordered by metering point.
func (r *SettlementRun) Lines() []SettlementLine {
	return append([]SettlementLine(nil), r.lines...)
}

// TotalCostEUR returns the sum of all line costs.
func (r *SettlementRun) TotalCostEUR() decimal.Decimal { return r.totalCostEUR }

// ReadingIDs returns the ids of the readings the run settled, sorted.
func (r *SettlementRun) ReadingIDs() []string {
	return append([]string(nil), r.readingIDs...)
}

// CreatedAt returns when the run was computed.
func (r *SettlementRun) CreatedAt() time.Time { return r.createdAt }

// IsNew reports whether the run was freshly created.
func (r *SettlementRun) IsNew() bool { return r.isNew }

// MarkPersisted marks the run as persisted.
func (r *SettlementRun) MarkPersisted() {
	if r != nil {
		r.isNew = false
	}
}

// Clone returns a detached copy marked as persisted.
func (r *SettlementRun) Clone() *SettlementRun {
	if r == nil {
		return nil
	}
	copied := *r
	copied.lines = append([]SettlementLine(nil), r.lines...)
	copied.readingIDs = append([]string(nil), r.readingIDs...)
	copied.isNew = false
	return &copied
}
