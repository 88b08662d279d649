package application

import (
	"time"

	"github.com/shopspring/decimal"
)

// SettlementCompleted is emitted when a balance group period is settled for
// the first time. Repeated settlements of the same period do not emit again.
type SettlementCompleted struct {
	GroupID      string          `json:"group_id"`
	PeriodFrom   time.Time       `json:"period_from"`
	PeriodTo     time.Time       `json:"period_to"`
	TotalInKWh   decimal.Decimal `json:"total_in_kwh"`
	TotalOutKWh  decimal.Decimal `json:"total_out_kwh"`
	DeviationKWh decimal.Decimal `json:"deviation_kwh"`
	TotalCostEUR decimal.Decimal `json:"total_cost_eur"`
	OccurredAt   time.Time       `json:"occurred_at"`
}
