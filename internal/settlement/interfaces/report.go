package interfaces

import (
	"encoding/json"

	settlement "coopmarket/internal/settlement/domain"
)

// LineReport is one member's share in the settlement report.
type LineReport struct {
	UsageKWh json.Number `json:"usage_kwh"`
	CostEUR  json.Number `json:"cost_eur"`
}

// Report is the stable JSON projection of a settlement run. The same run
// always marshals to the same bytes, map keys sort on encoding.
type Report struct {
	BalanceGroup      string                `json:"balance_group"`
	Period            string                `json:"period"`
	TotalConsumedKWh  json.Number           `json:"total_consumed_kwh"`
	TotalGeneratedKWh json.Number           `json:"total_generated_kwh"`
	InternalPriceCt   json.Number           `json:"internal_price_ct_per_kwh"`
	Settlement        map[string]LineReport `json:"settlement"`
}

// BuildReport projects a settlement run into its report form. Quantities keep
// their exact decimal representation, costs print with two decimals.
func BuildReport(run *settlement.SettlementRun) Report {
	lines := make(map[string]LineReport, len(run.Lines()))
	for _, line := range run.Lines() {
		lines[line.MeteringPoint] = LineReport{
			UsageKWh: json.Number(line.UsageKWh.String()),
			CostEUR:  json.Number(line.CostEUR.StringFixed(2)),
		}
	}
	return Report{
		BalanceGroup:      run.GroupID(),
		Period:            run.Period().String(),
		TotalConsumedKWh:  json.Number(run.TotalOutKWh().String()),
		TotalGeneratedKWh: json.Number(run.TotalInKWh().String()),
		InternalPriceCt:   json.Number(run.PriceCtPerKWh().String()),
		Settlement:        lines,
	}
}

// MarshalReport renders the report as deterministic JSON bytes.
func MarshalReport(run *settlement.SettlementRun) ([]byte, error) {
	return json.Marshal(BuildReport(run))
}
