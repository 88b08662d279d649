package apihttp

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

const timeLayout = time.RFC3339

// SettlementRunsHandler serves settlement run listings straight from the read
// model.
type SettlementRunsHandler struct {
	db *sql.DB
}

// NewSettlementRunsHandler constructs a SettlementRunsHandler.
func NewSettlementRunsHandler(db *sql.DB) *SettlementRunsHandler {
	return &SettlementRunsHandler{db: db}
}

// ServeHTTP handles GET /api/v1/settlements/runs.
func (h *SettlementRunsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.db == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	groupID := r.URL.Query().Get("group_id")
	if groupID == "" {
		http.Error(w, "group_id is required", http.StatusBadRequest)
		return
	}
	from, err := parseTimeQuery(r, "from")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	to, err := parseTimeQuery(r, "to")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !to.After(from) {
		http.Error(w, "to must be after from", http.StatusBadRequest)
		return
	}

	rows, err := queryRuns(r.Context(), h.db, groupID, from, to)
	if err != nil {
		http.Error(w, "query runs error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rows)
}

// ExportRunsCSVHandler serves settlement run CSV exports.
type ExportRunsCSVHandler struct {
	db *sql.DB
}

// NewExportRunsCSVHandler constructs an ExportRunsCSVHandler.
func NewExportRunsCSVHandler(db *sql.DB) *ExportRunsCSVHandler {
	return &ExportRunsCSVHandler{db: db}
}

// ServeHTTP handles GET /api/v1/exports/settlements.csv.
func (h *ExportRunsCSVHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.db == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	groupID := r.URL.Query().Get("group_id")
	if groupID == "" {
		http.Error(w, "group_id is required", http.StatusBadRequest)
		return
	}
	from, err := parseTimeQuery(r, "from")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	to, err := parseTimeQuery(r, "to")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !to.After(from) {
		http.Error(w, "to must be after from", http.StatusBadRequest)
		return
	}

	rows, err := queryRuns(r.Context(), h.db, groupID, from, to)
	if err != nil {
		http.Error(w, "query runs error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	writer := csv.NewWriter(w)
	_ = writer.Write([]string{
		"group_id",
		"period_from",
		"period_to",
		"price_ct_per_kwh",
		"forecast_kwh",
		"total_in_kwh",
		"total_out_kwh",
		"deviation_kwh",
		"total_cost_eur",
		"created_at",
	})
	for _, row := range rows {
		_ = writer.Write([]string{
			row.GroupID,
			row.PeriodFrom.Format(timeLayout),
			row.PeriodTo.Format(timeLayout),
			row.PriceCtPerKWh,
			row.ForecastKWh,
			row.TotalInKWh,
			row.TotalOutKWh,
			row.DeviationKWh,
			row.TotalCostEUR,
			row.CreatedAt.Format(timeLayout),
		})
	}
	writer.Flush()
}

type runRow struct {
	GroupID       string    `json:"group_id"`
	PeriodFrom    time.Time `json:"period_from"`
	PeriodTo      time.Time `json:"period_to"`
	PriceCtPerKWh string    `json:"price_ct_per_kwh"`
	ForecastKWh   string    `json:"forecast_kwh"`
	TotalInKWh    string    `json:"total_in_kwh"`
	TotalOutKWh   string    `json:"total_out_kwh"`
	DeviationKWh  string    `json:"deviation_kwh"`
	TotalCostEUR  string    `json:"total_cost_eur"`
	CreatedAt     time.Time `json:"created_at"`
}

func queryRuns(ctx context.Context, db *sql.DB, groupID string, from, to time.Time) ([]runRow, error) {
	rows, err := db.QueryContext(ctx, `
SELECT
	group_id,
	period_from,
	period_to,
	price_ct_per_kwh,
	forecast_kwh,
	total_in_kwh,
	total_out_kwh,
	deviation_kwh,
	total_cost_eur,
	created_at
FROM settlement_runs
WHERE group_id = $1
	AND period_from >= $2
	AND period_from < $3
ORDER BY period_from ASC`, groupID, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []runRow
	for rows.Next() {
		var row runRow
		if err := rows.Scan(
			&row.GroupID,
			&row.PeriodFrom,
			&row.PeriodTo,
			&row.PriceCtPerKWh,
			&row.ForecastKWh,
			&row.TotalInKWh,
			&row.TotalOutKWh,
			&row.DeviationKWh,
			&row.TotalCostEUR,
			&row.CreatedAt,
		); err != nil {
			return nil, err
		}
		row.PeriodFrom = row.PeriodFrom.UTC()
		row.PeriodTo = row.PeriodTo.UTC()
		row.CreatedAt = row.CreatedAt.UTC()
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func parseTimeQuery(r *http.Request, key string) (time.Time, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return time.Time{}, errors.New(key + " is required")
	}
	parsed, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, errors.New(key + " must be RFC3339")
	}
	return parsed.UTC(), nil
}
