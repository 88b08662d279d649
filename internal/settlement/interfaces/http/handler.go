package settlementhttp

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	balancegroup "coopmarket/internal/balancegroup/domain"
	"coopmarket/internal/observability/metrics"
	"coopmarket/internal/settlement/application"
	settlement "coopmarket/internal/settlement/domain"
	"coopmarket/internal/settlement/interfaces"
)

const timeLayout = time.RFC3339

// SettleHandler triggers a balance group settlement.
type SettleHandler struct {
	engine *application.Engine
}

// NewSettleHandler constructs a SettleHandler.
func NewSettleHandler(engine *application.Engine) *SettleHandler {
	return &SettleHandler{engine: engine}
}

type settleRequest struct {
	GroupID string `json:"group_id"`
	From    string `json:"from"`
	To      string `json:"to"`

	// Optional caller-stated inputs; empty falls back to the forecast
	// provider and the group's internal price.
	ForecastKWh   string `json:"forecast_kwh,omitempty"`
	PriceCtPerKWh string `json:"price_ct_per_kwh,omitempty"`
}

// ServeHTTP handles POST /api/v1/settlements.
func (h *SettleHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.engine == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	var req settleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	from, err := time.Parse(timeLayout, req.From)
	if err != nil {
		http.Error(w, "from must be RFC3339", http.StatusBadRequest)
		return
	}
	to, err := time.Parse(timeLayout, req.To)
	if err != nil {
		http.Error(w, "to must be RFC3339", http.StatusBadRequest)
		return
	}

	cmd := application.SettleCommand{GroupID: req.GroupID, From: from, To: to}
	if req.ForecastKWh != "" {
		forecast, err := decimal.NewFromString(req.ForecastKWh)
		if err != nil {
			http.Error(w, "forecast_kwh must be a decimal", http.StatusBadRequest)
			return
		}
		cmd.ForecastKWh = decimal.NewNullDecimal(forecast)
	}
	if req.PriceCtPerKWh != "" {
		price, err := decimal.NewFromString(req.PriceCtPerKWh)
		if err != nil {
			http.Error(w, "price_ct_per_kwh must be a decimal", http.StatusBadRequest)
			return
		}
		cmd.PriceCtPerKWh = decimal.NewNullDecimal(price)
	}

	run, err := h.engine.Settle(r.Context(), cmd)
	if err != nil {
		writeSettleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	payload, err := interfaces.MarshalReport(run)
	if err != nil {
		http.Error(w, "marshal report error", http.StatusInternalServerError)
		return
	}
	_, _ = w.Write(payload)
}

// ReportHandler serves the stored report of a settled period.
type ReportHandler struct {
	runs settlement.Repository
}

// NewReportHandler constructs a ReportHandler.
func NewReportHandler(runs settlement.Repository) *ReportHandler {
	return &ReportHandler{runs: runs}
}

// ServeHTTP handles GET /api/v1/settlements/report.
func (h *ReportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.runs == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	run, ok := h.loadRun(w, r)
	if !ok {
		return
	}
	payload, err := interfaces.MarshalReport(run)
	if err != nil {
		http.Error(w, "marshal report error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(payload)
}

func (h *ReportHandler) loadRun(w http.ResponseWriter, r *http.Request) (*settlement.SettlementRun, bool) {
	groupID, period, ok := parseRunQuery(w, r)
	if !ok {
		return nil, false
	}
	run, err := h.runs.FindByGroupAndPeriod(r.Context(), groupID, period)
	if errors.Is(err, settlement.ErrRunNotFound) {
		http.Error(w, "no settlement for period", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		http.Error(w, "load settlement error", http.StatusInternalServerError)
		return nil, false
	}
	return run, true
}

// ExportHandler serves PDF and XLSX statements of a settled period.
type ExportHandler struct {
	runs settlement.Repository
}

// NewExportHandler constructs an ExportHandler.
func NewExportHandler(runs settlement.Repository) *ExportHandler {
	return &ExportHandler{runs: runs}
}

// ServeHTTP handles GET /api/v1/settlements/export.
func (h *ExportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.runs == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	groupID, period, ok := parseRunQuery(w, r)
	if !ok {
		return
	}
	run, err := h.runs.FindByGroupAndPeriod(r.Context(), groupID, period)
	if errors.Is(err, settlement.ErrRunNotFound) {
		http.Error(w, "no settlement for period", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "load settlement error", http.StatusInternalServerError)
		return
	}

	format := r.URL.Query().Get("format")
	switch format {
	case "pdf":
		payload, err := interfaces.BuildRunPDF(run)
		if err != nil {
			metrics.IncReportExport(format, "error")
			http.Error(w, "build pdf error", http.StatusInternalServerError)
			return
		}
		metrics.IncReportExport(format, "success")
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write(payload)
	case "xlsx":
		payload, err := interfaces.BuildRunXLSX(run)
		if err != nil {
			metrics.IncReportExport(format, "error")
			http.Error(w, "build xlsx error", http.StatusInternalServerError)
			return
		}
		metrics.IncReportExport(format, "success")
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		_, _ = w.Write(payload)
	default:
		http.Error(w, "format must be pdf or xlsx", http.StatusBadRequest)
	}
}

func parseRunQuery(w http.ResponseWriter, r *http.Request) (string, settlement.Period, bool) {
	groupID := r.URL.Query().Get("group_id")
	if groupID == "" {
		http.Error(w, "group_id is required", http.StatusBadRequest)
		return "", settlement.Period{}, false
	}
	from, err := time.Parse(timeLayout, r.URL.Query().Get("from"))
	if err != nil {
		http.Error(w, "from must be RFC3339", http.StatusBadRequest)
		return "", settlement.Period{}, false
	}
	to, err := time.Parse(timeLayout, r.URL.Query().Get("to"))
	if err != nil {
		http.Error(w, "to must be RFC3339", http.StatusBadRequest)
		return "", settlement.Period{}, false
	}
	period, err := settlement.NewPeriod(from, to)
	if err != nil {
		http.Error(w, "to must be after from", http.StatusBadRequest)
		return "", settlement.Period{}, false
	}
	return groupID, period, true
}

func writeSettleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, settlement.ErrAlreadySettled):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, settlement.ErrInvalidPeriod), errors.Is(err, settlement.ErrEmptyGroupID):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, balancegroup.ErrGroupNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, "settlement error", http.StatusInternalServerError)
	}
}
