package readingshttp

import (
	"encoding/json"
	"net/http"
	"time"

	"coopmarket/internal/readings/application"
)

// AnomalyHandler serves anomaly screening queries.
type AnomalyHandler struct {
	detector *application.AnomalyDetector
}

// NewAnomalyHandler constructs an AnomalyHandler.
func NewAnomalyHandler(detector *application.AnomalyDetector) *AnomalyHandler {
	return &AnomalyHandler{detector: detector}
}

type anomalyRow struct {
	MeteringPoint string    `json:"metering_point"`
	Timestamp     time.Time `json:"timestamp"`
	Value         string    `json:"value"`
	Direction     string    `json:"direction"`
	ZScore        float64   `json:"z_score"`
}

// ServeHTTP handles GET /api/v1/readings/anomalies.
func (h *AnomalyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.detector == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	meteringPoint := r.URL.Query().Get("metering_point")
	if meteringPoint == "" {
		http.Error(w, "metering_point is required", http.StatusBadRequest)
		return
	}
	from, err := time.Parse(time.RFC3339, r.URL.Query().Get("from"))
	if err != nil {
		http.Error(w, "from must be RFC3339", http.StatusBadRequest)
		return
	}
	to, err := time.Parse(time.RFC3339, r.URL.Query().Get("to"))
	if err != nil {
		http.Error(w, "to must be RFC3339", http.StatusBadRequest)
		return
	}

	anomalies, err := h.detector.Detect(r.Context(), meteringPoint, from, to)
	if err != nil {
		http.Error(w, "detect error", http.StatusInternalServerError)
		return
	}

	rows := make([]anomalyRow, 0, len(anomalies))
	for _, a := range anomalies {
		rows = append(rows, anomalyRow{
			MeteringPoint: a.Reading.MeteringPoint,
			Timestamp:     a.Reading.Timestamp,
			Value:         a.Reading.Value.String(),
			Direction:     string(a.Reading.Direction),
			ZScore:        a.ZScore,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rows)
}
