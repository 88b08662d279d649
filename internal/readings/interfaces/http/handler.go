package readingshttp

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"coopmarket/internal/readings/application"
	readings "coopmarket/internal/readings/domain"
)

// SubmitHandler accepts single reading submissions over JSON.
type SubmitHandler struct {
	ingest *application.IngestService
}

// NewSubmitHandler constructs a SubmitHandler.
func NewSubmitHandler(ingest *application.IngestService) *SubmitHandler {
	return &SubmitHandler{ingest: ingest}
}

// ServeHTTP handles POST /api/v1/readings.
func (h *SubmitHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.ingest == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	var submission application.APISubmission
	if err := json.NewDecoder(r.Body).Decode(&submission); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	outcome, err := h.ingest.Ingest(r.Context(), submission)
	if err != nil {
		writeIngestError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if outcome == readings.OutcomeDuplicate {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "duplicate"})
		return
	}
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "stored"})
}

// BulkCSVHandler accepts bulk CSV uploads. Rows are
// metering_point,timestamp,value,direction with an optional header line.
type BulkCSVHandler struct {
	ingest *application.IngestService
}

// NewBulkCSVHandler constructs a BulkCSVHandler.
func NewBulkCSVHandler(ingest *application.IngestService) *BulkCSVHandler {
	return &BulkCSVHandler{ingest: ingest}
}

type bulkRowResult struct {
	Row    int    `json:"row"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// ServeHTTP handles POST /api/v1/readings/csv.
func (h *BulkCSVHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.ingest == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	reader := csv.NewReader(r.Body)
	reader.FieldsPerRecord = -1
	submissionID := r.Header.Get("X-Submission-Id")

	var results []bulkRowResult
	row := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			http.Error(w, "invalid csv body", http.StatusBadRequest)
			return
		}
		row++
		if row == 1 && isHeaderRow(record) {
			continue
		}
		if len(record) < 4 {
			results = append(results, bulkRowResult{Row: row, Status: "invalid", Error: "expected 4 columns"})
			continue
		}

		outcome, err := h.ingest.Ingest(r.Context(), application.CSVRow{
			MeteringPoint: record[0],
			Timestamp:     record[1],
			Value:         record[2],
			Direction:     record[3],
			SubmissionID:  submissionID,
		})
		switch {
		case err == nil && outcome == readings.OutcomeDuplicate:
			results = append(results, bulkRowResult{Row: row, Status: "duplicate"})
		case err == nil:
			results = append(results, bulkRowResult{Row: row, Status: "stored"})
		case errors.Is(err, readings.ErrConflict):
			results = append(results, bulkRowResult{Row: row, Status: "conflict", Error: err.Error()})
		case errors.Is(err, readings.ErrInvalidReading):
			results = append(results, bulkRowResult{Row: row, Status: "invalid", Error: err.Error()})
		default:
			http.Error(w, "ingest error", http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(results)
}

func isHeaderRow(record []string) bool {
	return len(record) > 0 && record[0] == "metering_point"
}

func writeIngestError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, readings.ErrConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, readings.ErrInvalidReading):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "ingest error", http.StatusInternalServerError)
	}
}
