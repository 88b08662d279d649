package readingshttp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"coopmarket/internal/readings/application"
	memory "coopmarket/internal/readings/infrastructure/memory"
)

func newSubmitHandler(t *testing.T) (*SubmitHandler, *memory.ReadingRepository) {
	t.Helper()
	repo := memory.NewReadingRepository()
	ingest, err := application.NewIngestService(repo, application.NewNormalizer(nil), nil, nil)
	if err != nil {
		t.Fatalf("new ingest: %v", err)
	}
	return NewSubmitHandler(ingest), repo
}

func postJSON(handler http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/readings", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

const sampleSubmission = `{"metering_point":"ZP001","timestamp":"2024-01-15T12:00:00Z","value":"5.25","direction":"OUT"}`

func TestSubmitStoresReading(t *testing.T) {
	handler, repo := newSubmitHandler(t)

	rec := postJSON(handler, sampleSubmission)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "stored" {
		t.Errorf("status = %q", resp["status"])
	}
	if repo.Len() != 1 {
		t.Errorf("stored readings = %d", repo.Len())
	}
}

func TestSubmitDuplicateIs200(t *testing.T) {
	handler, repo := newSubmitHandler(t)

	if rec := postJSON(handler, sampleSubmission); rec.Code != http.StatusCreated {
		t.Fatalf("first status = %d", rec.Code)
	}
	rec := postJSON(handler, sampleSubmission)
	if rec.Code != http.StatusOK {
		t.Errorf("duplicate status = %d body = %s", rec.Code, rec.Body)
	}
	if repo.Len() != 1 {
		t.Errorf("stored readings = %d", repo.Len())
	}
}

func TestSubmitConflictIs409(t *testing.T) {
	handler, _ := newSubmitHandler(t)

	if rec := postJSON(handler, sampleSubmission); rec.Code != http.StatusCreated {
		t.Fatalf("first status = %d", rec.Code)
	}
	conflicting := strings.Replace(sampleSubmission, "5.25", "6.00", 1)
	rec := postJSON(handler, conflicting)
	if rec.Code != http.StatusConflict {
		t.Errorf("conflict status = %d body = %s", rec.Code, rec.Body)
	}
}

func TestSubmitInvalidIs400(t *testing.T) {
	handler, _ := newSubmitHandler(t)

	cases := map[string]string{
		"not json":       `{`,
		"bad direction":  `{"metering_point":"ZP001","timestamp":"2024-01-15T12:00:00Z","value":"5","direction":"SIDEWAYS"}`,
		"empty point":    `{"metering_point":"","timestamp":"2024-01-15T12:00:00Z","value":"5","direction":"OUT"}`,
		"bad timestamp":  `{"metering_point":"ZP001","timestamp":"yesterday","value":"5","direction":"OUT"}`,
		"negative value": `{"metering_point":"ZP001","timestamp":"2024-01-15T12:00:00Z","value":"-5","direction":"OUT"}`,
	}
	for name, body := range cases {
		if rec := postJSON(handler, body); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d", name, rec.Code)
		}
	}
}

func TestSubmitMethodNotAllowed(t *testing.T) {
	handler, _ := newSubmitHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/readings", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestBulkCSVMixedRows(t *testing.T) {
	repo := memory.NewReadingRepository()
	ingest, err := application.NewIngestService(repo, application.NewNormalizer(nil), nil, nil)
	if err != nil {
		t.Fatalf("new ingest: %v", err)
	}
	handler := NewBulkCSVHandler(ingest)

	body := strings.Join([]string{
		"metering_point,timestamp,value,direction",
		"ZP001,2024-01-15T12:00:00Z,5.25,OUT",
		"ZP001,2024-01-15T12:00:00Z,5.25,OUT",
		"ZP001,2024-01-15T12:00:00Z,9.99,OUT",
		"ZP002,not-a-time,1.0,OUT",
	}, "\n")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/readings/csv", strings.NewReader(body))
	req.Header.Set("X-Submission-Id", "upload-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body)
	}
	var results []bulkRowResult
	if err := json.Unmarshal(rec.Body.Bytes(), &results); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("results = %+v", results)
	}
	want := []string{"stored", "duplicate", "conflict", "invalid"}
	for i, status := range want {
		if results[i].Status != status {
			t.Errorf("row %d status = %q, want %q", results[i].Row, results[i].Status, status)
		}
	}
	if repo.Len() != 1 {
		t.Errorf("stored readings = %d", repo.Len())
	}
}
