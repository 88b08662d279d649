package settlementhttp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	balancegroup "coopmarket/internal/balancegroup/domain"
	groupmemory "coopmarket/internal/balancegroup/infrastructure/memory"
	readings "coopmarket/internal/readings/domain"
	readingmemory "coopmarket/internal/readings/infrastructure/memory"
	"coopmarket/internal/settlement/application"
	settlement "coopmarket/internal/settlement/domain"
	memory "coopmarket/internal/settlement/infrastructure/memory"
)

func storedRun(t *testing.T) (*memory.RunRepository, settlement.Period) {
	t.Helper()
	period, err := settlement.NewPeriod(
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	)
	if err != nil {
		t.Fatalf("new period: %v", err)
	}
	run, err := settlement.NewSettlementRun(
		"bg-1", period,
		decimal.RequireFromString("10"),
		decimal.RequireFromString("1300"),
		decimal.Zero,
		decimal.RequireFromString("1387.2"),
		map[string]decimal.Decimal{
			"ZP001": decimal.RequireFromString("510.2"),
			"ZP002": decimal.RequireFromString("877.0"),
		},
		[]string{"r-1", "r-2"},
		time.Date(2024, 2, 1, 6, 0, 0, 0, time.UTC),
	)
	if err != nil {
		t.Fatalf("new run: %v", err)
	}
	repo := memory.NewRunRepository()
	if err := repo.Save(context.Background(), run); err != nil {
		t.Fatalf("save run: %v", err)
	}
	return repo, period
}

func runQuery(period settlement.Period) string {
	return "group_id=bg-1&from=" + period.From.Format(time.RFC3339) + "&to=" + period.To.Format(time.RFC3339)
}

func TestReportHandlerServesStoredRun(t *testing.T) {
	repo, period := storedRun(t)
	handler := NewReportHandler(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/settlements/report?"+runQuery(period), nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	body := rec.Body.String()
	for _, want := range []string{`"balance_group":"bg-1"`, `"ZP001"`, `"cost_eur":51.02`} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
}

func TestReportHandlerUnknownPeriodIs404(t *testing.T) {
	repo, _ := storedRun(t)
	handler := NewReportHandler(repo)

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/settlements/report?group_id=bg-1&from=2025-01-01T00:00:00Z&to=2025-02-01T00:00:00Z", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestReportHandlerBadQueryIs400(t *testing.T) {
	repo, _ := storedRun(t)
	handler := NewReportHandler(repo)

	cases := map[string]string{
		"missing group": "from=2024-01-01T00:00:00Z&to=2024-02-01T00:00:00Z",
		"bad from":      "group_id=bg-1&from=january&to=2024-02-01T00:00:00Z",
		"inverted":      "group_id=bg-1&from=2024-02-01T00:00:00Z&to=2024-01-01T00:00:00Z",
	}
	for name, query := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/settlements/report?"+query, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d", name, rec.Code)
		}
	}
}

func TestExportHandlerFormats(t *testing.T) {
	repo, period := storedRun(t)
	handler := NewExportHandler(repo)

	cases := map[string]struct {
		format      string
		status      int
		contentType string
	}{
		"pdf":     {"pdf", http.StatusOK, "application/pdf"},
		"xlsx":    {"xlsx", http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
		"unknown": {"doc", http.StatusBadRequest, ""},
	}
	for name, tc := range cases {
		req := httptest.NewRequest(http.MethodGet,
			"/api/v1/settlements/export?"+runQuery(period)+"&format="+tc.format, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != tc.status {
			t.Errorf("%s: status = %d", name, rec.Code)
			continue
		}
		if tc.contentType != "" && rec.Header().Get("Content-Type") != tc.contentType {
			t.Errorf("%s: content type = %q", name, rec.Header().Get("Content-Type"))
		}
		if tc.status == http.StatusOK && rec.Body.Len() == 0 {
			t.Errorf("%s: empty body", name)
		}
	}
}

func TestSettleHandlerMethodNotAllowed(t *testing.T) {
	handler := NewSettleHandler(nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/settlements", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d", rec.Code)
	}
}

func newSettleHandler(t *testing.T) *SettleHandler {
	t.Helper()
	ctx := context.Background()

	groups := groupmemory.NewGroupRepository()
	err := groups.Save(ctx, &balancegroup.BalanceGroup{
		ID: "bg-1",
		Memberships: []balancegroup.Membership{
			{MeteringPoint: "ZP001", ValidFrom: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)},
		},
	})
	if err != nil {
		t.Fatalf("save group: %v", err)
	}

	readingRepo := readingmemory.NewReadingRepository()
	_, err = readingRepo.Insert(ctx, readings.EnergyReading{
		ID:            "r-1",
		MeteringPoint: "ZP001",
		Timestamp:     time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
		Value:         decimal.RequireFromString("510.2"),
		Direction:     readings.DirectionOut,
		Source:        readings.SourceEDI,
	})
	if err != nil {
		t.Fatalf("seed reading: %v", err)
	}

	engine, err := application.NewEngine(
		groups, balancegroup.NewAggregator(readingRepo), memory.NewRunRepository(),
		nil, nil, decimal.RequireFromString("10"), nil, nil,
	)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return NewSettleHandler(engine)
}

func TestSettleHandlerExplicitInputs(t *testing.T) {
	handler := newSettleHandler(t)

	body := `{"group_id":"bg-1","from":"2024-01-01T00:00:00Z","to":"2024-02-01T00:00:00Z",` +
		`"price_ct_per_kwh":"20","forecast_kwh":"100"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/settlements", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body)
	}
	got := rec.Body.String()
	for _, want := range []string{`"internal_price_ct_per_kwh":20`, `"cost_eur":102.04`} {
		if !strings.Contains(got, want) {
			t.Errorf("body missing %q:\n%s", want, got)
		}
	}
}

func TestSettleHandlerBadInputsAre400(t *testing.T) {
	handler := newSettleHandler(t)

	cases := map[string]string{
		"bad price":    `{"group_id":"bg-1","from":"2024-01-01T00:00:00Z","to":"2024-02-01T00:00:00Z","price_ct_per_kwh":"cheap"}`,
		"bad forecast": `{"group_id":"bg-1","from":"2024-01-01T00:00:00Z","to":"2024-02-01T00:00:00Z","forecast_kwh":"lots"}`,
	}
	for name, body := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/settlements", strings.NewReader(body))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d", name, rec.Code)
		}
	}
}
