package interfaces

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	settlement "coopmarket/internal/settlement/domain"
)

func sampleRun(t *testing.T) *settlement.SettlementRun {
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
	return run
}

func TestMarshalReportGolden(t *testing.T) {
	run := sampleRun(t)

	got, err := MarshalReport(run)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"balance_group":"bg-1",` +
		`"period":"2024-01-01T00:00:00Z to 2024-02-01T00:00:00Z",` +
		`"total_consumed_kwh":1387.2,` +
		`"total_generated_kwh":0,` +
		`"internal_price_ct_per_kwh":10,` +
		`"settlement":{` +
		`"ZP001":{"usage_kwh":510.2,"cost_eur":51.02},` +
		`"ZP002":{"usage_kwh":877,"cost_eur":87.70}}}`
	if string(got) != want {
		t.Errorf("report = %s", got)
	}
}

func TestMarshalReportDeterministic(t *testing.T) {
	run := sampleRun(t)

	first, err := MarshalReport(run)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	second, err := MarshalReport(run)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("repeated marshals differ")
	}
}

func TestBuildRunPDF(t *testing.T) {
	payload, err := BuildRunPDF(sampleRun(t))
	if err != nil {
		t.Fatalf("build pdf: %v", err)
	}
	if !bytes.HasPrefix(payload, []byte("%PDF")) {
		t.Errorf("payload does not look like a pdf: %q", payload[:8])
	}
}

func TestBuildRunXLSX(t *testing.T) {
	payload, err := BuildRunXLSX(sampleRun(t))
	if err != nil {
		t.Fatalf("build xlsx: %v", err)
	}
	// XLSX files are zip archives.
	if !bytes.HasPrefix(payload, []byte("PK")) {
		t.Errorf("payload does not look like a zip: %q", payload[:4])
	}
}
