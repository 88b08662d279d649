package application

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"coopmarket/internal/alerts"
	readings "coopmarket/internal/readings/domain"
	memory "coopmarket/internal/readings/infrastructure/memory"
)

func seedReadings(t *testing.T, repo *memory.ReadingRepository, point string, values []string) []readings.EnergyReading {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seeded := make([]readings.EnergyReading, 0, len(values))
	for i, value := range values {
		reading := readings.EnergyReading{
			ID:            point + "-" + strconv.Itoa(i),
			MeteringPoint: point,
			Timestamp:     base.Add(time.Duration(i) * time.Hour),
			Value:         decimal.RequireFromString(value),
			Direction:     readings.DirectionOut,
			Source:        readings.SourceAPI,
		}
		if _, err := repo.Insert(context.Background(), reading); err != nil {
			t.Fatalf("seed: %v", err)
		}
		seeded = append(seeded, reading)
	}
	return seeded
}

func TestDetectFlagsOutlier(t *testing.T) {
	repo := memory.NewReadingRepository()
	seedReadings(t, repo, "ZP001", []string{"5.0", "5.1", "4.9", "5.2", "5.0", "500.0"})

	detector, err := NewAnomalyDetector(repo, 2)
	if err != nil {
		t.Fatalf("new detector: %v", err)
	}
	found, err := detector.Detect(context.Background(), "ZP001",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("anomalies = %+v", found)
	}
	if found[0].Reading.Value.String() != "500" {
		t.Errorf("flagged = %+v", found[0].Reading)
	}
	if found[0].ZScore < 2 {
		t.Errorf("z-score = %f", found[0].ZScore)
	}
}

func TestDetectNeedsBaseline(t *testing.T) {
	repo := memory.NewReadingRepository()
	seedReadings(t, repo, "ZP001", []string{"5.0", "500.0"})

	detector, err := NewAnomalyDetector(repo, 2)
	if err != nil {
		t.Fatalf("new detector: %v", err)
	}
	found, err := detector.Detect(context.Background(), "ZP001",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if found != nil {
		t.Errorf("anomalies = %+v", found)
	}
}

func TestDetectConstantSeries(t *testing.T) {
	repo := memory.NewReadingRepository()
	seedReadings(t, repo, "ZP001", []string{"5.0", "5.0", "5.0", "5.0"})

	detector, err := NewAnomalyDetector(repo, 2)
	if err != nil {
		t.Fatalf("new detector: %v", err)
	}
	found, err := detector.Detect(context.Background(), "ZP001",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if found != nil {
		t.Errorf("anomalies = %+v", found)
	}
}

type captureNotifier struct {
	alerts []alerts.Alert
}

func (n *captureNotifier) Notify(_ context.Context, alert alerts.Alert) error {
	n.alerts = append(n.alerts, alert)
	return nil
}

func TestMonitorAlertsOnOutlier(t *testing.T) {
	repo := memory.NewReadingRepository()
	seeded := seedReadings(t, repo, "ZP001", []string{"5.0", "5.1", "4.9", "5.2", "5.0", "500.0"})

	detector, err := NewAnomalyDetector(repo, 2)
	if err != nil {
		t.Fatalf("new detector: %v", err)
	}
	notifier := &captureNotifier{}
	monitor, err := NewAnomalyMonitor(detector, notifier, 0, nil)
	if err != nil {
		t.Fatalf("new monitor: %v", err)
	}

	outlier := seeded[len(seeded)-1]
	if err := monitor.Check(context.Background(), outlier); err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(notifier.alerts) != 1 {
		t.Fatalf("alerts = %+v", notifier.alerts)
	}
	alert := notifier.alerts[0]
	if alert.MeteringPoint != "ZP001" || alert.ValueKWh != "500" {
		t.Errorf("alert = %+v", alert)
	}

	// A normal reading inside the window raises nothing.
	notifier.alerts = nil
	if err := monitor.Check(context.Background(), seeded[0]); err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(notifier.alerts) != 0 {
		t.Errorf("alerts = %+v", notifier.alerts)
	}
}
