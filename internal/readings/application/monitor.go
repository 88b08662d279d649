package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"coopmarket/internal/alerts"
	readings "coopmarket/internal/readings/domain"
)

const defaultMonitorWindow = 7 * 24 * time.Hour

// AnomalyMonitor screens freshly stored readings against their recent history
// and raises an alert when a reading is an outlier.
type AnomalyMonitor struct {
	detector *AnomalyDetector
	notifier alerts.Notifier
	window   time.Duration
	logger   *log.Logger
}

// NewAnomalyMonitor constructs a monitor. A non-positive window falls back to
// seven days of history.
func NewAnomalyMonitor(detector *AnomalyDetector, notifier alerts.Notifier, window time.Duration, logger *log.Logger) (*AnomalyMonitor, error) {
	if detector == nil {
		return nil, errors.New("anomaly monitor: nil detector")
	}
	if notifier == nil {
		return nil, errors.New("anomaly monitor: nil notifier")
	}
	if window <= 0 {
		window = defaultMonitorWindow
	}
	if logger == nil {
		logger = log.Default()
	}
	return &AnomalyMonitor{detector: detector, notifier: notifier, window: window, logger: logger}, nil
}

// Check screens one stored reading. Only the reading itself can raise an
// alert, older outliers in the window were already screened when they
// arrived.
func (m *AnomalyMonitor) Check(ctx context.Context, reading readings.EnergyReading) error {
	if m == nil {
		return nil
	}
	from := reading.Timestamp.Add(-m.window)
	to := reading.Timestamp.Add(time.Second)
	found, err := m.detector.Detect(ctx, reading.MeteringPoint, from, to)
	if err != nil {
		return err
	}
	key := reading.Key()
	for _, anomaly := range found {
		if anomaly.Reading.Key() != key {
			continue
		}
		alert := alerts.Alert{
			MeteringPoint: reading.MeteringPoint,
			Timestamp:     reading.Timestamp,
			Source:        string(reading.Source),
			ValueKWh:      reading.Value.String(),
			MeanKWh:       fmt.Sprintf("%.2f", anomaly.Mean),
			StdDevKWh:     fmt.Sprintf("%.2f", anomaly.StdDev),
			ZScore:        fmt.Sprintf("%.2f", anomaly.ZScore),
		}
		if err := m.notifier.Notify(ctx, alert); err != nil {
			m.logger.Printf("readings: anomaly alert delivery: %v", err)
		}
		return nil
	}
	return nil
}
