package application

import (
	"context"
	"errors"
	"math"
	"time"

	readings "coopmarket/internal/readings/domain"
)

// Anomaly flags a reading whose value deviates strongly from the metering
// point's recent history. Advisory only, flagged readings still settle.
type Anomaly struct {
	Reading readings.EnergyReading
	Mean    float64
	StdDev  float64
	ZScore  float64
}

// AnomalyDetector screens stored readings with a z-score test. The scores are
// advisory, so float arithmetic is fine here.
type AnomalyDetector struct {
	repo      readings.Repository
	threshold float64
}

// NewAnomalyDetector constructs a detector. A non-positive threshold falls
// back to 3 standard deviations.
func NewAnomalyDetector(repo readings.Repository, threshold float64) (*AnomalyDetector, error) {
	if repo == nil {
		return nil, errors.New("anomaly detector: nil repository")
	}
	if threshold <= 0 {
		threshold = 3
	}
	return &AnomalyDetector{repo: repo, threshold: threshold}, nil
}

// Detect returns the anomalous readings of one metering point in a window.
// Fewer than three readings cannot establish a baseline and yield nothing.
func (d *AnomalyDetector) Detect(ctx context.Context, meteringPoint string, from, to time.Time) ([]Anomaly, error) {
	list, err := d.repo.ListForPoints(ctx, []string{meteringPoint}, from, to)
	if err != nil {
		return nil, err
	}
	if len(list) < 3 {
		return nil, nil
	}

	values := make([]float64, len(list))
	var sum float64
	for i, reading := range list {
		values[i], _ = reading.Value.Float64()
		sum += values[i]
	}
	mean := sum / float64(len(values))

	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))
	stddev := math.Sqrt(variance)
	if stddev == 0 {
		return nil, nil
	}

	var result []Anomaly
	for i, reading := range list {
		z := (values[i] - mean) / stddev
		if math.Abs(z) >= d.threshold {
			result = append(result, Anomaly{Reading: reading, Mean: mean, StdDev: stddev, ZScore: z})
		}
	}
	return result, nil
}
