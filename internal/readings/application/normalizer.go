package application

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	readings "coopmarket/internal/readings/domain"
)

// RawReadingInput is the closed set of submission shapes the cooperative
// accepts. Every channel funnels through the same normalizer so one place
// decides what a valid reading is.
type RawReadingInput interface {
	rawReading() (readings.EnergyReading, error)
}

// CSVRow is one row of a bulk CSV upload.
type CSVRow struct {
	MeteringPoint string
	Timestamp     string
	Value         string
	Direction     string
	SubmissionID  string
}

func (r CSVRow) rawReading() (readings.EnergyReading, error) {
	ts, err := parseTimestamp(r.Timestamp)
	if err != nil {
		return readings.EnergyReading{}, err
	}
	value, err := parseValue(r.Value)
	if err != nil {
		return readings.EnergyReading{}, err
	}
	direction, err := parseDirection(r.Direction)
	if err != nil {
		return readings.EnergyReading{}, err
	}
	return readings.EnergyReading{
		MeteringPoint: strings.TrimSpace(r.MeteringPoint),
		Timestamp:     ts,
		Value:         value,
		Direction:     direction,
		Source:        readings.SourceCSV,
		SubmissionID:  r.SubmissionID,
	}, nil
}

// APISubmission is one reading posted over the JSON API. Voicebot submissions
// arrive over the same endpoint with their own source marker.
type APISubmission struct {
	MeteringPoint string          `json:"metering_point"`
	Timestamp     string          `json:"timestamp"`
	Value         decimal.Decimal `json:"value"`
	Direction     string          `json:"direction"`
	Source        string          `json:"source,omitempty"`
	SubmissionID  string          `json:"submission_id,omitempty"`
}

func (r APISubmission) rawReading() (readings.EnergyReading, error) {
	ts, err := parseTimestamp(r.Timestamp)
	if err != nil {
		return readings.EnergyReading{}, err
	}
	direction, err := parseDirection(r.Direction)
	if err != nil {
		return readings.EnergyReading{}, err
	}
	source := readings.SourceAPI
	if strings.EqualFold(r.Source, string(readings.SourceVoicebot)) {
		source = readings.SourceVoicebot
	}
	return readings.EnergyReading{
		MeteringPoint: strings.TrimSpace(r.MeteringPoint),
		Timestamp:     ts,
		Value:         r.Value,
		Direction:     direction,
		Source:        source,
		SubmissionID:  r.SubmissionID,
	}, nil
}

// MSCONSExtract is one quantity lifted out of an accepted MSCONS message.
type MSCONSExtract struct {
	MessageReference string
	MeteringPoint    string
	Timestamp        time.Time
	Value            decimal.Decimal
	Direction        string
}

func (r MSCONSExtract) rawReading() (readings.EnergyReading, error) {
	if r.Timestamp.IsZero() {
		return readings.EnergyReading{}, &readings.InvalidReadingError{Field: "timestamp", Reason: "missing"}
	}
	direction, err := parseDirection(r.Direction)
	if err != nil {
		return readings.EnergyReading{}, err
	}
	return readings.EnergyReading{
		MeteringPoint: strings.TrimSpace(r.MeteringPoint),
		Timestamp:     r.Timestamp.UTC(),
		Value:         r.Value,
		Direction:     direction,
		Source:        readings.SourceEDI,
		SubmissionID:  r.MessageReference,
	}, nil
}

// KnownMeteringPoints answers whether a metering point is registered with the
// cooperative.
type KnownMeteringPoints interface {
	IsKnown(ctx context.Context, meteringPoint string) (bool, error)
}

// Normalizer turns raw submissions into validated energy readings.
type Normalizer struct {
	points KnownMeteringPoints
}

// NewNormalizer constructs a normalizer.
func NewNormalizer(points KnownMeteringPoints) *Normalizer {
	return &Normalizer{points: points}
}

// Normalize validates and converts one raw submission.
func (n *Normalizer) Normalize(ctx context.Context, input RawReadingInput) (readings.EnergyReading, error) {
	if input == nil {
		return readings.EnergyReading{}, &readings.InvalidReadingError{Field: "input", Reason: "nil"}
	}
	reading, err := input.rawReading()
	if err != nil {
		return readings.EnergyReading{}, err
	}
	if reading.MeteringPoint == "" {
		return readings.EnergyReading{}, &readings.InvalidReadingError{Field: "metering_point", Reason: "empty"}
	}
	if reading.Value.IsNegative() {
		return readings.EnergyReading{}, &readings.InvalidReadingError{Field: "value", Reason: "negative"}
	}
	if n.points != nil {
		known, err := n.points.IsKnown(ctx, reading.MeteringPoint)
		if err != nil {
			return readings.EnergyReading{}, err
		}
		if !known {
			return readings.EnergyReading{}, &readings.InvalidReadingError{Field: "metering_point", Reason: "unknown"}
		}
	}
	return reading, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, &readings.InvalidReadingError{Field: "timestamp", Reason: "empty"}
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, &readings.InvalidReadingError{Field: "timestamp", Reason: "must be RFC3339"}
	}
	return ts.UTC(), nil
}

func parseValue(raw string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, &readings.InvalidReadingError{Field: "value", Reason: "not a decimal"}
	}
	return value, nil
}

func parseDirection(raw string) (readings.Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(readings.DirectionIn):
		return readings.DirectionIn, nil
	case string(readings.DirectionOut):
		return readings.DirectionOut, nil
	default:
		return "", &readings.InvalidReadingError{Field: "direction", Reason: "must be IN or OUT"}
	}
}
