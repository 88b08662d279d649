package application

import (
	"context"
	"errors"
	"log"
	"time"

	"coopmarket/internal/eventing"
	"coopmarket/internal/observability/metrics"
	readings "coopmarket/internal/readings/domain"
)

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// IngestService accepts raw reading submissions from every channel.
type IngestService struct {
	repo       readings.Repository
	normalizer *Normalizer
	monitor    *AnomalyMonitor
	clock      Clock
	logger     *log.Logger
}

// IngestOption configures the ingest service.
type IngestOption func(*IngestService)

// WithAnomalyMonitor screens stored readings for outliers after ingest.
func WithAnomalyMonitor(monitor *AnomalyMonitor) IngestOption {
	return func(s *IngestService) {
		s.monitor = monitor
	}
}

// NewIngestService constructs the service.
func NewIngestService(
	repo readings.Repository,
	normalizer *Normalizer,
	clock Clock,
	logger *log.Logger,
	opts ...IngestOption,
) (*IngestService, error) {
	if repo == nil {
		return nil, errors.New("ingest service: nil repository")
	}
	if normalizer == nil {
		return nil, errors.New("ingest service: nil normalizer")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = log.Default()
	}
	s := &IngestService{repo: repo, normalizer: normalizer, clock: clock, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Ingest normalizes and stores one submission. Identical duplicates are
// accepted silently; a duplicate with a different value is a ConflictError and
// the stored reading stays untouched.
func (s *IngestService) Ingest(ctx context.Context, input RawReadingInput) (readings.InsertOutcome, error) {
	reading, err := s.normalizer.Normalize(ctx, input)
	if err != nil {
		metrics.IncReadingIngested(sourceLabel(input), "invalid")
		return 0, err
	}
	reading.ID = eventing.NewEventID()
	reading.ReceivedAt = s.clock.Now().UTC()

	outcome, err := s.repo.Insert(ctx, reading)
	if err != nil {
		if errors.Is(err, readings.ErrConflict) {
			metrics.IncReadingIngested(string(reading.Source), "conflict")
			metrics.IncReadingConflict()
			s.logger.Printf("readings: conflicting duplicate for %s at %s from %s",
				reading.MeteringPoint, reading.Timestamp.Format(time.RFC3339), reading.Source)
			return 0, err
		}
		metrics.IncReadingIngested(string(reading.Source), "error")
		return 0, err
	}

	switch outcome {
	case readings.OutcomeDuplicate:
		metrics.IncReadingIngested(string(reading.Source), "duplicate")
	default:
		metrics.IncReadingIngested(string(reading.Source), "stored")
		if s.monitor != nil {
			if err := s.monitor.Check(ctx, reading); err != nil {
				s.logger.Printf("readings: anomaly screen for %s: %v", reading.MeteringPoint, err)
			}
		}
	}
	return outcome, nil
}

// IngestBatch ingests a slice of submissions, continuing past invalid rows.
// It returns per-row errors indexed like the input.
func (s *IngestService) IngestBatch(ctx context.Context, inputs []RawReadingInput) []error {
	errs := make([]error, len(inputs))
	for i, input := range inputs {
		_, errs[i] = s.Ingest(ctx, input)
	}
	return errs
}

func sourceLabel(input RawReadingInput) string {
	switch v := input.(type) {
	case CSVRow:
		return string(readings.SourceCSV)
	case APISubmission:
		if v.Source != "" {
			return v.Source
		}
		return string(readings.SourceAPI)
	case MSCONSExtract:
		return string(readings.SourceEDI)
	default:
		return "unknown"
	}
}
