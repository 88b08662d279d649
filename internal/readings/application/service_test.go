package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	readings "coopmarket/internal/readings/domain"
	memory "coopmarket/internal/readings/infrastructure/memory"
)

type allowPoints struct {
	known map[string]bool
}

func (a allowPoints) IsKnown(_ context.Context, point string) (bool, error) {
	if a.known == nil {
		return true, nil
	}
	return a.known[point], nil
}

type testClock struct{ at time.Time }

func (c testClock) Now() time.Time { return c.at }

func newTestIngest(t *testing.T, repo readings.Repository, points KnownMeteringPoints, opts ...IngestOption) *IngestService {
	t.Helper()
	service, err := NewIngestService(repo, NewNormalizer(points), testClock{at: time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)}, nil, opts...)
	if err != nil {
		t.Fatalf("new ingest service: %v", err)
	}
	return service
}

func TestIngestStoresReading(t *testing.T) {
	repo := memory.NewReadingRepository()
	service := newTestIngest(t, repo, allowPoints{})

	outcome, err := service.Ingest(context.Background(), CSVRow{
		MeteringPoint: "ZP001",
		Timestamp:     "2024-01-01T12:00:00Z",
		Value:         "5.25",
		Direction:     "OUT",
		SubmissionID:  "upload-1",
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if outcome != readings.OutcomeStored {
		t.Errorf("outcome = %v", outcome)
	}

	stored, err := repo.ListForPoints(context.Background(), []string{"ZP001"},
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("stored = %+v", stored)
	}
	reading := stored[0]
	if reading.ID == "" {
		t.Error("reading id not assigned")
	}
	if reading.Source != readings.SourceCSV || reading.SubmissionID != "upload-1" {
		t.Errorf("reading = %+v", reading)
	}
	if !reading.ReceivedAt.Equal(time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("received at = %s", reading.ReceivedAt)
	}
}

func TestIngestIdenticalDuplicateIsNoOp(t *testing.T) {
	repo := memory.NewReadingRepository()
	service := newTestIngest(t, repo, allowPoints{})

	row := CSVRow{MeteringPoint: "ZP001", Timestamp: "2024-01-01T12:00:00Z", Value: "5.25", Direction: "OUT"}
	if _, err := service.Ingest(context.Background(), row); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	outcome, err := service.Ingest(context.Background(), row)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if outcome != readings.OutcomeDuplicate {
		t.Errorf("outcome = %v", outcome)
	}
	if repo.Len() != 1 {
		t.Errorf("stored = %d", repo.Len())
	}
}

func TestIngestConflictingDuplicateKeepsStoredValue(t *testing.T) {
	repo := memory.NewReadingRepository()
	service := newTestIngest(t, repo, allowPoints{})

	first := CSVRow{MeteringPoint: "ZP001", Timestamp: "2024-01-01T12:00:00Z", Value: "5.25", Direction: "OUT"}
	if _, err := service.Ingest(context.Background(), first); err != nil {
		t.Fatalf("first ingest: %v", err)
	}

	second := first
	second.Value = "5.30"
	_, err := service.Ingest(context.Background(), second)
	if !errors.Is(err, readings.ErrConflict) {
		t.Fatalf("err = %v", err)
	}
	var conflict *readings.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("err type = %T", err)
	}
	if conflict.Existing.String() != "5.25" || conflict.Submitted.String() != "5.3" {
		t.Errorf("conflict = %+v", conflict)
	}

	stored, _ := repo.ListForPoints(context.Background(), []string{"ZP001"},
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	if len(stored) != 1 || stored[0].Value.String() != "5.25" {
		t.Errorf("stored = %+v", stored)
	}
}

func TestIngestSameKeyDifferentSource(t *testing.T) {
	repo := memory.NewReadingRepository()
	service := newTestIngest(t, repo, allowPoints{})

	csv := CSVRow{MeteringPoint: "ZP001", Timestamp: "2024-01-01T12:00:00Z", Value: "5.25", Direction: "OUT"}
	api := APISubmission{MeteringPoint: "ZP001", Timestamp: "2024-01-01T12:00:00Z", Value: decimal.RequireFromString("7.00"), Direction: "OUT"}

	if _, err := service.Ingest(context.Background(), csv); err != nil {
		t.Fatalf("csv ingest: %v", err)
	}
	if _, err := service.Ingest(context.Background(), api); err != nil {
		t.Fatalf("api ingest: %v", err)
	}
	if repo.Len() != 2 {
		t.Errorf("stored = %d", repo.Len())
	}
}

func TestIngestRejectsInvalidSubmissions(t *testing.T) {
	repo := memory.NewReadingRepository()
	service := newTestIngest(t, repo, allowPoints{known: map[string]bool{"ZP001": true}})

	cases := map[string]RawReadingInput{
		"unknown point": CSVRow{MeteringPoint: "ZP999", Timestamp: "2024-01-01T12:00:00Z", Value: "1", Direction: "OUT"},
		"empty point":   CSVRow{MeteringPoint: "  ", Timestamp: "2024-01-01T12:00:00Z", Value: "1", Direction: "OUT"},
		"bad timestamp": CSVRow{MeteringPoint: "ZP001", Timestamp: "01.01.2024", Value: "1", Direction: "OUT"},
		"bad value":     CSVRow{MeteringPoint: "ZP001", Timestamp: "2024-01-01T12:00:00Z", Value: "abc", Direction: "OUT"},
		"negative":      CSVRow{MeteringPoint: "ZP001", Timestamp: "2024-01-01T12:00:00Z", Value: "-1", Direction: "OUT"},
		"bad direction": CSVRow{MeteringPoint: "ZP001", Timestamp: "2024-01-01T12:00:00Z", Value: "1", Direction: "SIDEWAYS"},
	}
	for name, input := range cases {
		if _, err := service.Ingest(context.Background(), input); !errors.Is(err, readings.ErrInvalidReading) {
			t.Errorf("%s: err = %v", name, err)
		}
	}
	if repo.Len() != 0 {
		t.Errorf("stored = %d", repo.Len())
	}
}

func TestIngestVoicebotSource(t *testing.T) {
	repo := memory.NewReadingRepository()
	service := newTestIngest(t, repo, allowPoints{})

	_, err := service.Ingest(context.Background(), APISubmission{
		MeteringPoint: "ZP001",
		Timestamp:     "2024-01-01T12:00:00Z",
		Value:         decimal.RequireFromString("3.5"),
		Direction:     "IN",
		Source:        "voicebot",
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	stored, _ := repo.ListForPoints(context.Background(), []string{"ZP001"},
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	if len(stored) != 1 || stored[0].Source != readings.SourceVoicebot {
		t.Errorf("stored = %+v", stored)
	}
}
