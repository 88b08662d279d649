package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	readings "coopmarket/internal/readings/domain"
)

// ReadingRepository is an in-memory reading store for tests and local runs.
type ReadingRepository struct {
	mu     sync.RWMutex
	byKey  map[readings.ReadingKey]readings.EnergyReading
	stored []readings.EnergyReading
}

// NewReadingRepository constructs an empty repository.
func NewReadingRepository() *ReadingRepository {
	return &ReadingRepository{byKey: make(map[readings.ReadingKey]readings.EnergyReading)}
}

// Insert stores a reading or reports a duplicate. An identical duplicate is a
// no-op; a duplicate with a different value or direction is a conflict and the
// stored reading wins.
func (r *ReadingRepository) Insert(_ context.Context, reading readings.EnergyReading) (readings.InsertOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := reading.Key()
	if existing, ok := r.byKey[key]; ok {
		if existing.Value.Equal(reading.Value) && existing.Direction == reading.Direction {
			return readings.OutcomeDuplicate, nil
		}
		return 0, &readings.ConflictError{
			Key:       key,
			Existing:  existing.Value,
			Submitted: reading.Value,
		}
	}

	r.byKey[key] = reading
	r.stored = append(r.stored, reading)
	return readings.OutcomeStored, nil
}

// ListForPoints returns snapshot copies of readings for the given points in
// [from, to), ordered by timestamp.
func (r *ReadingRepository) ListForPoints(_ context.Context, points []string, from, to time.Time) ([]readings.EnergyReading, error) {
	wanted := make(map[string]struct{}, len(points))
	for _, p := range points {
		wanted[p] = struct{}{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []readings.EnergyReading
	for _, reading := range r.stored {
		if _, ok := wanted[reading.MeteringPoint]; !ok {
			continue
		}
		ts := reading.Timestamp
		if ts.Before(from) || !ts.Before(to) {
			continue
		}
		result = append(result, reading)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Timestamp.Equal(result[j].Timestamp) {
			return result[i].Timestamp.Before(result[j].Timestamp)
		}
		return result[i].MeteringPoint < result[j].MeteringPoint
	})
	return result, nil
}

// Len returns the number of stored readings.
func (r *ReadingRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.stored)
}
