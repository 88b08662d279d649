package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	readings "coopmarket/internal/readings/domain"
)

const defaultReadingsTable = "energy_readings"

// ReadingRepository persists energy readings. The table carries a unique
// index on (metering_point, ts, source) so duplicate detection happens in one
// round trip.
type ReadingRepository struct {
	db    *sql.DB
	table string
}

// NewReadingRepository constructs a repository.
func NewReadingRepository(db *sql.DB, opts ...Option) *ReadingRepository {
	repo := &ReadingRepository{db: db, table: defaultReadingsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// Option configures the repository.
type Option func(*ReadingRepository)

// WithReadingsTable overrides the table name.
func WithReadingsTable(table string) Option {
	return func(repo *ReadingRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// Insert stores a reading or reports a duplicate.
func (r *ReadingRepository) Insert(ctx context.Context, reading readings.EnergyReading) (readings.InsertOutcome, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("reading repo: nil db")
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	id, metering_point, ts, value, direction, source, submission_id, received_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8
)
ON CONFLICT (metering_point, ts, source)
DO NOTHING`, r.table)

	result, err := r.db.ExecContext(ctx, query,
		reading.ID,
		reading.MeteringPoint,
		reading.Timestamp.UTC(),
		reading.Value.String(),
		string(reading.Direction),
		string(reading.Source),
		reading.SubmissionID,
		reading.ReceivedAt.UTC(),
	)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if affected > 0 {
		return readings.OutcomeStored, nil
	}

	existingQuery := fmt.Sprintf(`
SELECT value, direction
FROM %s
WHERE metering_point = $1 AND ts = $2 AND source = $3`, r.table)

	var existingValue string
	var existingDirection string
	err = r.db.QueryRowContext(ctx, existingQuery,
		reading.MeteringPoint, reading.Timestamp.UTC(), string(reading.Source),
	).Scan(&existingValue, &existingDirection)
	if err != nil {
		return 0, err
	}
	stored, err := decimal.NewFromString(existingValue)
	if err != nil {
		return 0, err
	}
	if stored.Equal(reading.Value) && existingDirection == string(reading.Direction) {
		return readings.OutcomeDuplicate, nil
	}
	return 0, &readings.ConflictError{
		Key:       reading.Key(),
		Existing:  stored,
		Submitted: reading.Value,
	}
}

// ListForPoints returns readings for the given points in [from, to).
func (r *ReadingRepository) ListForPoints(ctx context.Context, points []string, from, to time.Time) ([]readings.EnergyReading, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("reading repo: nil db")
	}
	if len(points) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(points))
	args := make([]any, 0, len(points)+2)
	for i, point := range points {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args = append(args, point)
	}
	args = append(args, from.UTC(), to.UTC())

	query := fmt.Sprintf(`
SELECT id, metering_point, ts, value, direction, source, submission_id, received_at
FROM %s
WHERE metering_point IN (%s)
	AND ts >= $%d
	AND ts < $%d
ORDER BY ts ASC, metering_point ASC`,
		r.table, strings.Join(placeholders, ", "), len(points)+1, len(points)+2)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []readings.EnergyReading
	for rows.Next() {
		var reading readings.EnergyReading
		var value, direction, source string
		if err := rows.Scan(
			&reading.ID,
			&reading.MeteringPoint,
			&reading.Timestamp,
			&value,
			&direction,
			&source,
			&reading.SubmissionID,
			&reading.ReceivedAt,
		); err != nil {
			return nil, err
		}
		reading.Value, err = decimal.NewFromString(value)
		if err != nil {
			return nil, err
		}
		reading.Direction = readings.Direction(direction)
		reading.Source = readings.Source(source)
		reading.Timestamp = reading.Timestamp.UTC()
		reading.ReceivedAt = reading.ReceivedAt.UTC()
		result = append(result, reading)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
