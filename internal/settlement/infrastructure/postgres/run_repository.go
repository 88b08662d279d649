package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	settlement "coopmarket/internal/settlement/domain"
)

const (
	defaultRunsTable        = "settlement_runs"
	defaultRunLinesTable    = "settlement_run_lines"
	defaultRunReadingsTable = "settlement_run_readings"
)

// RunRepository persists settlement runs. The runs table carries a unique
// index on (group_id, period_from, period_to), so an identity collision
// surfaces as a constraint violation rather than an overwrite.
type RunRepository struct {
	db            *sql.DB
	runsTable     string
	linesTable    string
	readingsTable string
}

// NewRunRepository constructs a repository.
func NewRunRepository(db *sql.DB, opts ...Option) *RunRepository {
	repo := &RunRepository{
		db:            db,
		runsTable:     defaultRunsTable,
		linesTable:    defaultRunLinesTable,
		readingsTable: defaultRunReadingsTable,
	}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// Option configures the repository.
type Option func(*RunRepository)

// WithRunsTable overrides the runs table name.
func WithRunsTable(table string) Option {
	return func(repo *RunRepository) {
		if table != "" {
			repo.runsTable = table
		}
	}
}

// WithRunLinesTable overrides the lines table name.
func WithRunLinesTable(table string) Option {
	return func(repo *RunRepository) {
		if table != "" {
			repo.linesTable = table
		}
	}
}

// WithRunReadingsTable overrides the run-to-reading reference table name.
func WithRunReadingsTable(table string) Option {
	return func(repo *RunRepository) {
		if table != "" {
			repo.readingsTable = table
		}
	}
}

// FindByGroupAndPeriod returns the run with the exact window.
func (r *RunRepository) FindByGroupAndPeriod(ctx context.Context, groupID string, period settlement.Period) (*settlement.SettlementRun, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("run repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT id, group_id, period_from, period_to, price_ct_per_kwh,
	forecast_kwh, total_in_kwh, total_out_kwh, deviation_kwh, total_cost_eur,
	created_at
FROM %s
WHERE group_id = $1 AND period_from = $2 AND period_to = $3`, r.runsTable)
	row := r.db.QueryRowContext(ctx, query, groupID, period.From, period.To)
	return r.scanRun(ctx, row)
}

// FindOverlapping returns any run of the group intersecting the window.
func (r *RunRepository) FindOverlapping(ctx context.Context, groupID string, period settlement.Period) (*settlement.SettlementRun, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("run repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT id, group_id, period_from, period_to, price_ct_per_kwh,
	forecast_kwh, total_in_kwh, total_out_kwh, deviation_kwh, total_cost_eur,
	created_at
FROM %s
WHERE group_id = $1 AND period_from < $3 AND period_to > $2
ORDER BY period_from ASC
LIMIT 1`, r.runsTable)
	row := r.db.QueryRowContext(ctx, query, groupID, period.From, period.To)
	return r.scanRun(ctx, row)
}

// Save inserts the run and its lines in one transaction.
func (r *RunRepository) Save(ctx context.Context, run *settlement.SettlementRun) error {
	if r == nil || r.db == nil {
		return errors.New("run repo: nil db")
	}
	if run == nil {
		return settlement.ErrNilRun
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	insertRun := fmt.Sprintf(`
INSERT INTO %s (
	id, group_id, period_from, period_to, price_ct_per_kwh,
	forecast_kwh, total_in_kwh, total_out_kwh, deviation_kwh, total_cost_eur,
	created_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
)`, r.runsTable)
	_, err = tx.ExecContext(ctx, insertRun,
		string(run.ID()),
		run.GroupID(),
		run.Period().From,
		run.Period().To,
		run.PriceCtPerKWh().String(),
		run.ForecastKWh().String(),
		run.TotalInKWh().String(),
		run.TotalOutKWh().String(),
		run.DeviationKWh().String(),
		run.TotalCostEUR().String(),
		run.CreatedAt(),
	)
	if err != nil {
		_ = tx.Rollback()
		return err
	}

	insertLine := fmt.Sprintf(`
INSERT INTO %s (run_id, metering_point, usage_kwh, cost_eur)
VALUES ($1, $2, $3, $4)`, r.linesTable)
	for _, line := range run.Lines() {
		_, err = tx.ExecContext(ctx, insertLine,
			string(run.ID()),
			line.MeteringPoint,
			line.UsageKWh.String(),
			line.CostEUR.String(),
		)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	insertReading := fmt.Sprintf(`
INSERT INTO %s (run_id, reading_id)
VALUES ($1, $2)`, r.readingsTable)
	for _, readingID := range run.ReadingIDs() {
		_, err = tx.ExecContext(ctx, insertReading, string(run.ID()), readingID)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (r *RunRepository) scanRun(ctx context.Context, row *sql.Row) (*settlement.SettlementRun, error) {
	var (
		id, groupID                    string
		period                         settlement.Period
		price, forecast, totalIn       string
		totalOut, deviation, totalCost string
		createdAt                      sql.NullTime
	)
	err := row.Scan(
		&id, &groupID, &period.From, &period.To, &price,
		&forecast, &totalIn, &totalOut, &deviation, &totalCost,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, settlement.ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	period.From = period.From.UTC()
	period.To = period.To.UTC()

	lines, err := r.loadLines(ctx, id)
	if err != nil {
		return nil, err
	}
	readingIDs, err := r.loadReadingIDs(ctx, id)
	if err != nil {
		return nil, err
	}

	priceDec, err := decimal.NewFromString(price)
	if err != nil {
		return nil, err
	}
	forecastDec, err := decimal.NewFromString(forecast)
	if err != nil {
		return nil, err
	}
	totalInDec, err := decimal.NewFromString(totalIn)
	if err != nil {
		return nil, err
	}
	totalOutDec, err := decimal.NewFromString(totalOut)
	if err != nil {
		return nil, err
	}
	deviationDec, err := decimal.NewFromString(deviation)
	if err != nil {
		return nil, err
	}
	totalCostDec, err := decimal.NewFromString(totalCost)
	if err != nil {
		return nil, err
	}

	return settlement.RestoreSettlementRun(
		groupID, period, priceDec, forecastDec,
		totalInDec, totalOutDec, deviationDec, totalCostDec,
		lines, readingIDs, createdAt.Time,
	)
}

func (r *RunRepository) loadReadingIDs(ctx context.Context, runID string) ([]string, error) {
	query := fmt.Sprintf(`
SELECT reading_id
FROM %s
WHERE run_id = $1
ORDER BY reading_id ASC`, r.readingsTable)
	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *RunRepository) loadLines(ctx context.Context, runID string) ([]settlement.SettlementLine, error) {
	query := fmt.Sprintf(`
SELECT metering_point, usage_kwh, cost_eur
FROM %s
WHERE run_id = $1
ORDER BY metering_point ASC`, r.linesTable)
	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []settlement.SettlementLine
	for rows.Next() {
		var line settlement.SettlementLine
		var usage, cost string
		if err := rows.Scan(&line.MeteringPoint, &usage, &cost); err != nil {
			return nil, err
		}
		line.UsageKWh, err = decimal.NewFromString(usage)
		if err != nil {
			return nil, err
		}
		line.CostEUR, err = decimal.NewFromString(cost)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
