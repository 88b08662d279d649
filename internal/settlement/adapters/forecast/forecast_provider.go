package forecast

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	settlement "coopmarket/internal/settlement/domain"
)

const defaultForecastsTable = "group_forecasts"

// PostgresProvider reads the forecast a group is settled against from the
// forecasts table. Rows fully inside the period sum up.
type PostgresProvider struct {
	db    *sql.DB
	table string
}

// NewPostgresProvider constructs a provider.
func NewPostgresProvider(db *sql.DB, opts ...ProviderOption) *PostgresProvider {
	provider := &PostgresProvider{db: db, table: defaultForecastsTable}
	for _, opt := range opts {
		opt(provider)
	}
	return provider
}

// ProviderOption configures the provider.
type ProviderOption func(*PostgresProvider)

// WithTable overrides the forecasts table name.
func WithTable(table string) ProviderOption {
	return func(provider *PostgresProvider) {
		if provider != nil && table != "" {
			provider.table = table
		}
	}
}

// ForecastKWh sums the forecast rows of the group inside the period. A group
// without forecast rows settles against zero.
func (p *PostgresProvider) ForecastKWh(ctx context.Context, groupID string, period settlement.Period) (decimal.Decimal, error) {
	if p == nil || p.db == nil {
		return decimal.Decimal{}, errors.New("forecast provider: nil db")
	}
	if groupID == "" {
		return decimal.Decimal{}, settlement.ErrEmptyGroupID
	}

	query := fmt.Sprintf(`
SELECT forecast_kwh
FROM %s
WHERE group_id = $1 AND period_from >= $2 AND period_to <= $3
ORDER BY period_from ASC`, p.table)

	rows, err := p.db.QueryContext(ctx, query, groupID, period.From, period.To)
	if err != nil {
		return decimal.Decimal{}, err
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return decimal.Decimal{}, err
		}
		value, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Decimal{}, err
		}
		total = total.Add(value)
	}
	if err := rows.Err(); err != nil {
		return decimal.Decimal{}, err
	}
	return total, nil
}

// StaticProvider returns fixed forecasts, keyed by group id. Groups without
// an entry settle against zero.
type StaticProvider struct {
	byGroup map[string]decimal.Decimal
}

// NewStaticProvider constructs a static provider.
func NewStaticProvider(byGroup map[string]decimal.Decimal) *StaticProvider {
	copied := make(map[string]decimal.Decimal, len(byGroup))
	for id, value := range byGroup {
		copied[id] = value
	}
	return &StaticProvider{byGroup: copied}
}

// ForecastKWh returns the configured forecast for the group.
func (p *StaticProvider) ForecastKWh(_ context.Context, groupID string, _ settlement.Period) (decimal.Decimal, error) {
	if p == nil {
		return decimal.Zero, nil
	}
	return p.byGroup[groupID], nil
}
