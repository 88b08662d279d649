package application

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	balancegroup "coopmarket/internal/balancegroup/domain"
	"coopmarket/internal/observability/metrics"
	settlement "coopmarket/internal/settlement/domain"
)

// ForecastProvider supplies the forecast a group is settled against. A nil
// provider settles against a zero forecast.
type ForecastProvider interface {
	ForecastKWh(ctx context.Context, groupID string, period settlement.Period) (decimal.Decimal, error)
}

// EventPublisher emits integration events.
type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Engine runs balance group settlements. Settling the exact same period again
// returns the stored run unchanged; a different but overlapping period is
// rejected.
type Engine struct {
	groups     balancegroup.Repository
	aggregator *balancegroup.Aggregator
	runs       settlement.Repository
	forecasts  ForecastProvider
	publisher  EventPublisher

	defaultPriceCt decimal.Decimal
	clock          Clock
	logger         *log.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewEngine constructs the engine.
func NewEngine(
	groups balancegroup.Repository,
	aggregator *balancegroup.Aggregator,
	runs settlement.Repository,
	forecasts ForecastProvider,
	publisher EventPublisher,
	defaultPriceCt decimal.Decimal,
	clock Clock,
	logger *log.Logger,
) (*Engine, error) {
	if groups == nil {
		return nil, errors.New("settlement engine: nil group repository")
	}
	if aggregator == nil {
		return nil, errors.New("settlement engine: nil aggregator")
	}
	if runs == nil {
		return nil, errors.New("settlement engine: nil run repository")
	}
	if defaultPriceCt.IsNegative() {
		return nil, settlement.ErrNegativePrice
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		groups:         groups,
		aggregator:     aggregator,
		runs:           runs,
		forecasts:      forecasts,
		publisher:      publisher,
		defaultPriceCt: defaultPriceCt,
		clock:          clock,
		logger:         logger,
		locks:          make(map[string]*sync.Mutex),
	}, nil
}

// SettleCommand carries the caller-stated inputs of one settlement. Forecast
// and price left unset fall back to the forecast provider and the group's
// internal price, so a run's inputs are always decided at the call site.
type SettleCommand struct {
	GroupID string
	From    time.Time
	To      time.Time

	ForecastKWh   decimal.NullDecimal
	PriceCtPerKWh decimal.NullDecimal
}

// Settle settles one balance group over [cmd.From, cmd.To).
func (e *Engine) Settle(ctx context.Context, cmd SettleCommand) (*settlement.SettlementRun, error) {
	started := e.clock.Now()
	run, err := e.settle(ctx, cmd)
	elapsed := e.clock.Now().Sub(started)

	switch {
	case err == nil:
		metrics.ObserveSettlement("success", elapsed)
	case errors.Is(err, settlement.ErrAlreadySettled):
		metrics.ObserveSettlement("already_settled", elapsed)
	default:
		metrics.ObserveSettlement("error", elapsed)
	}
	return run, err
}

func (e *Engine) settle(ctx context.Context, cmd SettleCommand) (*settlement.SettlementRun, error) {
	groupID := cmd.GroupID
	if groupID == "" {
		return nil, settlement.ErrEmptyGroupID
	}
	if cmd.PriceCtPerKWh.Valid && cmd.PriceCtPerKWh.Decimal.IsNegative() {
		return nil, settlement.ErrNegativePrice
	}
	period, err := settlement.NewPeriod(cmd.From, cmd.To)
	if err != nil {
		return nil, err
	}

	// The group lock spans the lookup and the write so two concurrent
	// requests cannot both pass the overlap check.
	lock := e.groupLock(groupID)
	lock.Lock()
	defer lock.Unlock()

	existing, err := e.runs.FindByGroupAndPeriod(ctx, groupID, period)
	if err != nil && !errors.Is(err, settlement.ErrRunNotFound) {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	overlapping, err := e.runs.FindOverlapping(ctx, groupID, period)
	if err != nil && !errors.Is(err, settlement.ErrRunNotFound) {
		return nil, err
	}
	if overlapping != nil {
		return nil, &settlement.AlreadySettledError{GroupID: groupID, Existing: overlapping}
	}

	group, err := e.groups.FindByID(ctx, groupID)
	if err != nil {
		return nil, err
	}

	agg, err := e.aggregator.Aggregate(ctx, group, period.From, period.To)
	if err != nil {
		return nil, err
	}

	forecast := decimal.Zero
	switch {
	case cmd.ForecastKWh.Valid:
		forecast = cmd.ForecastKWh.Decimal
	case e.forecasts != nil:
		forecast, err = e.forecasts.ForecastKWh(ctx, groupID, period)
		if err != nil {
			return nil, err
		}
	}

	price := e.defaultPriceCt
	switch {
	case cmd.PriceCtPerKWh.Valid:
		price = cmd.PriceCtPerKWh.Decimal
	case !group.PriceCtPerKWh.IsZero():
		price = group.PriceCtPerKWh
	}

	usageByPoint := make(map[string]decimal.Decimal, len(agg.PerPoint))
	for point, totals := range agg.PerPoint {
		usageByPoint[point] = totals.Usage()
	}

	run, err := settlement.NewSettlementRun(
		groupID, period, price, forecast,
		agg.TotalIn, agg.TotalOut, usageByPoint,
		agg.ReadingIDs,
		e.clock.Now(),
	)
	if err != nil {
		return nil, err
	}

	if err := e.runs.Save(ctx, run); err != nil {
		return nil, err
	}
	run.MarkPersisted()

	e.publishCompleted(ctx, run)
	return run, nil
}

func (e *Engine) publishCompleted(ctx context.Context, run *settlement.SettlementRun) {
	if e.publisher == nil {
		return
	}
	err := e.publisher.Publish(ctx, SettlementCompleted{
		GroupID:      run.GroupID(),
		PeriodFrom:   run.Period().From,
		PeriodTo:     run.Period().To,
		TotalInKWh:   run.TotalInKWh(),
		TotalOutKWh:  run.TotalOutKWh(),
		DeviationKWh: run.DeviationKWh(),
		TotalCostEUR: run.TotalCostEUR(),
		OccurredAt:   e.clock.Now().UTC(),
	})
	if err != nil {
		e.logger.Printf("settlement: publish completed event: %v", err)
	}
}

func (e *Engine) groupLock(groupID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.locks[groupID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[groupID] = lock
	}
	return lock
}
