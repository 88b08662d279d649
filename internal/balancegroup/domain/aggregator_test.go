package balancegroup

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	readings "coopmarket/internal/readings/domain"
	memory "coopmarket/internal/readings/infrastructure/memory"
)

func storeReading(t *testing.T, repo *memory.ReadingRepository, n int, point string, ts time.Time, value string, direction readings.Direction) {
	t.Helper()
	_, err := repo.Insert(context.Background(), readings.EnergyReading{
		ID:            "r-" + strconv.Itoa(n),
		MeteringPoint: point,
		Timestamp:     ts,
		Value:         decimal.RequireFromString(value),
		Direction:     direction,
		Source:        readings.SourceAPI,
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
}

func TestAggregateSumsPerDirection(t *testing.T) {
	repo := memory.NewReadingRepository()
	storeReading(t, repo, 1, "ZP001", day(2), "510.2", readings.DirectionOut)
	storeReading(t, repo, 2, "ZP001", day(3), "10.8", readings.DirectionIn)
	storeReading(t, repo, 3, "ZP002", day(2), "877.0", readings.DirectionOut)
	// Not a member of the group, must not count.
	storeReading(t, repo, 4, "ZP099", day(2), "99.9", readings.DirectionOut)

	group := &BalanceGroup{
		ID: "bg-1",
		Memberships: []Membership{
			{MeteringPoint: "ZP001", ValidFrom: day(1)},
			{MeteringPoint: "ZP002", ValidFrom: day(1)},
		},
	}

	agg, err := NewAggregator(repo).Aggregate(context.Background(), group, day(1), day(10))
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if agg.TotalOut.String() != "1387.2" {
		t.Errorf("total out = %s", agg.TotalOut)
	}
	if agg.TotalIn.String() != "10.8" {
		t.Errorf("total in = %s", agg.TotalIn)
	}
	if len(agg.ReadingIDs) != 3 {
		t.Errorf("reading ids = %v", agg.ReadingIDs)
	}
	if got := agg.MeteringPoints(); len(got) != 2 || got[0] != "ZP001" || got[1] != "ZP002" {
		t.Errorf("points = %v", got)
	}
	usage := agg.PerPoint["ZP001"].Usage()
	if usage.String() != "521" {
		t.Errorf("ZP001 usage = %s", usage)
	}
}

func TestAggregateClipsToMembershipWindow(t *testing.T) {
	repo := memory.NewReadingRepository()
	// Membership runs day 1 to day 5 exclusive; only the first reading counts.
	storeReading(t, repo, 1, "ZP001", day(2), "5.0", readings.DirectionOut)
	storeReading(t, repo, 2, "ZP001", day(6), "7.0", readings.DirectionOut)

	group := &BalanceGroup{
		ID: "bg-1",
		Memberships: []Membership{
			{MeteringPoint: "ZP001", ValidFrom: day(1), ValidTo: day(5)},
		},
	}

	agg, err := NewAggregator(repo).Aggregate(context.Background(), group, day(1), day(10))
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if agg.TotalOut.String() != "5" {
		t.Errorf("total out = %s", agg.TotalOut)
	}
	if len(agg.ReadingIDs) != 1 || agg.ReadingIDs[0] != "r-1" {
		t.Errorf("reading ids = %v", agg.ReadingIDs)
	}
}

func TestAggregateEmptyGroup(t *testing.T) {
	repo := memory.NewReadingRepository()
	group := &BalanceGroup{ID: "bg-1"}

	agg, err := NewAggregator(repo).Aggregate(context.Background(), group, day(1), day(10))
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if !agg.TotalIn.IsZero() || !agg.TotalOut.IsZero() || len(agg.PerPoint) != 0 {
		t.Errorf("aggregation = %+v", agg)
	}
}

func TestAggregateHalfOpenPeriod(t *testing.T) {
	repo := memory.NewReadingRepository()
	storeReading(t, repo, 1, "ZP001", day(1), "1.0", readings.DirectionOut)
	storeReading(t, repo, 2, "ZP001", day(10), "2.0", readings.DirectionOut)

	group := &BalanceGroup{
		ID:          "bg-1",
		Memberships: []Membership{{MeteringPoint: "ZP001", ValidFrom: day(1)}},
	}

	agg, err := NewAggregator(repo).Aggregate(context.Background(), group, day(1), day(10))
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	// The period end is exclusive, the day-10 reading belongs to the next one.
	if agg.TotalOut.String() != "1" {
		t.Errorf("total out = %s", agg.TotalOut)
	}
}
