package metrics

import (
	"context"
	"errors"
	"sort"

	"smc-lab/internal/domain"
	"smc-lab/internal/storage"
)

// ErrNoTrades is returned when no trades are available for aggregation.
var ErrNoTrades = errors.New("no trades available for aggregation")

// Aggregator computes performance statistics from stored trades.
type Aggregator struct {
	tradeStore storage.TradeStore
}

// NewAggregator creates a new metrics aggregator.
func NewAggregator(tradeStore storage.TradeStore) *Aggregator {
	return &Aggregator{tradeStore: tradeStore}
}

// ComputeForKey computes statistics for one strategy key of a run.
// Returns ErrNoTrades if the key has no trades.
func (a *Aggregator) ComputeForKey(ctx context.Context, runID, key string) (*domain.PerformanceStats, error) {
	trades, err := a.tradeStore.GetByStrategyKey(ctx, runID, key)
	if err != nil {
		return nil, err
	}
	if len(trades) == 0 {
		return nil, ErrNoTrades
	}
	return Compute(trades, nil), nil
}

// KeyStats pairs a strategy key with its statistics.
type KeyStats struct {
	Key   string
	Stats *domain.PerformanceStats
}

// ComputeForRun computes statistics for every strategy key of a run,
// sorted by key for deterministic output.
func (a *Aggregator) ComputeForRun(ctx context.Context, runID string) ([]KeyStats, error) {
	trades, err := a.tradeStore.GetByRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if len(trades) == 0 {
		return nil, ErrNoTrades
	}

	byKey := make(map[string][]domain.Trade)
	for _, t := range trades {
		byKey[t.StrategyKey] = append(byKey[t.StrategyKey], t)
	}

	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]KeyStats, len(keys))
	for i, k := range keys {
		out[i] = KeyStats{Key: k, Stats: Compute(byKey[k], nil)}
	}
	return out, nil
}
