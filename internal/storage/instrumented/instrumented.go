// Package instrumented wraps stores with query duration and error metrics.
package instrumented

import (
	"context"
	"errors"
	"time"

	"smc-lab/internal/domain"
	"smc-lab/internal/observability"
	"smc-lab/internal/storage"
)

func observe(database, operation string, start time.Time, err error) {
	// Not-found is a normal lookup outcome
	if errors.Is(err, storage.ErrNotFound) {
		err = nil
	}
	observability.RecordDBQuery(database, operation, time.Since(start).Seconds(), err)
}

// CandleStore records metrics for a storage.CandleStore.
type CandleStore struct {
	inner    storage.CandleStore
	database string
}

// NewCandleStore wraps inner; database labels the metrics.
func NewCandleStore(inner storage.CandleStore, database string) *CandleStore {
	return &CandleStore{inner: inner, database: database}
}

func (s *CandleStore) Upsert(ctx context.Context, series *domain.Series) error {
	start := time.Now()
	err := s.inner.Upsert(ctx, series)
	observe(s.database, "upsert_candles", start, err)
	return err
}

func (s *CandleStore) Get(ctx context.Context, symbol, timeframe string) (*domain.Series, error) {
	start := time.Now()
	series, err := s.inner.Get(ctx, symbol, timeframe)
	observe(s.database, "get_candles", start, err)
	return series, err
}

func (s *CandleStore) GetByTimeRange(ctx context.Context, symbol, timeframe string, from, to int64) ([]domain.Candle, error) {
	start := time.Now()
	candles, err := s.inner.GetByTimeRange(ctx, symbol, timeframe, from, to)
	observe(s.database, "get_candles_range", start, err)
	return candles, err
}

func (s *CandleStore) ListKeys(ctx context.Context) ([]string, error) {
	start := time.Now()
	keys, err := s.inner.ListKeys(ctx)
	observe(s.database, "list_candle_keys", start, err)
	return keys, err
}

// TradeStore records metrics for a storage.TradeStore.
type TradeStore struct {
	inner    storage.TradeStore
	database string
}

// NewTradeStore wraps inner; database labels the metrics.
func NewTradeStore(inner storage.TradeStore, database string) *TradeStore {
	return &TradeStore{inner: inner, database: database}
}

func (s *TradeStore) InsertBulk(ctx context.Context, runID string, trades []domain.Trade) error {
	start := time.Now()
	err := s.inner.InsertBulk(ctx, runID, trades)
	observe(s.database, "insert_trades", start, err)
	return err
}

func (s *TradeStore) GetByRun(ctx context.Context, runID string) ([]domain.Trade, error) {
	start := time.Now()
	trades, err := s.inner.GetByRun(ctx, runID)
	observe(s.database, "get_trades", start, err)
	return trades, err
}

func (s *TradeStore) GetByStrategyKey(ctx context.Context, runID, key string) ([]domain.Trade, error) {
	start := time.Now()
	trades, err := s.inner.GetByStrategyKey(ctx, runID, key)
	observe(s.database, "get_trades_by_key", start, err)
	return trades, err
}

// ResultStore records metrics for a storage.ResultStore.
type ResultStore struct {
	inner    storage.ResultStore
	database string
}

// NewResultStore wraps inner; database labels the metrics.
func NewResultStore(inner storage.ResultStore, database string) *ResultStore {
	return &ResultStore{inner: inner, database: database}
}

func (s *ResultStore) Insert(ctx context.Context, runID string, r *domain.StrategyResult) error {
	start := time.Now()
	err := s.inner.Insert(ctx, runID, r)
	observe(s.database, "insert_result", start, err)
	return err
}

func (s *ResultStore) Get(ctx context.Context, runID, key string) (*domain.StrategyResult, error) {
	start := time.Now()
	r, err := s.inner.Get(ctx, runID, key)
	observe(s.database, "get_result", start, err)
	return r, err
}

func (s *ResultStore) GetByRun(ctx context.Context, runID string) ([]*domain.StrategyResult, error) {
	start := time.Now()
	results, err := s.inner.GetByRun(ctx, runID)
	observe(s.database, "get_results", start, err)
	return results, err
}

// SelectionStore records metrics for a storage.SelectionStore.
type SelectionStore struct {
	inner    storage.SelectionStore
	database string
}

// NewSelectionStore wraps inner; database labels the metrics.
func NewSelectionStore(inner storage.SelectionStore, database string) *SelectionStore {
	return &SelectionStore{inner: inner, database: database}
}

func (s *SelectionStore) Insert(ctx context.Context, sel *domain.Selection) error {
	start := time.Now()
	err := s.inner.Insert(ctx, sel)
	observe(s.database, "insert_selection", start, err)
	return err
}

func (s *SelectionStore) Get(ctx context.Context, runID string) (*domain.Selection, error) {
	start := time.Now()
	sel, err := s.inner.Get(ctx, runID)
	observe(s.database, "get_selection", start, err)
	return sel, err
}

func (s *SelectionStore) Latest(ctx context.Context) (*domain.Selection, error) {
	start := time.Now()
	sel, err := s.inner.Latest(ctx)
	observe(s.database, "latest_selection", start, err)
	return sel, err
}

var (
	_ storage.CandleStore    = (*CandleStore)(nil)
	_ storage.TradeStore     = (*TradeStore)(nil)
	_ storage.ResultStore    = (*ResultStore)(nil)
	_ storage.SelectionStore = (*SelectionStore)(nil)
)
