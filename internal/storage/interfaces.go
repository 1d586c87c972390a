package storage

import (
	"context"
	"errors"

	"smc-lab/internal/domain"
)

var (
	// ErrNotFound reports a missing series, result or selection.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey reports an insert over an existing trade, result or
	// selection. Only candle series are ever overwritten.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput reports an empty run ID, key or series.
	ErrInvalidInput = errors.New("invalid input")
)

// CandleStore provides access to candle series keyed by symbol and timeframe.
type CandleStore interface {
	// Upsert stores candles of a series. Existing timestamps are replaced.
	Upsert(ctx context.Context, series *domain.Series) error

	// Get retrieves a full series ordered by timestamp ASC. Returns ErrNotFound if absent.
	Get(ctx context.Context, symbol, timeframe string) (*domain.Series, error)

	// GetByTimeRange retrieves candles within [start, end] (inclusive), ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, symbol, timeframe string, start, end int64) ([]domain.Candle, error)

	// ListKeys returns the stored series keys (SYMBOL_TIMEFRAME), sorted.
	ListKeys(ctx context.Context) ([]string, error)
}

// TradeStore provides access to simulated trades.
type TradeStore interface {
	// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate trade_id.
	InsertBulk(ctx context.Context, runID string, trades []domain.Trade) error

	// GetByRun retrieves all trades of a run, ordered by entry time ASC.
	GetByRun(ctx context.Context, runID string) ([]domain.Trade, error)

	// GetByStrategyKey retrieves trades of one strategy key within a run.
	GetByStrategyKey(ctx context.Context, runID, key string) ([]domain.Trade, error)
}

// ResultStore provides access to per-strategy result records.
type ResultStore interface {
	// Insert adds a result. Returns ErrDuplicateKey if (run_id, key) exists.
	Insert(ctx context.Context, runID string, r *domain.StrategyResult) error

	// Get retrieves one result. Returns ErrNotFound if not exists.
	Get(ctx context.Context, runID, key string) (*domain.StrategyResult, error)

	// GetByRun retrieves all results of a run, ordered by key.
	GetByRun(ctx context.Context, runID string) ([]*domain.StrategyResult, error)
}

// SelectionStore provides access to optimizer selections.
type SelectionStore interface {
	// Insert adds a selection. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, s *domain.Selection) error

	// Get retrieves a selection by run ID. Returns ErrNotFound if not exists.
	Get(ctx context.Context, runID string) (*domain.Selection, error)

	// Latest retrieves the most recently created selection. Returns ErrNotFound if none.
	Latest(ctx context.Context) (*domain.Selection, error)
}
