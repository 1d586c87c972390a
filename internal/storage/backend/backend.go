// Package backend opens the configured store implementations.
package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"smc-lab/internal/config"
	"smc-lab/internal/domain"
	"smc-lab/internal/storage"
	chstore "smc-lab/internal/storage/clickhouse"
	"smc-lab/internal/storage/csvfile"
	"smc-lab/internal/storage/instrumented"
	"smc-lab/internal/storage/memory"
	pgstore "smc-lab/internal/storage/postgres"
)

// Backend holds one store per concern.
//
// Candles come from ClickHouse when a DSN is configured, otherwise from the
// CSV cache directory. Trades, results and selections go to PostgreSQL when
// a DSN is configured, otherwise to memory. useMemory forces both fallbacks.
type Backend struct {
	Candles    storage.CandleStore
	Trades     storage.TradeStore
	Results    storage.ResultStore
	Selections storage.SelectionStore

	closers []func()
}

// Open connects to the stores selected by cfg and applies migrations.
func Open(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*Backend, error) {
	b := &Backend{}

	if !cfg.Storage.UseMemory && cfg.Storage.ClickHouseDSN != "" {
		conn, err := chstore.Open(ctx, cfg.Storage.ClickHouseDSN)
		if err != nil {
			return nil, fmt.Errorf("open clickhouse: %w", err)
		}
		b.closers = append(b.closers, func() { conn.Close() })
		b.Candles = instrumented.NewCandleStore(chstore.NewCandleStore(conn), "clickhouse")
		log.Info("candles: clickhouse")
	} else {
		cache, err := csvfile.NewCandleStore(cfg.Data.CacheDir)
		if err != nil {
			return nil, err
		}
		b.Candles = instrumented.NewCandleStore(cache, "csvfile")
		log.WithField("dir", cfg.Data.CacheDir).Info("candles: csv cache")
	}

	if !cfg.Storage.UseMemory && cfg.Storage.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, pool.Close)
		if err := pool.Migrate(ctx); err != nil {
			b.Close()
			return nil, err
		}
		b.Trades = instrumented.NewTradeStore(pgstore.NewTradeStore(pool), "postgres")
		b.Results = instrumented.NewResultStore(pgstore.NewResultStore(pool), "postgres")
		b.Selections = instrumented.NewSelectionStore(pgstore.NewSelectionStore(pool), "postgres")
		log.Info("results: postgres")
	} else {
		b.Trades = memory.NewTradeStore()
		b.Results = memory.NewResultStore()
		b.Selections = memory.NewSelectionStore()
		log.Info("results: memory")
	}

	return b, nil
}

// Close releases database connections in reverse order of opening.
func (b *Backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}

// LoadSeries copies every series of src into the backend candle store and
// returns the imported keys.
func (b *Backend) LoadSeries(ctx context.Context, src storage.CandleStore) ([]string, error) {
	keys, err := src.ListKeys(ctx)
	if err != nil {
		return nil, err
	}

	var loaded []string
	for _, key := range keys {
		symbol, timeframe, ok := domain.ParseSeriesKey(key)
		if !ok {
			continue
		}
		series, err := src.Get(ctx, symbol, timeframe)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return loaded, fmt.Errorf("read %s: %w", key, err)
		}
		if err := b.Candles.Upsert(ctx, series); err != nil {
			return loaded, fmt.Errorf("write %s: %w", key, err)
		}
		loaded = append(loaded, key)
	}
	return loaded, nil
}
