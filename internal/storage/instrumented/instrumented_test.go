package instrumented

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smc-lab/internal/domain"
	"smc-lab/internal/observability"
	"smc-lab/internal/storage"
	"smc-lab/internal/storage/memory"
)

func TestCandleStore_RecordsErrors(t *testing.T) {
	ctx := context.Background()
	store := NewCandleStore(memory.NewCandleStore(), "test_candles")
	errs := observability.DefaultMetrics.DBQueryErrors

	before := testutil.ToFloat64(errs.WithLabelValues("test_candles", "upsert_candles"))
	assert.ErrorIs(t, store.Upsert(ctx, &domain.Series{}), storage.ErrInvalidInput)
	assert.Equal(t, before+1, testutil.ToFloat64(errs.WithLabelValues("test_candles", "upsert_candles")))

	// Not-found is not counted as an error
	before = testutil.ToFloat64(errs.WithLabelValues("test_candles", "get_candles"))
	_, err := store.Get(ctx, "BTCUSDT", "1h")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Equal(t, before, testutil.ToFloat64(errs.WithLabelValues("test_candles", "get_candles")))

	series := &domain.Series{Symbol: "BTCUSDT", Timeframe: "1h", Candles: []domain.Candle{{Timestamp: 0, Close: 1}}}
	require.NoError(t, store.Upsert(ctx, series))
	got, err := store.Get(ctx, "BTCUSDT", "1h")
	require.NoError(t, err)
	assert.Equal(t, series.Candles, got.Candles)

	keys, err := store.ListKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"BTCUSDT_1h"}, keys)
}

func TestStores_PassThrough(t *testing.T) {
	ctx := context.Background()

	trades := NewTradeStore(memory.NewTradeStore(), "test")
	require.NoError(t, trades.InsertBulk(ctx, "run-1", []domain.Trade{{TradeID: "a", StrategyKey: "BTCUSDT_1h", EntryTime: 1}}))
	byKey, err := trades.GetByStrategyKey(ctx, "run-1", "BTCUSDT_1h")
	require.NoError(t, err)
	assert.Len(t, byKey, 1)

	results := NewResultStore(memory.NewResultStore(), "test")
	require.NoError(t, results.Insert(ctx, "run-1", &domain.StrategyResult{Key: "BTCUSDT_1h", Status: domain.StatusOK}))
	r, err := results.Get(ctx, "run-1", "BTCUSDT_1h")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOK, r.Status)

	selections := NewSelectionStore(memory.NewSelectionStore(), "test")
	require.NoError(t, selections.Insert(ctx, &domain.Selection{RunID: "sel-1", CreatedAt: 5}))
	latest, err := selections.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sel-1", latest.RunID)
}
