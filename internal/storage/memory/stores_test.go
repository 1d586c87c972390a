package memory

import (
	"context"
	"errors"
	"testing"

	"smc-lab/internal/domain"
	"smc-lab/internal/storage"
)

func TestCandleStore_UpsertAndGet(t *testing.T) {
	store := NewCandleStore()
	ctx := context.Background()

	series := &domain.Series{
		Symbol:    "BTCUSDT",
		Timeframe: "1h",
		Candles: []domain.Candle{
			{Timestamp: 7200000, Close: 3},
			{Timestamp: 0, Close: 1},
			{Timestamp: 3600000, Close: 2},
		},
	}
	if err := store.Upsert(ctx, series); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	// Replace one bar
	update := &domain.Series{Symbol: "BTCUSDT", Timeframe: "1h", Candles: []domain.Candle{{Timestamp: 3600000, Close: 20}}}
	if err := store.Upsert(ctx, update); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := store.Get(ctx, "btcusdt", "1h")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Len() != 3 {
		t.Fatalf("expected 3 candles, got %d", got.Len())
	}
	if err := got.Validate(); err != nil {
		t.Errorf("expected sorted series: %v", err)
	}
	if got.Candles[1].Close != 20 {
		t.Errorf("expected replaced close 20, got %f", got.Candles[1].Close)
	}

	rng, err := store.GetByTimeRange(ctx, "BTCUSDT", "1h", 3600000, 7200000)
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}
	if len(rng) != 2 {
		t.Errorf("expected 2 candles in range, got %d", len(rng))
	}

	keys, _ := store.ListKeys(ctx)
	if len(keys) != 1 || keys[0] != "BTCUSDT_1h" {
		t.Errorf("unexpected keys %v", keys)
	}
}

func TestCandleStore_NotFound(t *testing.T) {
	store := NewCandleStore()
	_, err := store.Get(context.Background(), "ETHUSDT", "4h")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTradeStore_InsertBulk(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	trades := []domain.Trade{
		{TradeID: "b", StrategyKey: "ETHUSDT_1h", EntryTime: 2000},
		{TradeID: "a", StrategyKey: "BTCUSDT_1h", EntryTime: 1000},
	}
	if err := store.InsertBulk(ctx, "run1", trades); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, _ := store.GetByRun(ctx, "run1")
	if len(got) != 2 || got[0].TradeID != "a" {
		t.Fatalf("expected trades ordered by entry time, got %+v", got)
	}

	btc, _ := store.GetByStrategyKey(ctx, "run1", "BTCUSDT_1h")
	if len(btc) != 1 {
		t.Errorf("expected 1 BTC trade, got %d", len(btc))
	}

	// Same trade ids under another run are distinct
	if err := store.InsertBulk(ctx, "run2", trades); err != nil {
		t.Errorf("insert into other run failed: %v", err)
	}

	// Duplicate batch fails as a whole
	err := store.InsertBulk(ctx, "run1", []domain.Trade{{TradeID: "c"}, {TradeID: "a"}})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
	got, _ = store.GetByRun(ctx, "run1")
	if len(got) != 2 {
		t.Errorf("failed batch must not insert, got %d trades", len(got))
	}
}

func TestResultStore(t *testing.T) {
	store := NewResultStore()
	ctx := context.Background()

	res := &domain.StrategyResult{Key: "BTCUSDT_1h", Status: domain.StatusOK, EndCapital: 1100, Trades: []domain.Trade{{TradeID: "x"}}}
	if err := store.Insert(ctx, "run1", res); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Insert(ctx, "run1", res); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}

	got, err := store.Get(ctx, "run1", "BTCUSDT_1h")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.EndCapital != 1100 || got.Trades != nil {
		t.Errorf("unexpected stored result %+v", got)
	}

	if _, err := store.Get(ctx, "run2", "BTCUSDT_1h"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSelectionStore_Latest(t *testing.T) {
	store := NewSelectionStore()
	ctx := context.Background()

	if _, err := store.Latest(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty store, got %v", err)
	}

	_ = store.Insert(ctx, &domain.Selection{RunID: "r1", CreatedAt: 100, Keys: []string{"BTCUSDT_1h"}})
	_ = store.Insert(ctx, &domain.Selection{RunID: "r2", CreatedAt: 200, Keys: []string{"ETHUSDT_1h"}})
	_ = store.Insert(ctx, &domain.Selection{RunID: "r0", CreatedAt: 50})

	latest, err := store.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if latest.RunID != "r2" {
		t.Errorf("expected r2, got %s", latest.RunID)
	}

	if err := store.Insert(ctx, &domain.Selection{RunID: "r1"}); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}
