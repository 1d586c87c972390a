package memory

import (
	"context"
	"sort"
	"sync"

	"smc-lab/internal/domain"
	"smc-lab/internal/storage"
)

type storedTrade struct {
	runID string
	trade domain.Trade
}

// TradeStore is an in-memory implementation of storage.TradeStore.
type TradeStore struct {
	mu   sync.RWMutex
	data map[string]storedTrade // keyed by run_id|trade_id
}

// NewTradeStore creates a new in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		data: make(map[string]storedTrade),
	}
}

func tradeKey(runID, tradeID string) string {
	return runID + "|" + tradeID
}

// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
func (s *TradeStore) InsertBulk(_ context.Context, runID string, trades []domain.Trade) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(trades) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(trades))

	// First pass: check for duplicates (existing + intra-batch)
	for _, t := range trades {
		if t.TradeID == "" {
			return storage.ErrInvalidInput
		}
		k := tradeKey(runID, t.TradeID)
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	// Second pass: insert all
	for _, t := range trades {
		s.data[tradeKey(runID, t.TradeID)] = storedTrade{runID: runID, trade: t}
	}

	return nil
}

// GetByRun retrieves all trades of a run, ordered by entry time ASC.
func (s *TradeStore) GetByRun(_ context.Context, runID string) ([]domain.Trade, error) {
	return s.filter(func(st storedTrade) bool { return st.runID == runID }), nil
}

// GetByStrategyKey retrieves trades of one strategy key within a run.
func (s *TradeStore) GetByStrategyKey(_ context.Context, runID, key string) ([]domain.Trade, error) {
	return s.filter(func(st storedTrade) bool {
		return st.runID == runID && st.trade.StrategyKey == key
	}), nil
}

func (s *TradeStore) filter(keep func(storedTrade) bool) []domain.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Trade
	for _, st := range s.data {
		if keep(st) {
			result = append(result, st.trade)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].EntryTime != result[j].EntryTime {
			return result[i].EntryTime < result[j].EntryTime
		}
		return result[i].TradeID < result[j].TradeID
	})

	return result
}

var _ storage.TradeStore = (*TradeStore)(nil)
