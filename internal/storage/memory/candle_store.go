package memory

import (
	"context"
	"sort"
	"sync"

	"smc-lab/internal/domain"
	"smc-lab/internal/storage"
)

// CandleStore is an in-memory implementation of storage.CandleStore.
type CandleStore struct {
	mu   sync.RWMutex
	data map[string]map[int64]domain.Candle // keyed by SYMBOL_TIMEFRAME, then timestamp
	meta map[string][2]string               // key -> symbol, timeframe
}

// NewCandleStore creates a new in-memory candle store.
func NewCandleStore() *CandleStore {
	return &CandleStore{
		data: make(map[string]map[int64]domain.Candle),
		meta: make(map[string][2]string),
	}
}

// Upsert stores candles of a series. Existing timestamps are replaced.
func (s *CandleStore) Upsert(_ context.Context, series *domain.Series) error {
	if series == nil || series.Symbol == "" || series.Timeframe == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := series.Key()
	bars, ok := s.data[key]
	if !ok {
		bars = make(map[int64]domain.Candle, len(series.Candles))
		s.data[key] = bars
		s.meta[key] = [2]string{series.Symbol, series.Timeframe}
	}
	for _, c := range series.Candles {
		bars[c.Timestamp] = c
	}
	return nil
}

// Get retrieves a full series ordered by timestamp ASC. Returns ErrNotFound if absent.
func (s *CandleStore) Get(_ context.Context, symbol, timeframe string) (*domain.Series, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := domain.SeriesKey(symbol, timeframe)
	bars, ok := s.data[key]
	if !ok || len(bars) == 0 {
		return nil, storage.ErrNotFound
	}

	m := s.meta[key]
	return &domain.Series{
		Symbol:    m[0],
		Timeframe: m[1],
		Candles:   sortedCandles(bars, func(int64) bool { return true }),
	}, nil
}

// GetByTimeRange retrieves candles within [start, end] (inclusive), ordered by timestamp ASC.
func (s *CandleStore) GetByTimeRange(_ context.Context, symbol, timeframe string, start, end int64) ([]domain.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bars := s.data[domain.SeriesKey(symbol, timeframe)]
	return sortedCandles(bars, func(ts int64) bool { return ts >= start && ts <= end }), nil
}

// ListKeys returns the stored series keys, sorted.
func (s *CandleStore) ListKeys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func sortedCandles(bars map[int64]domain.Candle, keep func(int64) bool) []domain.Candle {
	var result []domain.Candle
	for ts, c := range bars {
		if keep(ts) {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp < result[j].Timestamp
	})
	return result
}

var _ storage.CandleStore = (*CandleStore)(nil)
