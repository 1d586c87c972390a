// Package csvfile stores candle series as one CSV file per SYMBOL_TIMEFRAME
// key under a cache directory.
package csvfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gocarina/gocsv"

	"smc-lab/internal/domain"
	"smc-lab/internal/storage"
)

const fileExt = ".csv"

// candleRow is the on-disk layout of one candle.
type candleRow struct {
	Timestamp int64   `csv:"timestamp"`
	Open      float64 `csv:"open"`
	High      float64 `csv:"high"`
	Low       float64 `csv:"low"`
	Close     float64 `csv:"close"`
	Volume    float64 `csv:"volume"`
}

// CandleStore implements storage.CandleStore on a directory of CSV files.
type CandleStore struct {
	dir string
	mu  sync.RWMutex
}

// NewCandleStore creates the cache directory if needed.
func NewCandleStore(dir string) (*CandleStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: empty cache dir", storage.ErrInvalidInput)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &CandleStore{dir: dir}, nil
}

// Compile-time interface check.
var _ storage.CandleStore = (*CandleStore)(nil)

// Upsert merges candles into the series file. Existing timestamps are replaced.
func (s *CandleStore) Upsert(_ context.Context, series *domain.Series) error {
	if series == nil || series.Symbol == "" || series.Timeframe == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(series.Symbol, series.Timeframe)
	existing, err := readCandles(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	byTs := make(map[int64]domain.Candle, len(existing)+len(series.Candles))
	for _, c := range existing {
		byTs[c.Timestamp] = c
	}
	for _, c := range series.Candles {
		byTs[c.Timestamp] = c
	}

	merged := make([]domain.Candle, 0, len(byTs))
	for _, c := range byTs {
		merged = append(merged, c)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})

	return writeCandles(path, merged)
}

// Get retrieves a full series ordered by timestamp ASC. Returns ErrNotFound if absent.
func (s *CandleStore) Get(_ context.Context, symbol, timeframe string) (*domain.Series, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	candles, err := readCandles(s.path(symbol, timeframe))
	if errors.Is(err, os.ErrNotExist) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, storage.ErrNotFound
	}

	return &domain.Series{
		Symbol:    strings.ToUpper(symbol),
		Timeframe: timeframe,
		Candles:   candles,
	}, nil
}

// GetByTimeRange retrieves candles within [start, end] (inclusive), ordered by timestamp ASC.
func (s *CandleStore) GetByTimeRange(_ context.Context, symbol, timeframe string, start, end int64) ([]domain.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	candles, err := readCandles(s.path(symbol, timeframe))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	lo := sort.Search(len(candles), func(i int) bool { return candles[i].Timestamp >= start })
	hi := sort.Search(len(candles), func(i int) bool { return candles[i].Timestamp > end })
	if lo >= hi {
		return nil, nil
	}
	return candles[lo:hi], nil
}

// ListKeys returns the keys of all cached series, sorted.
func (s *CandleStore) ListKeys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read cache dir: %w", err)
	}

	var keys []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != fileExt {
			continue
		}
		keys = append(keys, strings.TrimSuffix(e.Name(), fileExt))
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *CandleStore) path(symbol, timeframe string) string {
	return filepath.Join(s.dir, domain.SeriesKey(symbol, timeframe)+fileExt)
}

func readCandles(path string) ([]domain.Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []candleRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}

	candles := make([]domain.Candle, len(rows))
	for i, r := range rows {
		candles[i] = domain.Candle{
			Timestamp: r.Timestamp,
			Open:      r.Open,
			High:      r.High,
			Low:       r.Low,
			Close:     r.Close,
			Volume:    r.Volume,
		}
	}
	return candles, nil
}

// writeCandles replaces the file through a temp file and rename.
func writeCandles(path string, candles []domain.Candle) error {
	rows := make([]candleRow, len(candles))
	for i, c := range candles {
		rows[i] = candleRow{
			Timestamp: c.Timestamp,
			Open:      c.Open,
			High:      c.High,
			Low:       c.Low,
			Close:     c.Close,
			Volume:    c.Volume,
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := gocsv.MarshalFile(&rows, tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
