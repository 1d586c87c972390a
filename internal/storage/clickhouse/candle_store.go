package clickhouse

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"smc-lab/internal/domain"
	"smc-lab/internal/storage"
)

// CandleStore implements storage.CandleStore using ClickHouse.
// Rows live in a ReplacingMergeTree; reads use FINAL so the newest
// version of a timestamp wins.
type CandleStore struct {
	conn *Conn
	now  func() time.Time
}

// NewCandleStore creates a new CandleStore.
func NewCandleStore(conn *Conn) *CandleStore {
	return &CandleStore{conn: conn, now: time.Now}
}

// Compile-time interface check.
var _ storage.CandleStore = (*CandleStore)(nil)

// Upsert stores candles of a series. Existing timestamps are replaced.
func (s *CandleStore) Upsert(ctx context.Context, series *domain.Series) error {
	if series == nil || series.Symbol == "" || series.Timeframe == "" {
		return storage.ErrInvalidInput
	}
	if len(series.Candles) == 0 {
		return nil
	}
	for _, c := range series.Candles {
		if c.Timestamp < 0 {
			return fmt.Errorf("%w: negative timestamp %d", storage.ErrInvalidInput, c.Timestamp)
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO candles (
			symbol, timeframe, timestamp_ms, open, high, low, close, volume, version
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	symbol := strings.ToUpper(series.Symbol)
	version := uint64(s.now().UnixNano())
	for _, c := range series.Candles {
		err = batch.Append(
			symbol, series.Timeframe, uint64(c.Timestamp),
			c.Open, c.High, c.Low, c.Close, c.Volume, version,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// Get retrieves a full series ordered by timestamp ASC. Returns ErrNotFound if absent.
func (s *CandleStore) Get(ctx context.Context, symbol, timeframe string) (*domain.Series, error) {
	query := `
		SELECT timestamp_ms, open, high, low, close, volume
		FROM candles FINAL
		WHERE symbol = ? AND timeframe = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, strings.ToUpper(symbol), timeframe)
	if err != nil {
		return nil, fmt.Errorf("query candles: %w", err)
	}
	defer rows.Close()

	candles, err := scanCandles(rows)
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
func (s *CandleStore) GetByTimeRange(ctx context.Context, symbol, timeframe string, start, end int64) ([]domain.Candle, error) {
	if end < 0 || start > end {
		return nil, nil
	}
	if start < 0 {
		start = 0
	}

	query := `
		SELECT timestamp_ms, open, high, low, close, volume
		FROM candles FINAL
		WHERE symbol = ? AND timeframe = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, strings.ToUpper(symbol), timeframe, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query candles by time range: %w", err)
	}
	defer rows.Close()

	return scanCandles(rows)
}

// ListKeys returns the stored series keys, sorted.
func (s *CandleStore) ListKeys(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT symbol, timeframe
		FROM candles
	`

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query candle keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var symbol, timeframe string
		if err := rows.Scan(&symbol, &timeframe); err != nil {
			return nil, fmt.Errorf("scan candle key row: %w", err)
		}
		keys = append(keys, domain.SeriesKey(symbol, timeframe))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candle key rows: %w", err)
	}

	sort.Strings(keys)
	return keys, nil
}

// scanCandles scans multiple rows.
func scanCandles(rows chRows) ([]domain.Candle, error) {
	var candles []domain.Candle

	for rows.Next() {
		var c domain.Candle
		var timestampMs uint64

		err := rows.Scan(&timestampMs, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume)
		if err != nil {
			return nil, fmt.Errorf("scan candle row: %w", err)
		}

		c.Timestamp = int64(timestampMs)
		candles = append(candles, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candle rows: %w", err)
	}

	return candles, nil
}
