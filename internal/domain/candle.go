package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Series validation errors.
var (
	ErrEmptySeries        = errors.New("candle series is empty")
	ErrUnsortedSeries     = errors.New("candle series is not sorted by timestamp")
	ErrDuplicateTimestamp = errors.New("candle series has duplicate timestamp")
	ErrUnknownTimeframe   = errors.New("unknown timeframe")
)

// Candle represents one OHLC bar.
type Candle struct {
	Timestamp int64 // bar open time (Unix ms)
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Series is an ordered candle sequence for one symbol and timeframe.
// Candles are immutable once loaded; consumers share the slice read-only.
type Series struct {
	Symbol    string
	Timeframe string
	Candles   []Candle
}

// Key returns the SYMBOL_TIMEFRAME key used for caches and parameter files.
func (s *Series) Key() string {
	return SeriesKey(s.Symbol, s.Timeframe)
}

// Len returns the number of candles.
func (s *Series) Len() int {
	return len(s.Candles)
}

// Validate checks that candles are non-empty with strictly increasing timestamps.
func (s *Series) Validate() error {
	return ValidateCandles(s.Candles)
}

// ValidateCandles checks ordering and uniqueness of candle timestamps.
func ValidateCandles(candles []Candle) error {
	if len(candles) == 0 {
		return ErrEmptySeries
	}
	for i := 1; i < len(candles); i++ {
		prev, cur := candles[i-1].Timestamp, candles[i].Timestamp
		if cur == prev {
			return fmt.Errorf("%w: %d at index %d", ErrDuplicateTimestamp, cur, i)
		}
		if cur < prev {
			return fmt.Errorf("%w: %d after %d at index %d", ErrUnsortedSeries, cur, prev, i)
		}
	}
	return nil
}

// SeriesKey builds the SYMBOL_TIMEFRAME key.
func SeriesKey(symbol, timeframe string) string {
	return strings.ToUpper(symbol) + "_" + timeframe
}

// ParseSeriesKey splits a SYMBOL_TIMEFRAME key at its last underscore, so
// symbols may contain underscores themselves.
func ParseSeriesKey(key string) (symbol, timeframe string, ok bool) {
	i := strings.LastIndexByte(key, '_')
	if i <= 0 || i == len(key)-1 {
		return "", "", false
	}
	return key[:i], key[i+1:], true
}

// Supported timeframes.
var timeframes = map[string]time.Duration{
	"1m":  time.Minute,
	"3m":  3 * time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"2h":  2 * time.Hour,
	"4h":  4 * time.Hour,
	"6h":  6 * time.Hour,
	"12h": 12 * time.Hour,
	"1d":  24 * time.Hour,
}

// ParseTimeframe converts a timeframe label ("15m", "4h", "1d") to a duration.
func ParseTimeframe(tf string) (time.Duration, error) {
	d, ok := timeframes[tf]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownTimeframe, tf)
	}
	return d, nil
}

// TimeframeMs is ParseTimeframe in milliseconds.
func TimeframeMs(tf string) (int64, error) {
	d, err := ParseTimeframe(tf)
	if err != nil {
		return 0, err
	}
	return d.Milliseconds(), nil
}
