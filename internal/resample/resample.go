// Package resample aggregates lower-timeframe candles into higher-timeframe bars.
package resample

import (
	"errors"
	"fmt"

	"smc-lab/internal/domain"
)

// ErrIncompatibleTimeframes is returned when the target is not a multiple of the source.
var ErrIncompatibleTimeframes = errors.New("target timeframe is not a multiple of source timeframe")

// Aggregate groups candles into buckets of the target timeframe aligned to
// Unix epoch. Candles must be sorted ascending.
//
// Aggregation per bucket:
//   - open = FIRST(open)
//   - high = MAX(high)
//   - low = MIN(low)
//   - close = LAST(close)
//   - volume = SUM(volume)
func Aggregate(candles []domain.Candle, from, to string) ([]domain.Candle, error) {
	fromMs, err := domain.TimeframeMs(from)
	if err != nil {
		return nil, err
	}
	toMs, err := domain.TimeframeMs(to)
	if err != nil {
		return nil, err
	}
	if toMs < fromMs || toMs%fromMs != 0 {
		return nil, fmt.Errorf("%w: %s -> %s", ErrIncompatibleTimeframes, from, to)
	}
	return AggregateMs(candles, toMs), nil
}

// AggregateMs is Aggregate with an explicit bucket size in milliseconds.
func AggregateMs(candles []domain.Candle, bucketMs int64) []domain.Candle {
	if len(candles) == 0 || bucketMs <= 0 {
		return nil
	}

	var result []domain.Candle
	var current *domain.Candle

	for _, c := range candles {
		start := c.Timestamp - mod(c.Timestamp, bucketMs)
		if current == nil || current.Timestamp != start {
			// Start new bucket
			if current != nil {
				result = append(result, *current)
			}
			current = &domain.Candle{
				Timestamp: start,
				Open:      c.Open,
				High:      c.High,
				Low:       c.Low,
				Close:     c.Close,
				Volume:    c.Volume,
			}
			continue
		}

		if c.High > current.High {
			current.High = c.High
		}
		if c.Low < current.Low {
			current.Low = c.Low
		}
		current.Close = c.Close
		current.Volume += c.Volume
	}

	if current != nil {
		result = append(result, *current)
	}
	return result
}

// mod is a floored modulo so pre-epoch timestamps bucket correctly.
func mod(a, b int64) int64 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
