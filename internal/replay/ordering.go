package replay

import (
	"fmt"
	"sort"

	"smc-lab/internal/domain"
)

// Timeline returns the sorted union of timestamps across all series.
func Timeline(series ...[]domain.Candle) []int64 {
	seen := make(map[int64]struct{})
	for _, candles := range series {
		for _, c := range candles {
			seen[c.Timestamp] = struct{}{}
		}
	}

	out := make([]int64, 0, len(seen))
	for ts := range seen {
		out = append(out, ts)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Merge builds the merged timeline of several series.
// Each series must be strictly ascending; ErrInvalidOrdering otherwise.
// Within a step, bars are ordered by series position so replay is deterministic.
func Merge(series ...[]domain.Candle) ([]*Step, error) {
	for s, candles := range series {
		for i := 1; i < len(candles); i++ {
			if candles[i].Timestamp <= candles[i-1].Timestamp {
				return nil, fmt.Errorf("%w: series %d at index %d", ErrInvalidOrdering, s, i)
			}
		}
	}

	timeline := Timeline(series...)
	steps := make([]*Step, len(timeline))
	for i, ts := range timeline {
		steps[i] = &Step{Timestamp: ts}
	}

	// One cursor per series walks forward with the timeline.
	for s, candles := range series {
		next := 0
		for _, step := range steps {
			if next >= len(candles) {
				break
			}
			if candles[next].Timestamp == step.Timestamp {
				step.Bars = append(step.Bars, Bar{Series: s, Index: next})
				next++
			}
		}
	}

	return steps, nil
}
