package strategy

import (
	"smc-lab/internal/domain"
	"smc-lab/internal/lookup"
	"smc-lab/internal/structure"
)

// BiasLookup returns the higher-timeframe bias visible at a lower-timeframe bar close.
type BiasLookup interface {
	At(closeTime int64) domain.Bias
}

// BiasSeries is the bias timeline of a higher-timeframe structure run.
// It is immutable after construction and safe for concurrent reads.
type BiasSeries struct {
	closeTimes []int64
	biases     []domain.Bias
}

// BuildBiasSeries runs the structure engine over higher-timeframe candles.
// The bias after each bar is the swing trend, falling back to the internal
// trend while the swing trend is still neutral.
func BuildBiasSeries(candles []domain.Candle, timeframe string, params domain.StructureParams) (*BiasSeries, error) {
	tfMs, err := domain.TimeframeMs(timeframe)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateCandles(candles); err != nil {
		return nil, err
	}
	engine, err := structure.NewEngine(params)
	if err != nil {
		return nil, err
	}

	bs := &BiasSeries{
		closeTimes: make([]int64, len(candles)),
		biases:     make([]domain.Bias, len(candles)),
	}
	for i, c := range candles {
		engine.Push(c)
		bias := engine.Trend(domain.ScopeSwing)
		if bias == domain.BiasNeutral {
			bias = engine.Trend(domain.ScopeInternal)
		}
		bs.closeTimes[i] = c.Timestamp + tfMs
		bs.biases[i] = bias
	}
	return bs, nil
}

// At returns the bias of the latest higher-timeframe bar that closed at or
// before closeTime. Returns neutral before the first close and on a nil series.
func (b *BiasSeries) At(closeTime int64) domain.Bias {
	if b == nil {
		return domain.BiasNeutral
	}
	i := lookup.IndexAtOrBefore(closeTime, b.closeTimes)
	if i < 0 {
		return domain.BiasNeutral
	}
	return b.biases[i]
}

// Len returns the number of higher-timeframe bars.
func (b *BiasSeries) Len() int {
	if b == nil {
		return 0
	}
	return len(b.biases)
}

// FixedBias is a constant bias, useful for harnesses and tests.
type FixedBias domain.Bias

// At implements BiasLookup.
func (f FixedBias) At(int64) domain.Bias {
	return domain.Bias(f)
}

var (
	_ BiasLookup = (*BiasSeries)(nil)
	_ BiasLookup = FixedBias(domain.BiasNeutral)
)
