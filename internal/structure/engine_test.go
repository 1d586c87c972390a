package structure

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smc-lab/internal/domain"
)

const minuteMs = int64(60_000)

// makeBars builds candles from (high, low, close) triples, one minute apart.
func makeBars(hlc ...[3]float64) []domain.Candle {
	out := make([]domain.Candle, len(hlc))
	for i, v := range hlc {
		out[i] = domain.Candle{
			Timestamp: int64(i) * minuteMs,
			Open:      v[2],
			High:      v[0],
			Low:       v[1],
			Close:     v[2],
		}
	}
	return out
}

// makeRandomWalk builds a deterministic random-walk series.
func makeRandomWalk(n int, seed int64) []domain.Candle {
	r := rand.New(rand.NewSource(seed))
	out := make([]domain.Candle, n)
	price := 100.0
	for i := 0; i < n; i++ {
		open := price
		price += (r.Float64() - 0.5) * 4
		hi := max(open, price) + r.Float64()*1.5
		lo := min(open, price) - r.Float64()*1.5
		out[i] = domain.Candle{Timestamp: int64(i) * minuteMs, Open: open, High: hi, Low: lo, Close: price}
	}
	return out
}

func testParams(mode domain.MitigationMode) domain.StructureParams {
	return domain.StructureParams{SwingLength: 50, InternalLength: 2, Mitigation: mode}
}

// breakSeries produces a bullish BOS at bar 5 followed by a bearish CHoCH at bar 7.
func breakSeries() []domain.Candle {
	return makeBars(
		[3]float64{10, 9, 9.5},
		[3]float64{12, 10, 11.5},
		[3]float64{11, 9.5, 10},
		[3]float64{10.5, 9, 9.5},
		[3]float64{11, 9.2, 10.8},
		[3]float64{13, 10.5, 12.5},
		[3]float64{12.8, 9.8, 11.5},
		[3]float64{11.5, 8, 8.5},
	)
}

func TestNewEngine_RequiresMitigationMode(t *testing.T) {
	_, err := NewEngine(domain.StructureParams{SwingLength: 50, InternalLength: 5})
	if !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("expected ErrInvalidParams, got %v", err)
	}

	_, err = NewEngine(domain.StructureParams{SwingLength: 0, InternalLength: 5, Mitigation: domain.MitigationClose})
	if !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("expected ErrInvalidParams for zero swing length, got %v", err)
	}
}

func TestEngine_BullishFVG(t *testing.T) {
	candles := []domain.Candle{
		{Timestamp: 0, Open: 98, High: 100, Low: 97, Close: 99},
		{Timestamp: minuteMs, Open: 101, High: 107, Low: 100.5, Close: 105},
		{Timestamp: 2 * minuteMs, Open: 106.5, High: 108, Low: 106, Close: 107},
	}

	res, err := Analyze(candles, testParams(domain.MitigationHighLow))
	require.NoError(t, err)

	require.Len(t, res.FVGs, 1)
	g := res.FVGs[0]
	assert.Equal(t, 106.0, g.Top)
	assert.Equal(t, 100.0, g.Bottom)
	assert.Equal(t, domain.BiasBullish, g.Bias)
	assert.Equal(t, 2, g.Index)
	assert.False(t, g.Mitigated)

	require.Len(t, res.Events, 1)
	assert.Equal(t, domain.KindFVG, res.Events[0].Kind)
	assert.Equal(t, 0, res.Events[0].Ref)
}

func TestEngine_BearishFVGAndMitigation(t *testing.T) {
	candles := makeBars(
		[3]float64{102, 100, 101},
		[3]float64{99.5, 96, 97},
		[3]float64{98, 95, 96},
		// inside the gap, no mitigation
		[3]float64{99, 96, 98},
		// high above top 100
		[3]float64{100.5, 97, 100},
	)

	e, err := NewEngine(testParams(domain.MitigationHighLow))
	require.NoError(t, err)

	for i, c := range candles {
		e.Push(c)
		if i == 2 {
			require.Len(t, e.ActiveFVGs(), 1)
		}
	}

	fvgs := e.FVGs()
	require.Len(t, fvgs, 1)
	assert.Equal(t, domain.BiasBearish, fvgs[0].Bias)
	assert.Equal(t, 100.0, fvgs[0].Top)
	assert.Equal(t, 98.0, fvgs[0].Bottom)
	assert.True(t, fvgs[0].Mitigated)
	assert.Equal(t, 4, fvgs[0].MitigatedIndex)
	assert.Empty(t, e.ActiveFVGs())
}

func TestEngine_BOSThenCHoCH(t *testing.T) {
	res, err := Analyze(breakSeries(), testParams(domain.MitigationHighLow))
	require.NoError(t, err)

	require.Len(t, res.Events, 2)

	bos := res.Events[0]
	assert.Equal(t, domain.KindBOS, bos.Kind)
	assert.Equal(t, domain.BiasBullish, bos.Bias)
	assert.Equal(t, domain.ScopeInternal, bos.Scope)
	assert.Equal(t, 5, bos.Index)
	assert.Equal(t, 12.0, bos.Level)
	assert.Equal(t, 0, bos.Ref)

	choch := res.Events[1]
	assert.Equal(t, domain.KindCHoCH, choch.Kind)
	assert.Equal(t, domain.BiasBearish, choch.Bias)
	assert.Equal(t, 7, choch.Index)
	assert.Equal(t, 9.0, choch.Level)
	assert.Equal(t, 1, choch.Ref)

	require.Len(t, res.OrderBlocks, 2)

	bull := res.OrderBlocks[0]
	assert.Equal(t, domain.BiasBullish, bull.Bias)
	assert.Equal(t, 1, bull.BarIndex)
	assert.Equal(t, 12.0, bull.BarHigh)
	assert.Equal(t, 10.0, bull.BarLow)
	assert.Equal(t, 5, bull.CreatedIndex)

	bear := res.OrderBlocks[1]
	assert.Equal(t, domain.BiasBearish, bear.Bias)
	assert.Equal(t, 3, bear.BarIndex)
	assert.Equal(t, 10.5, bear.BarHigh)
	assert.Equal(t, 9.0, bear.BarLow)
	assert.False(t, bear.Mitigated)

	assert.Equal(t, domain.BiasBearish, res.InternalTrend)
	assert.Equal(t, domain.BiasNeutral, res.SwingTrend)
	assert.Empty(t, res.FVGs)
}

func TestEngine_MitigationModes(t *testing.T) {
	// Bar 6 wicks below the bullish block low (10) but closes above it.
	hl, err := Analyze(breakSeries(), testParams(domain.MitigationHighLow))
	require.NoError(t, err)
	assert.True(t, hl.OrderBlocks[0].Mitigated)
	assert.Equal(t, 6, hl.OrderBlocks[0].MitigatedIndex)

	cl, err := Analyze(breakSeries(), testParams(domain.MitigationClose))
	require.NoError(t, err)
	assert.True(t, cl.OrderBlocks[0].Mitigated)
	assert.Equal(t, 7, cl.OrderBlocks[0].MitigatedIndex)
}

func TestEngine_PivotsAfterBreak(t *testing.T) {
	e, err := NewEngine(testParams(domain.MitigationHighLow))
	require.NoError(t, err)
	for _, c := range breakSeries() {
		e.Push(c)
	}

	high, low := e.Pivots(domain.ScopeInternal)
	assert.Equal(t, 13.0, high.CurrentLevel)
	assert.Equal(t, 5, high.BarIndex)
	assert.False(t, high.Crossed)
	assert.Equal(t, 9.0, low.CurrentLevel)
	assert.True(t, low.Crossed)
	assert.Equal(t, domain.LegBearish, e.Leg(domain.ScopeInternal))

	swingHigh, swingLow := e.Pivots(domain.ScopeSwing)
	assert.Equal(t, -1, swingHigh.BarIndex)
	assert.Equal(t, -1, swingLow.BarIndex)
}

func TestEngine_FlatMarket(t *testing.T) {
	candles := make([]domain.Candle, 200)
	for i := range candles {
		candles[i] = domain.Candle{Timestamp: int64(i) * minuteMs, Open: 100, High: 100, Low: 100, Close: 100}
	}

	res, err := Analyze(candles, domain.StructureParams{SwingLength: 50, InternalLength: 5, Mitigation: domain.MitigationClose})
	require.NoError(t, err)
	assert.Empty(t, res.Events)
	assert.Empty(t, res.OrderBlocks)
	assert.Empty(t, res.FVGs)
}

func TestEngine_ShortHistoryNeverPanics(t *testing.T) {
	e, err := NewEngine(DefaultParams())
	require.NoError(t, err)

	step := e.Push(domain.Candle{Timestamp: 1, Open: 1, High: 2, Low: 0.5, Close: 1.5})
	assert.Equal(t, 0, step.Index)
	assert.Empty(t, step.Events)
	assert.Equal(t, 1, e.Len())
}

func TestEngine_Determinism(t *testing.T) {
	candles := makeRandomWalk(1500, 42)
	params := domain.StructureParams{SwingLength: 20, InternalLength: 5, Mitigation: domain.MitigationHighLow}

	first, err := Analyze(candles, params)
	require.NoError(t, err)
	require.NotEmpty(t, first.Events)

	// Run 5 times to verify identical output
	for i := 0; i < 5; i++ {
		again, err := Analyze(candles, params)
		require.NoError(t, err)
		require.Equal(t, first.Fingerprint(), again.Fingerprint(), "run %d", i)
		require.Equal(t, first, again, "run %d", i)
	}
}

func TestEngine_MitigationMonotonic(t *testing.T) {
	candles := makeRandomWalk(1000, 7)
	e, err := NewEngine(domain.StructureParams{SwingLength: 15, InternalLength: 5, Mitigation: domain.MitigationClose})
	require.NoError(t, err)

	obSeen := map[int]int{}
	fvgSeen := map[int]int{}

	for _, c := range candles {
		e.Push(c)
		for idx, ob := range e.OrderBlocks() {
			if prev, ok := obSeen[idx]; ok {
				require.True(t, ob.Mitigated, "order block %d reverted", idx)
				require.Equal(t, prev, ob.MitigatedIndex)
			} else if ob.Mitigated {
				obSeen[idx] = ob.MitigatedIndex
			}
		}
		for idx, g := range e.FVGs() {
			if prev, ok := fvgSeen[idx]; ok {
				require.True(t, g.Mitigated, "gap %d reverted", idx)
				require.Equal(t, prev, g.MitigatedIndex)
			} else if g.Mitigated {
				fvgSeen[idx] = g.MitigatedIndex
			}
			require.GreaterOrEqual(t, g.Top, g.Bottom)
		}
	}
	assert.NotEmpty(t, fvgSeen)
}

func TestEngine_StepEventsMatchLog(t *testing.T) {
	candles := makeRandomWalk(500, 3)
	e, err := NewEngine(domain.StructureParams{SwingLength: 10, InternalLength: 3, Mitigation: domain.MitigationHighLow})
	require.NoError(t, err)

	var collected []domain.StructureEvent
	for _, c := range candles {
		step := e.Push(c)
		for _, ev := range step.Events {
			require.Equal(t, step.Index, ev.Index)
		}
		collected = append(collected, step.Events...)
	}
	assert.Equal(t, e.Events(), collected)
}
