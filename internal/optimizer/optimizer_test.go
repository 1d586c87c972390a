package optimizer

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smc-lab/internal/decision"
	"smc-lab/internal/domain"
	"smc-lab/internal/portfolio"
)

const hourMs = int64(3_600_000)

func trendConfig(symbol, tf string) domain.StrategyConfig {
	return domain.StrategyConfig{
		Symbol:    symbol,
		Timeframe: tf,
		Structure: domain.StructureParams{SwingLength: 50, InternalLength: 5, Mitigation: domain.MitigationHighLow},
		Signal:    domain.SignalParams{Mode: domain.SignalModeTrend, ConfirmBars: 2},
		Features: domain.FeatureParams{
			ATRPeriod:     3,
			TenkanPeriod:  2,
			KijunPeriod:   3,
			SenkouBPeriod: 4,
			Displacement:  1,
		},
		Risk: domain.RiskParams{
			InitialCapital:       1000,
			RiskPerTrade:         0.01,
			RiskRewardRatio:      2,
			Leverage:             10,
			MaxLeverageCap:       10,
			MinNotional:          5,
			Fee:                  0.0005,
			TrailingActivationRR: 1,
			TrailingCallbackRate: 0.01,
			ATRMultiplierSL:      2,
			MinSL:                0.005,
		},
	}
}

// crashConfig sizes aggressively without trailing so a single stop costs riskPerTrade.
func crashConfig(symbol string, riskPerTrade float64) domain.StrategyConfig {
	cfg := trendConfig(symbol, "1h")
	cfg.Risk.RiskPerTrade = riskPerTrade
	cfg.Risk.Leverage = 100
	cfg.Risk.MaxLeverageCap = 0
	cfg.Risk.TrailingActivationRR = 0
	return cfg
}

func rally(symbol string, n int) *domain.Series {
	candles := make([]domain.Candle, 0, n+1)
	for i := 0; i < n; i++ {
		cl := 200 + float64(i)
		candles = append(candles, domain.Candle{
			Timestamp: int64(i) * hourMs,
			Open:      cl - 0.5,
			High:      cl + 0.5,
			Low:       cl - 0.5,
			Close:     cl,
		})
	}
	last := candles[n-1].Close
	candles = append(candles, domain.Candle{
		Timestamp: int64(n) * hourMs,
		Open:      last,
		High:      last,
		Low:       last - 20,
		Close:     last - 15,
	})
	return &domain.Series{Symbol: symbol, Timeframe: "1h", Candles: candles}
}

func crashAt(symbol string, n, crash int) *domain.Series {
	candles := make([]domain.Candle, n)
	for i := range candles {
		cl := 200 + float64(i)
		if i > crash {
			cl = 160 + float64(i-crash)
		}
		candles[i] = domain.Candle{Timestamp: int64(i) * hourMs, Open: cl - 0.5, High: cl + 0.5, Low: cl - 0.5, Close: cl}
		if i == crash {
			candles[i] = domain.Candle{Timestamp: int64(i) * hourMs, Open: 207, High: 207, Low: 150, Close: 160}
		}
	}
	return &domain.Series{Symbol: symbol, Timeframe: "1h", Candles: candles}
}

func flat(symbol, tf string, n int, stepMs int64) *domain.Series {
	candles := make([]domain.Candle, n)
	for i := range candles {
		candles[i] = domain.Candle{Timestamp: int64(i) * stepMs, Open: 50, High: 50, Low: 50, Close: 50}
	}
	return &domain.Series{Symbol: symbol, Timeframe: tf, Candles: candles}
}

func testInputs(solRisk float64) []portfolio.Input {
	return []portfolio.Input{
		{Config: trendConfig("BTCUSDT", "1h"), Series: rally("BTCUSDT", 60)},
		{Config: trendConfig("BTCUSDT", "4h"), Series: flat("BTCUSDT", "4h", 20, 4*hourMs)},
		{Config: trendConfig("ETHUSDT", "1h"), Series: rally("ETHUSDT", 60)},
		{Config: crashConfig("SOLUSDT", solRisk), Series: crashAt("SOLUSDT", 30, 8)},
	}
}

func newTestOptimizer(t *testing.T, opts Options) *Optimizer {
	t.Helper()
	logger, _ := test.NewNullLogger()
	opts.Logger = logger
	if opts.Params.TargetMaxDrawdown == 0 {
		opts.Params.TargetMaxDrawdown = 0.3
	}
	o, err := New(opts)
	require.NoError(t, err)
	return o
}

func TestRun_GreedySelection(t *testing.T) {
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	o := newTestOptimizer(t, Options{
		Params: Params{Workers: 2},
		Now:    func() time.Time { return created },
	})

	rep, err := o.Run(context.Background(), testInputs(0.5))
	require.NoError(t, err)

	sel := rep.Selection
	require.NotNil(t, sel)
	assert.Equal(t, []string{"BTCUSDT_1h", "ETHUSDT_1h"}, sel.Keys)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, sel.Symbols)
	assert.Equal(t, 1, sel.Rounds)
	assert.Equal(t, 30.0, sel.TargetMaxDrawdownPct)
	assert.Equal(t, created.UnixMilli(), sel.CreatedAt)
	assert.NotEmpty(t, sel.RunID)

	require.NotNil(t, sel.Result)
	assert.LessOrEqual(t, sel.Result.MaxDrawdownPct, 30.0)
	assert.False(t, sel.Result.Liquidated)
	assert.Equal(t, 2, sel.Result.TradeCount)
	assert.Greater(t, sel.Result.EndCapital, rep.Candidates[0].Result.EndCapital)

	require.Len(t, rep.Candidates, 4)
	assert.Empty(t, rep.Candidates[0].Rejected)
	assert.Empty(t, rep.Candidates[1].Rejected)
	assert.Empty(t, rep.Candidates[2].Rejected)
	assert.Equal(t, RejectMaxDrawdown, rep.Candidates[3].Rejected)
	assert.False(t, rep.Candidates[3].Result.Liquidated)
}

func TestRun_LiquidatedCandidateDiscarded(t *testing.T) {
	o := newTestOptimizer(t, Options{})

	rep, err := o.Run(context.Background(), testInputs(1))
	require.NoError(t, err)

	assert.Equal(t, RejectLiquidated, rep.Candidates[3].Rejected)
	assert.NotContains(t, rep.Selection.Keys, "SOLUSDT_1h")
}

func TestRun_TieKeepsInputOrder(t *testing.T) {
	o := newTestOptimizer(t, Options{})

	// Identical results: the earlier input seeds.
	sel, err := o.Optimize(context.Background(), []portfolio.Input{
		{Config: trendConfig("ETHUSDT", "1h"), Series: rally("ETHUSDT", 60)},
		{Config: trendConfig("BTCUSDT", "1h"), Series: rally("BTCUSDT", 60)},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ETHUSDT_1h", "BTCUSDT_1h"}, sel.Keys)
}

func TestRun_SharedStartCapital(t *testing.T) {
	o := newTestOptimizer(t, Options{})

	eth := trendConfig("ETHUSDT", "1h")
	eth.Risk.InitialCapital = 5000
	rep, err := o.Run(context.Background(), []portfolio.Input{
		{Config: trendConfig("BTCUSDT", "1h"), Series: rally("BTCUSDT", 60)},
		{Config: eth, Series: rally("ETHUSDT", 60)},
	})
	require.NoError(t, err)

	// every run starts from the first input's capital, so final capitals compare
	for _, c := range rep.Candidates {
		assert.Equal(t, 1000.0, c.Result.StartCapital, c.Key)
	}
	assert.Equal(t, rep.Candidates[0].Result.EndCapital, rep.Candidates[1].Result.EndCapital)
	assert.Equal(t, 1000.0, rep.Selection.Result.StartCapital)

	zero := trendConfig("BTCUSDT", "1h")
	zero.Risk.InitialCapital = 0
	_, err = o.Run(context.Background(), []portfolio.Input{
		{Config: zero, Series: rally("BTCUSDT", 60)},
		{Config: eth, Series: rally("ETHUSDT", 60)},
	})
	assert.ErrorIs(t, err, portfolio.ErrNoCapital)
}

func TestRun_NoImprovementStops(t *testing.T) {
	o := newTestOptimizer(t, Options{})

	// A flat candidate never trades, so adding it cannot raise final capital.
	sel, err := o.Optimize(context.Background(), []portfolio.Input{
		{Config: trendConfig("BTCUSDT", "1h"), Series: rally("BTCUSDT", 60)},
		{Config: trendConfig("ETHUSDT", "1h"), Series: flat("ETHUSDT", "1h", 40, hourMs)},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"BTCUSDT_1h"}, sel.Keys)
	assert.Zero(t, sel.Rounds)
}

func TestRun_DecisionPruning(t *testing.T) {
	eval, err := decision.NewEvaluator(decision.Thresholds{MinTrades: 1})
	require.NoError(t, err)
	o := newTestOptimizer(t, Options{Decision: eval})

	rep, err := o.Run(context.Background(), testInputs(0.5))
	require.NoError(t, err)

	assert.Equal(t, RejectPruned, rep.Candidates[1].Rejected)
	require.NotNil(t, rep.Candidates[1].Verdict)
	assert.Equal(t, []string{"Trades count"}, rep.Candidates[1].Verdict.Failed())
	assert.Equal(t, RejectMaxDrawdown, rep.Candidates[3].Rejected)
	assert.Equal(t, []string{"BTCUSDT_1h", "ETHUSDT_1h"}, rep.Selection.Keys)
}

func TestRun_NoSurvivors(t *testing.T) {
	o := newTestOptimizer(t, Options{})

	rep, err := o.Run(context.Background(), []portfolio.Input{
		{Config: crashConfig("SOLUSDT", 1), Series: crashAt("SOLUSDT", 30, 8)},
	})
	require.ErrorIs(t, err, ErrNoSurvivors)
	require.NotNil(t, rep)
	assert.Nil(t, rep.Selection)
	assert.Equal(t, RejectLiquidated, rep.Candidates[0].Rejected)
}

func TestRun_Errors(t *testing.T) {
	_, err := New(Options{})
	assert.ErrorIs(t, err, ErrInvalidTarget)

	o := newTestOptimizer(t, Options{})

	_, err = o.Run(context.Background(), nil)
	assert.ErrorIs(t, err, portfolio.ErrNoInputs)

	in := portfolio.Input{Config: trendConfig("BTCUSDT", "1h"), Series: rally("BTCUSDT", 30)}
	_, err = o.Run(context.Background(), []portfolio.Input{in, in})
	assert.ErrorIs(t, err, portfolio.ErrDuplicateKey)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = o.Run(ctx, testInputs(0.5))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_DeterministicAcrossWorkers(t *testing.T) {
	serial := newTestOptimizer(t, Options{Params: Params{Workers: 1}})
	parallel := newTestOptimizer(t, Options{Params: Params{Workers: 8}})

	first, err := serial.Optimize(context.Background(), testInputs(0.5))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		again, err := parallel.Optimize(context.Background(), testInputs(0.5))
		require.NoError(t, err)
		assert.Equal(t, first.Keys, again.Keys)
		assert.Equal(t, first.Result, again.Result)
		assert.NotEqual(t, first.RunID, again.RunID)
	}
}

func TestBetter(t *testing.T) {
	a := &domain.PortfolioResult{EndCapital: 1100, MaxDrawdownPct: 10}
	b := &domain.PortfolioResult{EndCapital: 1100, MaxDrawdownPct: 5}
	c := &domain.PortfolioResult{EndCapital: 1200, MaxDrawdownPct: 25}

	assert.True(t, better(c, a))
	assert.True(t, better(b, a))
	assert.False(t, better(a, b))
	assert.False(t, better(a, a))
}
