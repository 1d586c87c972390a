package simulation

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smc-lab/internal/domain"
)

const hourMs = int64(3_600_000)

func testConfig(mode domain.SignalMode) domain.StrategyConfig {
	return domain.StrategyConfig{
		Symbol:    "BTCUSDT",
		Timeframe: "1h",
		Structure: domain.StructureParams{SwingLength: 50, InternalLength: 5, Mitigation: domain.MitigationHighLow},
		Signal:    domain.SignalParams{Mode: mode, ConfirmBars: 2, ADXThreshold: 20},
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

// rallyThenCrash rises one point per bar from 200, then gaps down on the last bar.
func rallyThenCrash(n int) *domain.Series {
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
	return &domain.Series{Symbol: "BTCUSDT", Timeframe: "1h", Candles: candles}
}

func flatSeries(n int) *domain.Series {
	candles := make([]domain.Candle, n)
	for i := range candles {
		candles[i] = domain.Candle{Timestamp: int64(i) * hourMs, Open: 100, High: 100, Low: 100, Close: 100}
	}
	return &domain.Series{Symbol: "BTCUSDT", Timeframe: "1h", Candles: candles}
}

func randomWalk(n int, seed int64) *domain.Series {
	r := rand.New(rand.NewSource(seed))
	candles := make([]domain.Candle, n)
	price := 100.0
	for i := range candles {
		open := price
		price += r.NormFloat64()
		if price < 1 {
			price = 1
		}
		hi := max(open, price) + r.Float64()
		lo := min(open, price) - r.Float64()
		candles[i] = domain.Candle{Timestamp: int64(i) * hourMs, Open: open, High: hi, Low: lo, Close: price}
	}
	return &domain.Series{Symbol: "BTCUSDT", Timeframe: "1h", Candles: candles}
}

func TestBacktest_TrendRallyOneTrade(t *testing.T) {
	res, err := Backtest(rallyThenCrash(60), nil, testConfig(domain.SignalModeTrend))
	require.NoError(t, err)

	assert.Equal(t, domain.StatusOK, res.Status)
	require.Equal(t, 1, res.TradesCount)
	require.Len(t, res.Trades, 1)

	trade := res.Trades[0]
	assert.Equal(t, domain.SideLong, trade.Side)
	assert.Equal(t, domain.ExitReasonTrailingStop, trade.ExitReason)
	assert.True(t, trade.IsWin())
	assert.Equal(t, int64(60)*hourMs, trade.ExitTime)

	assert.InDelta(t, 1000+trade.PnL, res.EndCapital, 1e-9)
	assert.Equal(t, res.EndCapital, trade.CapitalAfter)
	assert.Equal(t, 100.0, res.WinRate)
	assert.Zero(t, res.MaxDrawdownPct)
	assert.Greater(t, res.TotalPnLPct, 0.0)
}

func TestBacktest_FlatMarket(t *testing.T) {
	for _, mode := range []domain.SignalMode{domain.SignalModeSMC, domain.SignalModeTrend} {
		rep, err := Simulate(flatSeries(200), nil, testConfig(mode))
		require.NoError(t, err)

		assert.Equal(t, domain.StatusOK, rep.Result.Status)
		assert.Zero(t, rep.Result.TradesCount)
		assert.Empty(t, rep.Events)
		assert.Equal(t, 1000.0, rep.Result.EndCapital)
		assert.Zero(t, rep.Result.TotalPnLPct)
	}
}

func TestBacktest_InsufficientData(t *testing.T) {
	series := flatSeries(4)
	res, err := Backtest(series, nil, testConfig(domain.SignalModeSMC))
	require.NoError(t, err)

	assert.Equal(t, domain.StatusInsufficientData, res.Status)
	assert.Equal(t, -100.0, res.TotalPnLPct)
	assert.Zero(t, res.TradesCount)
}

func TestBacktest_BadInput(t *testing.T) {
	cfg := testConfig(domain.SignalModeSMC)

	res, err := Backtest(nil, nil, cfg)
	assert.True(t, errors.Is(err, domain.ErrEmptySeries))
	assert.Equal(t, domain.StatusBadInput, res.Status)

	series := flatSeries(50)
	series.Candles[10].Timestamp = series.Candles[9].Timestamp
	res, err = Backtest(series, nil, cfg)
	assert.True(t, errors.Is(err, domain.ErrDuplicateTimestamp))
	assert.Equal(t, domain.StatusBadInput, res.Status)
	assert.Equal(t, -100.0, res.TotalPnLPct)

	cfg.Signal.Mode = "unknown"
	res, err = Backtest(flatSeries(50), nil, cfg)
	assert.Error(t, err)
	assert.Equal(t, domain.StatusBadInput, res.Status)
}

func TestBacktest_Deterministic(t *testing.T) {
	series := randomWalk(1500, 7)
	cfg := testConfig(domain.SignalModeSMC)
	cfg.Structure.SwingLength = 20
	cfg.Features.ATRPeriod = 14

	first, err := Backtest(series, nil, cfg)
	require.NoError(t, err)

	for run := 0; run < 5; run++ {
		got, err := Backtest(series, nil, cfg)
		require.NoError(t, err)
		assert.Equal(t, first, got, "run %d differs", run)
	}
}

func TestBacktest_TradeInvariants(t *testing.T) {
	for _, mode := range []domain.SignalMode{domain.SignalModeSMC, domain.SignalModeTrend} {
		for seed := int64(1); seed <= 5; seed++ {
			cfg := testConfig(mode)
			cfg.Features = domain.FeatureParams{}
			res, err := Backtest(randomWalk(1200, seed), nil, cfg)
			require.NoError(t, err)

			require.Equal(t, res.TradesCount, len(res.Trades))
			capital := cfg.Risk.InitialCapital
			var prevExit int64 = -1
			for _, tr := range res.Trades {
				// One position at a time: entries never precede the previous exit
				assert.GreaterOrEqual(t, tr.EntryTime, prevExit)
				assert.Greater(t, tr.ExitTime, tr.EntryTime)
				capital += tr.PnL
				assert.InDelta(t, capital, tr.CapitalAfter, 1e-6)
				prevExit = tr.ExitTime
			}
			if !res.Liquidated {
				assert.InDelta(t, capital, res.EndCapital, 1e-6)
			}
			assert.GreaterOrEqual(t, res.MaxDrawdownPct, 0.0)
			assert.LessOrEqual(t, res.WinRate, 100.0)
		}
	}
}

func TestBacktest_LiquidationEndsAtZero(t *testing.T) {
	liquidations := 0
	for _, mode := range []domain.SignalMode{domain.SignalModeSMC, domain.SignalModeTrend} {
		for seed := int64(1); seed <= 5; seed++ {
			cfg := testConfig(mode)
			cfg.Features = domain.FeatureParams{}
			// whole capital at risk plus 1% fees per side: any stop-out wipes the account
			cfg.Risk.RiskPerTrade = 1
			cfg.Risk.Fee = 0.01
			cfg.Risk.Leverage = 100
			cfg.Risk.MaxLeverageCap = 100
			res, err := Backtest(randomWalk(1200, seed), nil, cfg)
			require.NoError(t, err)

			assert.GreaterOrEqual(t, res.EndCapital, 0.0)
			assert.GreaterOrEqual(t, res.TotalPnLPct, -100.0)
			if !res.Liquidated {
				continue
			}
			liquidations++
			assert.Equal(t, 0.0, res.EndCapital)
			assert.InDelta(t, -100.0, res.TotalPnLPct, 1e-9)
			last := res.Trades[len(res.Trades)-1]
			assert.LessOrEqual(t, last.CapitalAfter, 0.0)
		}
	}
	assert.Positive(t, liquidations, "expected at least one liquidated run")
}
