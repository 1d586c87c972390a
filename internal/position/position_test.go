package position

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smc-lab/internal/domain"
)

func testRisk() domain.RiskParams {
	return domain.RiskParams{
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
	}
}

func TestSize_StopFromATR(t *testing.T) {
	plan, err := Size(domain.SideLong, 100, 2, 1000, testRisk())
	require.NoError(t, err)

	assert.InDelta(t, 4.0, plan.StopDistance, 1e-9)
	assert.InDelta(t, 96.0, plan.StopLoss, 1e-9)
	assert.InDelta(t, 108.0, plan.TakeProfit, 1e-9)
	assert.InDelta(t, 104.0, plan.ActivationPrice, 1e-9)
	assert.InDelta(t, 250.0, plan.Notional, 1e-6)
	assert.InDelta(t, 25.0, plan.Margin, 0.011)
	assert.GreaterOrEqual(t, plan.Margin, plan.Notional/10-1e-9)
}

func TestSize_MinStopAndShort(t *testing.T) {
	// ATR stop 0.2 is below the 0.5% floor
	plan, err := Size(domain.SideShort, 100, 0.1, 1000, testRisk())
	require.NoError(t, err)

	assert.InDelta(t, 0.5, plan.StopDistance, 1e-9)
	assert.InDelta(t, 100.5, plan.StopLoss, 1e-9)
	assert.InDelta(t, 99.0, plan.TakeProfit, 1e-9)
	assert.InDelta(t, 99.5, plan.ActivationPrice, 1e-9)
	// risk 10 / 0.005 = 2000 notional, within 10x cap
	assert.InDelta(t, 2000.0, plan.Notional, 1e-6)
}

func TestSize_Caps(t *testing.T) {
	p := testRisk()
	p.MaxLeverageCap = 1
	plan, err := Size(domain.SideLong, 100, 0.1, 1000, p)
	require.NoError(t, err)
	assert.InDelta(t, 1000.0, plan.Notional, 1e-6)

	p.AbsoluteNotionalCap = 300
	plan, err = Size(domain.SideLong, 100, 0.1, 1000, p)
	require.NoError(t, err)
	assert.InDelta(t, 300.0, plan.Notional, 1e-6)
	assert.InDelta(t, 30.0, plan.Margin, 0.011)
}

func TestSize_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		entry   float64
		atr     float64
		capital float64
		mutate  func(*domain.RiskParams)
		want    error
	}{
		{"no capital", 100, 2, 0, nil, ErrNoCapital},
		{"nan atr", 100, math.NaN(), 1000, nil, ErrInvalidIndicator},
		{"zero entry", 0, 2, 1000, nil, ErrInvalidIndicator},
		{"zero stop", 100, 0, 1000, func(p *domain.RiskParams) { p.MinSL = 0 }, ErrInvalidStopDistance},
		{"zero leverage", 100, 2, 1000, func(p *domain.RiskParams) { p.Leverage = 0 }, ErrInvalidLeverage},
		{"below min notional", 100, 2, 10, nil, ErrNotionalTooSmall},
		{"margin above capital", 100, 2, 1000, func(p *domain.RiskParams) { p.Leverage = 0.1 }, ErrInsufficientMargin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testRisk()
			if tt.mutate != nil {
				tt.mutate(&p)
			}
			_, err := Size(domain.SideLong, tt.entry, tt.atr, tt.capital, p)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestMarginFor_RoundsUp(t *testing.T) {
	assert.Equal(t, 25.0, MarginFor(250, 10))
	assert.Equal(t, 3.34, MarginFor(10, 3))
	assert.Equal(t, 0.01, MarginFor(0.001, 1))
}

func bar(ts int64, high, low float64) domain.Candle {
	return domain.Candle{Timestamp: ts, Open: (high + low) / 2, High: high, Low: low, Close: (high + low) / 2}
}

func openLong(t *testing.T) *Position {
	t.Helper()
	plan, err := Size(domain.SideLong, 100, 2, 1000, testRisk())
	require.NoError(t, err)
	return Open("BTCUSDT_1h", "BTCUSDT", plan, 0, testRisk())
}

func TestPosition_TrailingRatchet(t *testing.T) {
	pos := openLong(t)
	assert.Equal(t, StateOpen, pos.State())
	assert.Equal(t, "OPEN", pos.State().String())

	assert.False(t, pos.Update(bar(1, 105, 104.9)))
	assert.True(t, pos.Trailing())
	assert.InDelta(t, 103.95, pos.StopLoss(), 1e-9)

	// Peak 110 passes the 108 target, which is ignored once trailing
	assert.False(t, pos.Update(bar(2, 110, 109)))
	assert.InDelta(t, 108.9, pos.StopLoss(), 1e-9)

	// Lower peak never loosens the stop
	assert.False(t, pos.Update(bar(3, 109.5, 109)))
	assert.InDelta(t, 108.9, pos.StopLoss(), 1e-9)

	require.True(t, pos.Update(bar(4, 109, 108.5)))
	assert.Equal(t, StateClosed, pos.State())
	assert.Equal(t, "CLOSED", pos.State().String())
	assert.Equal(t, "State(0)", State(0).String())

	trade, ok := pos.Trade()
	require.True(t, ok)
	assert.Equal(t, domain.ExitReasonTrailingStop, trade.ExitReason)
	assert.InDelta(t, 108.9, trade.ExitPrice, 1e-9)
	assert.Equal(t, 110.0, trade.PeakPrice)
	assert.True(t, trade.Trailing)
	assert.Equal(t, domain.OutcomeClassWin, trade.OutcomeClass)
}

func TestPosition_StopLossBeforeTarget(t *testing.T) {
	p := testRisk()
	p.TrailingActivationRR = 0
	plan, err := Size(domain.SideLong, 100, 2, 1000, p)
	require.NoError(t, err)
	pos := Open("BTCUSDT_1h", "BTCUSDT", plan, 0, p)

	// Wide bar touching both stop and target exits at the stop
	require.True(t, pos.Update(bar(1, 109, 95)))
	trade, ok := pos.Trade()
	require.True(t, ok)
	assert.Equal(t, domain.ExitReasonStopLoss, trade.ExitReason)
	assert.InDelta(t, 96.0, trade.ExitPrice, 1e-9)
	assert.Equal(t, domain.OutcomeClassLoss, trade.OutcomeClass)
}

func TestPosition_SameBarActivationExitsTrailing(t *testing.T) {
	pos := openLong(t)

	// Activation and ratchet run before the exit check on the same bar
	require.True(t, pos.Update(bar(1, 109, 95)))
	trade, _ := pos.Trade()
	assert.Equal(t, domain.ExitReasonTrailingStop, trade.ExitReason)
	assert.InDelta(t, 109*0.99, trade.ExitPrice, 1e-9)
}

func TestPosition_TakeProfitAndSettlement(t *testing.T) {
	p := testRisk()
	p.TrailingActivationRR = 0
	plan, err := Size(domain.SideLong, 100, 2, 1000, p)
	require.NoError(t, err)
	pos := Open("BTCUSDT_1h", "BTCUSDT", plan, 0, p)

	assert.False(t, pos.Update(bar(1, 103, 99)))
	assert.InDelta(t, 7.5, pos.UnrealizedPnL(103), 1e-6)

	require.True(t, pos.Update(bar(2, 108.5, 101)))
	trade, ok := pos.Trade()
	require.True(t, ok)
	assert.Equal(t, domain.ExitReasonTakeProfit, trade.ExitReason)

	// 250 notional * 8% = 20 gross, 250 * 0.0005 * 2 = 0.25 fees
	assert.InDelta(t, 20.0, trade.GrossPnL, 1e-6)
	assert.InDelta(t, 0.25, trade.Fees, 1e-9)
	assert.InDelta(t, 19.75, trade.PnL, 1e-6)
	assert.NotEmpty(t, trade.TradeID)

	// Closed positions ignore further candles
	assert.False(t, pos.Update(bar(3, 50, 40)))
	assert.Zero(t, pos.UnrealizedPnL(200))
}

func TestPosition_ShortStop(t *testing.T) {
	plan, err := Size(domain.SideShort, 100, 2, 1000, testRisk())
	require.NoError(t, err)
	pos := Open("ETHUSDT_1h", "ETHUSDT", plan, 0, testRisk())

	assert.False(t, pos.Update(bar(1, 103, 99)))
	require.True(t, pos.Update(bar(2, 104.5, 101)))

	trade, _ := pos.Trade()
	assert.Equal(t, domain.ExitReasonStopLoss, trade.ExitReason)
	assert.InDelta(t, 104.0, trade.ExitPrice, 1e-9)
	assert.Less(t, trade.PnL, 0.0)
}

func TestAccount_DrawdownAndLiquidation(t *testing.T) {
	acc := NewAccount(100)

	win := domain.Trade{PnL: 20, ExitTime: 1}
	acc.Settle(&win)
	assert.Equal(t, 120.0, win.CapitalAfter)
	assert.Equal(t, 120.0, acc.PeakCapital())

	loss := domain.Trade{PnL: -30, ExitTime: 2}
	acc.Settle(&loss)
	assert.InDelta(t, 0.25, acc.MaxDrawdown(), 1e-9)
	assert.InDelta(t, -10.0, acc.TotalPnLPct(), 1e-9)
	assert.InDelta(t, 50.0, acc.WinRate(), 1e-9)
	assert.True(t, acc.CanOpen())

	wipe := domain.Trade{PnL: -95, ExitTime: 3}
	acc.Settle(&wipe)
	liquidated, at := acc.Liquidated()
	assert.True(t, liquidated)
	assert.Equal(t, int64(3), at)
	assert.False(t, acc.CanOpen())
	assert.Equal(t, 3, acc.TradesCount())

	// the losing trade records the raw balance, the account ends at zero
	assert.InDelta(t, -5.0, wipe.CapitalAfter, 1e-9)
	assert.Equal(t, 0.0, acc.Capital())
	assert.InDelta(t, -100.0, acc.TotalPnLPct(), 1e-9)
}

func TestRejectReason(t *testing.T) {
	_, err := Size(domain.SideLong, 100, 2, 10, testRisk())
	assert.Equal(t, "notional_too_small", RejectReason(err))
	assert.Equal(t, "", RejectReason(nil))
	assert.Equal(t, "other", RejectReason(errors.New("boom")))
}
