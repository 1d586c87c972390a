package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smc-lab/internal/domain"
)

func makeRising(n int) []domain.Candle {
	out := make([]domain.Candle, n)
	for i := 0; i < n; i++ {
		p := 100 + float64(i)
		out[i] = domain.Candle{Timestamp: int64(i) * 60_000, Open: p - 0.5, High: p + 1, Low: p - 1, Close: p}
	}
	return out
}

func makeFlatRange(n int) []domain.Candle {
	out := make([]domain.Candle, n)
	for i := 0; i < n; i++ {
		out[i] = domain.Candle{Timestamp: int64(i) * 60_000, Open: 100, High: 101, Low: 99, Close: 100}
	}
	return out
}

func TestATR_ConstantRange(t *testing.T) {
	atr := ATR(makeFlatRange(30), 14)

	for i := 0; i < 13; i++ {
		if !math.IsNaN(atr[i]) {
			t.Fatalf("atr[%d] = %f, want NaN during warm-up", i, atr[i])
		}
	}
	for i := 13; i < 30; i++ {
		if math.Abs(atr[i]-2) > 1e-9 {
			t.Errorf("atr[%d] = %f, want 2", i, atr[i])
		}
	}
}

func TestATR_ShortSeries(t *testing.T) {
	atr := ATR(makeFlatRange(5), 14)
	for i, v := range atr {
		if !math.IsNaN(v) {
			t.Errorf("atr[%d] = %f, want NaN", i, v)
		}
	}
}

func TestADX_StrongUptrend(t *testing.T) {
	adx, plus, minus := ADX(makeRising(60), 14)

	assert.True(t, math.IsNaN(adx[26]))
	require.False(t, math.IsNaN(adx[27]))
	assert.InDelta(t, 100, adx[27], 1e-9)
	assert.Greater(t, plus[40], minus[40])
	assert.InDelta(t, 0, minus[40], 1e-9)
}

func TestADX_FlatOpening(t *testing.T) {
	candles := make([]domain.Candle, 200)
	for i := range candles {
		p := 100.0
		if i >= 40 {
			p = 101 + float64(i-40)
		}
		c := domain.Candle{Timestamp: int64(i) * 60_000, Open: p, High: p, Low: p, Close: p}
		if i >= 40 {
			c.High, c.Low = p+1, p-1
		}
		candles[i] = c
	}

	adx, plus, minus := ADX(candles, 14)

	assert.True(t, math.IsNaN(plus[39]))
	assert.True(t, math.IsNaN(adx[52]))
	require.False(t, math.IsNaN(adx[53]), "adx must start after 14 defined DX values")
	for i := 53; i < len(adx); i++ {
		require.False(t, math.IsNaN(adx[i]), "adx[%d] is NaN", i)
	}
	assert.InDelta(t, 100, adx[199], 1e-9)
	assert.Greater(t, plus[199], minus[199])
}

func TestMidpoint(t *testing.T) {
	mid := Midpoint(makeRising(10), 3)

	assert.True(t, math.IsNaN(mid[1]))
	// bars 0..2: highest high 103, lowest low 99
	assert.InDelta(t, 101, mid[2], 1e-9)
	assert.InDelta(t, 108, mid[9], 1e-9)
}

func TestSupertrend_Direction(t *testing.T) {
	st := Supertrend(makeRising(40), 10, 3)
	assert.Equal(t, int8(0), st[0])
	assert.Equal(t, int8(1), st[39])

	falling := makeRising(40)
	for i := range falling {
		falling[i].Close = 200 - float64(i)
		falling[i].High = falling[i].Close + 1
		falling[i].Low = falling[i].Close - 1
	}
	st = Supertrend(falling, 10, 3)
	assert.Equal(t, int8(-1), st[39])
}

func TestStandard_Annotate(t *testing.T) {
	candles := makeRising(120)
	p := NewStandard(domain.FeatureParams{})
	assert.Equal(t, DefaultParams(), p.Params())

	feats := p.Annotate(candles)
	require.Len(t, feats, len(candles))

	assert.True(t, math.IsNaN(feats[10].SenkouA))
	assert.True(t, math.IsNaN(feats[60].SenkouB))
	assert.False(t, math.IsNaN(feats[100].SenkouA))
	assert.False(t, math.IsNaN(feats[100].SenkouB))

	last := feats[119]
	assert.Greater(t, last.Tenkan, last.Kijun)
	assert.Greater(t, candles[119].Close, last.CloudTop())
	assert.Equal(t, int8(1), last.Supertrend)
	assert.False(t, math.IsNaN(last.ATR))
}
