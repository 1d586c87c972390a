package features

import (
	"math"

	"github.com/montanaflynn/stats"

	"smc-lab/internal/domain"
)

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func trueRange(high, low, prevClose float64) float64 {
	return math.Max(high-low, math.Max(math.Abs(high-prevClose), math.Abs(low-prevClose)))
}

// trueRanges returns TR per bar; bar 0 uses high-low.
func trueRanges(candles []domain.Candle) []float64 {
	tr := make([]float64, len(candles))
	for i, c := range candles {
		if i == 0 {
			tr[i] = c.High - c.Low
			continue
		}
		tr[i] = trueRange(c.High, c.Low, candles[i-1].Close)
	}
	return tr
}

// ATR computes Wilder's average true range. The first value is defined
// at index period-1 as the simple mean of the first period true ranges.
func ATR(candles []domain.Candle, period int) []float64 {
	n := len(candles)
	out := nanSlice(n)
	if period < 1 || n < period {
		return out
	}

	tr := trueRanges(candles)
	seed, err := stats.Mean(stats.Float64Data(tr[:period]))
	if err != nil {
		return out
	}
	out[period-1] = seed
	p := float64(period)
	for i := period; i < n; i++ {
		out[i] = (out[i-1]*(p-1) + tr[i]) / p
	}
	return out
}

// ADX computes Wilder's ADX with +DI and -DI.
// DI values are defined from index period wherever the smoothed range is
// non-zero; ADX starts once period DX values are defined (index 2*period-1
// for a series without flat stretches).
func ADX(candles []domain.Candle, period int) (adx, plusDI, minusDI []float64) {
	n := len(candles)
	adx, plusDI, minusDI = nanSlice(n), nanSlice(n), nanSlice(n)
	if period < 1 || n <= period {
		return adx, plusDI, minusDI
	}

	tr := trueRanges(candles)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		up := candles[i].High - candles[i-1].High
		down := candles[i-1].Low - candles[i].Low
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
	}

	var smTR, smPlus, smMinus float64
	for i := 1; i <= period; i++ {
		smTR += tr[i]
		smPlus += plusDM[i]
		smMinus += minusDM[i]
	}

	p := float64(period)
	dx := nanSlice(n)
	for i := period; i < n; i++ {
		if i > period {
			smTR = smTR - smTR/p + tr[i]
			smPlus = smPlus - smPlus/p + plusDM[i]
			smMinus = smMinus - smMinus/p + minusDM[i]
		}
		if smTR == 0 {
			continue
		}
		plusDI[i] = 100 * smPlus / smTR
		minusDI[i] = 100 * smMinus / smTR
		sum := plusDI[i] + minusDI[i]
		if sum == 0 {
			dx[i] = 0
			continue
		}
		dx[i] = 100 * math.Abs(plusDI[i]-minusDI[i]) / sum
	}

	// seed from the first period defined DX values; bars with a zero
	// smoothed range (flat stretches) have no DX and carry ADX forward
	window := make(stats.Float64Data, 0, period)
	first := -1
	for i := period; i < n && first < 0; i++ {
		if math.IsNaN(dx[i]) {
			continue
		}
		window = append(window, dx[i])
		if len(window) == period {
			first = i
		}
	}
	if first < 0 {
		return adx, plusDI, minusDI
	}
	adx[first], _ = stats.Mean(window)
	for i := first + 1; i < n; i++ {
		if math.IsNaN(dx[i]) {
			adx[i] = adx[i-1]
			continue
		}
		adx[i] = (adx[i-1]*(p-1) + dx[i]) / p
	}
	return adx, plusDI, minusDI
}

// Midpoint returns (highest high + lowest low) / 2 over a trailing window,
// the building block of the Ichimoku baselines.
func Midpoint(candles []domain.Candle, period int) []float64 {
	n := len(candles)
	out := nanSlice(n)
	if period < 1 || n < period {
		return out
	}

	highs := make(stats.Float64Data, n)
	lows := make(stats.Float64Data, n)
	for i, c := range candles {
		highs[i] = c.High
		lows[i] = c.Low
	}
	for i := period - 1; i < n; i++ {
		hh, err := stats.Max(highs[i-period+1 : i+1])
		if err != nil {
			continue
		}
		ll, err := stats.Min(lows[i-period+1 : i+1])
		if err != nil {
			continue
		}
		out[i] = (hh + ll) / 2
	}
	return out
}

// Supertrend returns the trend direction per bar: +1 up, -1 down,
// 0 before the ATR is defined.
func Supertrend(candles []domain.Candle, period int, multiplier float64) []int8 {
	n := len(candles)
	dir := make([]int8, n)
	atr := ATR(candles, period)

	var upper, lower float64
	started := false
	for i, c := range candles {
		if math.IsNaN(atr[i]) {
			continue
		}
		hl2 := (c.High + c.Low) / 2
		basicUpper := hl2 + multiplier*atr[i]
		basicLower := hl2 - multiplier*atr[i]

		if !started {
			upper, lower = basicUpper, basicLower
			dir[i] = 1
			if c.Close < lower {
				dir[i] = -1
			}
			started = true
			continue
		}

		prevClose := candles[i-1].Close
		if basicUpper < upper || prevClose > upper {
			upper = basicUpper
		}
		if basicLower > lower || prevClose < lower {
			lower = basicLower
		}

		dir[i] = dir[i-1]
		switch {
		case dir[i-1] > 0 && c.Close < lower:
			dir[i] = -1
		case dir[i-1] < 0 && c.Close > upper:
			dir[i] = 1
		}
	}
	return dir
}
