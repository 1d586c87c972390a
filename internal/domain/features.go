package domain

import "math"

// Features holds per-candle indicator values supplied by a feature provider.
// Undefined values (warm-up, division by zero) are NaN.
type Features struct {
	ATR     float64
	ADX     float64
	PlusDI  float64
	MinusDI float64

	// Ichimoku baselines
	Tenkan  float64
	Kijun   float64
	SenkouA float64
	SenkouB float64

	// Supertrend direction: +1 up, -1 down, 0 undefined.
	Supertrend int8
}

// NaNFeatures returns a Features value with every numeric field undefined.
func NaNFeatures() Features {
	nan := math.NaN()
	return Features{
		ATR:     nan,
		ADX:     nan,
		PlusDI:  nan,
		MinusDI: nan,
		Tenkan:  nan,
		Kijun:   nan,
		SenkouA: nan,
		SenkouB: nan,
	}
}

// CloudTop returns the upper Ichimoku cloud boundary.
func (f Features) CloudTop() float64 {
	return math.Max(f.SenkouA, f.SenkouB)
}

// CloudBottom returns the lower Ichimoku cloud boundary.
func (f Features) CloudBottom() float64 {
	return math.Min(f.SenkouA, f.SenkouB)
}
