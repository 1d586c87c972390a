// Package features annotates candles with indicator values (ATR, ADX,
// Ichimoku baselines, Supertrend) consumed by signal evaluation and sizing.
package features

import (
	"smc-lab/internal/domain"
)

// Provider annotates each candle with indicator values.
// The returned slice has the same length as candles.
type Provider interface {
	Annotate(candles []domain.Candle) []domain.Features
}

// DefaultParams returns the standard indicator periods.
func DefaultParams() domain.FeatureParams {
	return domain.FeatureParams{
		ATRPeriod:            14,
		ADXPeriod:            14,
		TenkanPeriod:         9,
		KijunPeriod:          26,
		SenkouBPeriod:        52,
		Displacement:         26,
		SupertrendPeriod:     10,
		SupertrendMultiplier: 3,
	}
}

// Standard computes every field of domain.Features.
type Standard struct {
	params domain.FeatureParams
}

// NewStandard creates a provider; zero periods fall back to defaults.
func NewStandard(p domain.FeatureParams) *Standard {
	d := DefaultParams()
	if p.ATRPeriod <= 0 {
		p.ATRPeriod = d.ATRPeriod
	}
	if p.ADXPeriod <= 0 {
		p.ADXPeriod = d.ADXPeriod
	}
	if p.TenkanPeriod <= 0 {
		p.TenkanPeriod = d.TenkanPeriod
	}
	if p.KijunPeriod <= 0 {
		p.KijunPeriod = d.KijunPeriod
	}
	if p.SenkouBPeriod <= 0 {
		p.SenkouBPeriod = d.SenkouBPeriod
	}
	if p.Displacement <= 0 {
		p.Displacement = d.Displacement
	}
	if p.SupertrendPeriod <= 0 {
		p.SupertrendPeriod = d.SupertrendPeriod
	}
	if p.SupertrendMultiplier <= 0 {
		p.SupertrendMultiplier = d.SupertrendMultiplier
	}
	return &Standard{params: p}
}

// Params returns the effective periods.
func (s *Standard) Params() domain.FeatureParams {
	return s.params
}

// Annotate implements Provider.
func (s *Standard) Annotate(candles []domain.Candle) []domain.Features {
	n := len(candles)
	out := make([]domain.Features, n)

	atr := ATR(candles, s.params.ATRPeriod)
	adx, plusDI, minusDI := ADX(candles, s.params.ADXPeriod)
	tenkan := Midpoint(candles, s.params.TenkanPeriod)
	kijun := Midpoint(candles, s.params.KijunPeriod)
	spanB := Midpoint(candles, s.params.SenkouBPeriod)
	st := Supertrend(candles, s.params.SupertrendPeriod, s.params.SupertrendMultiplier)

	d := s.params.Displacement
	for i := 0; i < n; i++ {
		f := domain.NaNFeatures()
		f.ATR = atr[i]
		f.ADX = adx[i]
		f.PlusDI = plusDI[i]
		f.MinusDI = minusDI[i]
		f.Tenkan = tenkan[i]
		f.Kijun = kijun[i]
		// Senkou spans are projected forward, so the cloud under bar i
		// comes from bar i-displacement.
		if i >= d {
			f.SenkouA = (tenkan[i-d] + kijun[i-d]) / 2
			f.SenkouB = spanB[i-d]
		}
		f.Supertrend = st[i]
		out[i] = f
	}
	return out
}

var _ Provider = (*Standard)(nil)
