package strategy

import (
	"fmt"
	"math"

	"smc-lab/internal/domain"
)

// Filtered applies the signal filters to a raw evaluator, in order:
//  1. MTF bias: reject a side opposing a non-neutral bias
//  2. trend strength: reject when ADX is below threshold or the
//     directional indexes disagree with the side
//
// Missing or NaN filter inputs reject the signal.
type Filtered struct {
	Inner        Evaluator
	UseADX       bool
	ADXThreshold float64
}

// ID returns the evaluator identifier including filter parameters.
func (f *Filtered) ID() string {
	if !f.UseADX {
		return f.Inner.ID() + "_mtf"
	}
	return fmt.Sprintf("%s_mtf_adx%.0f", f.Inner.ID(), f.ADXThreshold)
}

// Evaluate implements Evaluator.
func (f *Filtered) Evaluate(ctx *Context) (domain.Intent, bool) {
	intent, ok := f.Inner.Evaluate(ctx)
	if !ok {
		return domain.Intent{}, false
	}
	if math.IsNaN(intent.ReferencePrice) || intent.ReferencePrice <= 0 {
		return domain.Intent{}, false
	}

	if ctx.Bias.Opposes(intent.Side) {
		return domain.Intent{}, false
	}

	if f.UseADX && !f.strongEnough(ctx.Feature(), intent.Side) {
		return domain.Intent{}, false
	}

	return intent, true
}

func (f *Filtered) strongEnough(feat domain.Features, side domain.Side) bool {
	if anyNaN(feat.ADX, feat.PlusDI, feat.MinusDI) {
		return false
	}
	if feat.ADX < f.ADXThreshold {
		return false
	}
	switch side {
	case domain.SideLong:
		return feat.PlusDI > feat.MinusDI
	case domain.SideShort:
		return feat.MinusDI > feat.PlusDI
	default:
		return false
	}
}

var _ Evaluator = (*Filtered)(nil)
