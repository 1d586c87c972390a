package strategy

import (
	"fmt"

	"smc-lab/internal/domain"
)

// ZoneEvaluator signals when price trades back into an unmitigated zone
// (fair value gap or order block) aligned with the structure trend.
//
// Long: trend is bullish, the bar's low reaches into a bullish zone created
// on an earlier bar and the bar closes at or above the zone bottom.
// Short is symmetric with bearish zones.
type ZoneEvaluator struct {
	TrendScope     domain.Scope
	UseFVGs        bool
	UseOrderBlocks bool
}

// NewZoneEvaluator creates an evaluator using both zone types on the internal trend.
func NewZoneEvaluator() *ZoneEvaluator {
	return &ZoneEvaluator{
		TrendScope:     domain.ScopeInternal,
		UseFVGs:        true,
		UseOrderBlocks: true,
	}
}

// ID returns the evaluator identifier including parameters.
func (z *ZoneEvaluator) ID() string {
	return fmt.Sprintf("SMC_ZONE_%s_fvg%t_ob%t", z.TrendScope, z.UseFVGs, z.UseOrderBlocks)
}

// Evaluate implements Evaluator.
func (z *ZoneEvaluator) Evaluate(ctx *Context) (domain.Intent, bool) {
	if ctx.Structure == nil {
		return domain.Intent{}, false
	}

	switch ctx.Structure.Trend(z.TrendScope) {
	case domain.BiasBullish:
		if z.reentered(ctx, domain.BiasBullish) {
			return intentAt(ctx, domain.SideLong), true
		}
	case domain.BiasBearish:
		if z.reentered(ctx, domain.BiasBearish) {
			return intentAt(ctx, domain.SideShort), true
		}
	case domain.BiasNeutral:
	}
	return domain.Intent{}, false
}

func (z *ZoneEvaluator) reentered(ctx *Context, bias domain.Bias) bool {
	c := ctx.Candle()

	if z.UseFVGs {
		for _, g := range ctx.Structure.ActiveFVGs() {
			if g.Bias != bias || g.Index >= ctx.Index {
				continue
			}
			if touches(c, bias, g.Top, g.Bottom) {
				return true
			}
		}
	}
	if z.UseOrderBlocks {
		for _, ob := range ctx.Structure.ActiveOrderBlocks() {
			if ob.Bias != bias || ob.CreatedIndex >= ctx.Index {
				continue
			}
			if touches(c, bias, ob.BarHigh, ob.BarLow) {
				return true
			}
		}
	}
	return false
}

func touches(c domain.Candle, bias domain.Bias, top, bottom float64) bool {
	switch bias {
	case domain.BiasBullish:
		return c.Low <= top && c.Close >= bottom
	case domain.BiasBearish:
		return c.High >= bottom && c.Close <= top
	default:
		return false
	}
}

var _ Evaluator = (*ZoneEvaluator)(nil)
