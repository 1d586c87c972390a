package strategy

import (
	"fmt"
	"math"

	"smc-lab/internal/domain"
)

// TrendEvaluator signals when price is aligned with both Ichimoku baselines
// and the cloud, and the previous ConfirmBars closes held the same side of the kijun.
type TrendEvaluator struct {
	ConfirmBars   int
	UseSupertrend bool
}

// NewTrendEvaluator creates a new TrendEvaluator.
func NewTrendEvaluator(confirmBars int, useSupertrend bool) *TrendEvaluator {
	return &TrendEvaluator{ConfirmBars: confirmBars, UseSupertrend: useSupertrend}
}

// ID returns the evaluator identifier including parameters.
func (e *TrendEvaluator) ID() string {
	return fmt.Sprintf("TREND_confirm%d_st%t", e.ConfirmBars, e.UseSupertrend)
}

// Evaluate implements Evaluator. Any undefined feature means no signal.
func (e *TrendEvaluator) Evaluate(ctx *Context) (domain.Intent, bool) {
	c := ctx.Candle()
	f := ctx.Feature()
	if anyNaN(f.Tenkan, f.Kijun, f.SenkouA, f.SenkouB) {
		return domain.Intent{}, false
	}

	long := c.Close > f.Tenkan &&
		c.Close > f.Kijun &&
		f.Tenkan > f.Kijun &&
		c.Close > f.CloudTop()
	if long && e.confirmed(ctx, domain.SideLong) && e.supertrendAgrees(f, domain.SideLong) {
		return intentAt(ctx, domain.SideLong), true
	}

	short := c.Close < f.Tenkan &&
		c.Close < f.Kijun &&
		f.Tenkan < f.Kijun &&
		c.Close < f.CloudBottom()
	if short && e.confirmed(ctx, domain.SideShort) && e.supertrendAgrees(f, domain.SideShort) {
		return intentAt(ctx, domain.SideShort), true
	}

	return domain.Intent{}, false
}

// confirmed checks the lagged window [Index-ConfirmBars, Index-1].
func (e *TrendEvaluator) confirmed(ctx *Context, side domain.Side) bool {
	for k := 1; k <= e.ConfirmBars; k++ {
		j := ctx.Index - k
		if j < 0 {
			return false
		}
		kijun := ctx.Features[j].Kijun
		if math.IsNaN(kijun) {
			return false
		}
		cl := ctx.Candles[j].Close
		if side == domain.SideLong && cl <= kijun {
			return false
		}
		if side == domain.SideShort && cl >= kijun {
			return false
		}
	}
	return true
}

func (e *TrendEvaluator) supertrendAgrees(f domain.Features, side domain.Side) bool {
	if !e.UseSupertrend {
		return true
	}
	switch side {
	case domain.SideLong:
		return f.Supertrend > 0
	case domain.SideShort:
		return f.Supertrend < 0
	default:
		return false
	}
}

func anyNaN(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

var _ Evaluator = (*TrendEvaluator)(nil)
