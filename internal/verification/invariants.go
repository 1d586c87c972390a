package verification

import (
	"errors"
	"fmt"
	"strings"

	"smc-lab/internal/domain"
	"smc-lab/internal/structure"
)

// Invariant errors
var (
	ErrNonDeterministic    = errors.New("structure output differs between runs")
	ErrMitigationReverted  = errors.New("mitigation state changed after being set")
	ErrPivotViolation      = errors.New("pivot invariant violated")
	ErrPeakDecreased       = errors.New("running peak decreased")
	ErrNegativeDrawdown    = errors.New("drawdown below zero")
	ErrOpenAfterLiquidated = errors.New("position opened after liquidation")
	ErrDrawdownTarget      = errors.New("portfolio drawdown exceeds target")
	ErrSharedSymbol        = errors.New("selected strategies share a symbol")
)

// VerifyEngineDeterminism runs the structure engine runs times over the same
// candles and requires identical fingerprints.
func VerifyEngineDeterminism(candles []domain.Candle, p domain.StructureParams, runs int) error {
	var want string
	for r := 0; r < runs; r++ {
		res, err := structure.Analyze(candles, p)
		if err != nil {
			return err
		}
		got := res.Fingerprint()
		if r == 0 {
			want = got
			continue
		}
		if got != want {
			return fmt.Errorf("%w: run %d fingerprint %s, want %s", ErrNonDeterministic, r, got[:12], want[:12])
		}
	}
	return nil
}

// VerifyMitigationMonotonic replays candles bar by bar and checks that no
// order block or gap is ever removed or un-mitigated, and that a mitigation
// index never moves once recorded.
func VerifyMitigationMonotonic(candles []domain.Candle, p domain.StructureParams) error {
	e, err := structure.NewEngine(p)
	if err != nil {
		return err
	}

	var obs []domain.OrderBlock
	var gaps []domain.FairValueGap
	for i, c := range candles {
		e.Push(c)

		nextOBs := e.OrderBlocks()
		if len(nextOBs) < len(obs) {
			return fmt.Errorf("%w: order block arena shrank at bar %d", ErrMitigationReverted, i)
		}
		for k, prev := range obs {
			cur := nextOBs[k]
			if prev.Mitigated && (!cur.Mitigated || cur.MitigatedIndex != prev.MitigatedIndex) {
				return fmt.Errorf("%w: order block %d at bar %d", ErrMitigationReverted, k, i)
			}
		}

		nextGaps := e.FVGs()
		if len(nextGaps) < len(gaps) {
			return fmt.Errorf("%w: gap arena shrank at bar %d", ErrMitigationReverted, i)
		}
		for k, prev := range gaps {
			cur := nextGaps[k]
			if prev.Mitigated && (!cur.Mitigated || cur.MitigatedIndex != prev.MitigatedIndex) {
				return fmt.Errorf("%w: gap %d at bar %d", ErrMitigationReverted, k, i)
			}
		}

		obs, gaps = nextOBs, nextGaps
	}
	return nil
}

// VerifySinglePivot replays candles bar by bar and checks, per scope, that
// the tracked high and low pivots were confirmed at least one window before
// the current bar, that a crossed pivot is only re-armed by a new
// confirmation, and that each side breaks at most once per bar.
func VerifySinglePivot(candles []domain.Candle, p domain.StructureParams) error {
	e, err := structure.NewEngine(p)
	if err != nil {
		return err
	}

	scopes := []struct {
		scope  domain.Scope
		window int
	}{
		{domain.ScopeSwing, p.SwingLength},
		{domain.ScopeInternal, p.InternalLength},
	}
	prevHigh := make(map[domain.Scope]domain.Pivot)
	prevLow := make(map[domain.Scope]domain.Pivot)

	for i, c := range candles {
		step := e.Push(c)

		breaks := make(map[string]int)
		for _, ev := range step.Events {
			if ev.Kind == domain.KindBOS || ev.Kind == domain.KindCHoCH {
				breaks[ev.Scope.String()+ev.Bias.String()]++
			}
		}
		for k, n := range breaks {
			if n > 1 {
				return fmt.Errorf("%w: %d breaks of %s at bar %d", ErrPivotViolation, n, strings.ToLower(k), i)
			}
		}

		for _, s := range scopes {
			high, low := e.Pivots(s.scope)
			for _, pv := range []struct {
				name      string
				cur, prev domain.Pivot
			}{
				{"high", high, prevHigh[s.scope]},
				{"low", low, prevLow[s.scope]},
			} {
				if pv.cur.BarIndex >= 0 && pv.cur.BarIndex > i-s.window {
					return fmt.Errorf("%w: %s %s pivot at %d confirmed early at bar %d",
						ErrPivotViolation, s.scope, pv.name, pv.cur.BarIndex, i)
				}
				if pv.prev.Crossed && !pv.cur.Crossed && pv.cur.BarIndex == pv.prev.BarIndex {
					return fmt.Errorf("%w: %s %s pivot re-armed without confirmation at bar %d",
						ErrPivotViolation, s.scope, pv.name, i)
				}
			}
			prevHigh[s.scope], prevLow[s.scope] = high, low
		}
	}
	return nil
}

// VerifyPortfolio checks the equity curve and trade history of a portfolio run.
func VerifyPortfolio(res *domain.PortfolioResult) error {
	peak := res.StartCapital
	for i, pt := range res.EquityCurve {
		if pt.RunningPeak < peak {
			return fmt.Errorf("%w: %.4f -> %.4f at point %d", ErrPeakDecreased, peak, pt.RunningPeak, i)
		}
		if pt.DrawdownPct < 0 {
			return fmt.Errorf("%w: %.4f at point %d", ErrNegativeDrawdown, pt.DrawdownPct, i)
		}
		peak = pt.RunningPeak
	}

	if res.Liquidated {
		for _, t := range res.Trades {
			if t.EntryTime > res.LiquidationDate {
				return fmt.Errorf("%w: trade %s entered at %d, liquidated at %d",
					ErrOpenAfterLiquidated, t.TradeID, t.EntryTime, res.LiquidationDate)
			}
		}
		if n := len(res.EquityCurve); n > 0 && res.EquityCurve[n-1].Timestamp > res.LiquidationDate {
			return fmt.Errorf("%w: equity recorded after %d", ErrOpenAfterLiquidated, res.LiquidationDate)
		}
	}
	return nil
}

// VerifySelection checks the optimizer output: drawdown within target and
// one strategy per symbol.
func VerifySelection(sel *domain.Selection) error {
	if sel.Result != nil {
		if err := VerifyPortfolio(sel.Result); err != nil {
			return err
		}
		if sel.Result.MaxDrawdownPct > sel.TargetMaxDrawdownPct {
			return fmt.Errorf("%w: %.2f%% > %.2f%%", ErrDrawdownTarget, sel.Result.MaxDrawdownPct, sel.TargetMaxDrawdownPct)
		}
	}

	seen := make(map[string]bool, len(sel.Symbols))
	for _, s := range sel.Symbols {
		s = strings.ToUpper(s)
		if seen[s] {
			return fmt.Errorf("%w: %s", ErrSharedSymbol, s)
		}
		seen[s] = true
	}
	return nil
}
