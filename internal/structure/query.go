package structure

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"smc-lab/internal/domain"
)

func (e *Engine) scope(sc domain.Scope) *scope {
	if sc == domain.ScopeSwing {
		return &e.swing
	}
	return &e.internal
}

// Trend returns the trend of a scope after the last processed bar.
func (e *Engine) Trend(sc domain.Scope) domain.Bias {
	return e.scope(sc).trend
}

// Leg returns the current leg of a scope.
func (e *Engine) Leg(sc domain.Scope) domain.Leg {
	return e.scope(sc).leg
}

// Pivots returns copies of the high and low pivot of a scope.
func (e *Engine) Pivots(sc domain.Scope) (high, low domain.Pivot) {
	s := e.scope(sc)
	return s.high, s.low
}

func (e *Engine) orderBlock(idx int) domain.OrderBlock {
	ob := e.obs[idx]
	ob.MitigatedIndex = e.obMitigatedAt[idx]
	ob.Mitigated = ob.MitigatedIndex >= 0
	return ob
}

func (e *Engine) fvg(idx int) domain.FairValueGap {
	g := e.fvgs[idx]
	g.MitigatedIndex = e.fvgMitigatedAt[idx]
	g.Mitigated = g.MitigatedIndex >= 0
	return g
}

// OrderBlocks returns every block created so far in creation order.
func (e *Engine) OrderBlocks() []domain.OrderBlock {
	out := make([]domain.OrderBlock, len(e.obs))
	for i := range e.obs {
		out[i] = e.orderBlock(i)
	}
	return out
}

// FVGs returns every gap created so far in creation order.
func (e *Engine) FVGs() []domain.FairValueGap {
	out := make([]domain.FairValueGap, len(e.fvgs))
	for i := range e.fvgs {
		out[i] = e.fvg(i)
	}
	return out
}

// ActiveOrderBlocks returns unmitigated blocks in creation order.
func (e *Engine) ActiveOrderBlocks() []domain.OrderBlock {
	out := make([]domain.OrderBlock, 0, len(e.activeOBs))
	for _, idx := range e.activeOBs {
		out = append(out, e.orderBlock(idx))
	}
	return out
}

// ActiveFVGs returns unmitigated gaps in creation order.
func (e *Engine) ActiveFVGs() []domain.FairValueGap {
	out := make([]domain.FairValueGap, 0, len(e.activeFVGs))
	for _, idx := range e.activeFVGs {
		out = append(out, e.fvg(idx))
	}
	return out
}

// Events returns a copy of the event log.
func (e *Engine) Events() []domain.StructureEvent {
	return append([]domain.StructureEvent(nil), e.events...)
}

// Result is the full output of a structure run.
type Result struct {
	Events        []domain.StructureEvent
	OrderBlocks   []domain.OrderBlock
	FVGs          []domain.FairValueGap
	SwingTrend    domain.Bias
	InternalTrend domain.Bias
}

// Result snapshots the engine state.
func (e *Engine) Result() *Result {
	return &Result{
		Events:        e.Events(),
		OrderBlocks:   e.OrderBlocks(),
		FVGs:          e.FVGs(),
		SwingTrend:    e.swing.trend,
		InternalTrend: e.internal.trend,
	}
}

// Analyze runs a fresh engine over candles.
func Analyze(candles []domain.Candle, p domain.StructureParams) (*Result, error) {
	e, err := NewEngine(p)
	if err != nil {
		return nil, err
	}
	for _, c := range candles {
		e.Push(c)
	}
	return e.Result(), nil
}

// Fingerprint returns a SHA256 digest over the canonical encoding of the result.
// Identical inputs and params always produce identical fingerprints.
func (r *Result) Fingerprint() string {
	h := sha256.New()
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

	for _, ev := range r.Events {
		fmt.Fprintf(h, "E|%d|%d|%s|%s|%s|%s|%d\n",
			ev.Time, ev.Index, ev.Kind, ev.Scope, ev.Bias, f(ev.Level), ev.Ref)
	}
	for _, ob := range r.OrderBlocks {
		fmt.Fprintf(h, "O|%s|%s|%d|%d|%s|%s|%d|%d\n",
			f(ob.BarHigh), f(ob.BarLow), ob.BarTime, ob.BarIndex, ob.Bias, ob.Scope, ob.CreatedIndex, ob.MitigatedIndex)
	}
	for _, g := range r.FVGs {
		fmt.Fprintf(h, "G|%s|%s|%s|%d|%d|%d\n",
			f(g.Top), f(g.Bottom), g.Bias, g.StartTime, g.Index, g.MitigatedIndex)
	}
	fmt.Fprintf(h, "T|%s|%s\n", r.SwingTrend, r.InternalTrend)

	return hex.EncodeToString(h.Sum(nil))
}
