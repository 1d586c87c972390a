// Package structure detects swing/internal pivots, BOS/CHoCH breaks,
// order blocks and fair value gaps over an OHLC series.
package structure

import (
	"errors"
	"fmt"
	"math"

	"smc-lab/internal/domain"
)

// ErrInvalidParams is returned for non-positive windows or an unset mitigation mode.
var ErrInvalidParams = errors.New("invalid structure params")

// Default parameter values.
const (
	DefaultSwingLength    = 50
	DefaultInternalLength = 5
)

// DefaultParams returns swing 50, internal 5, HighLow mitigation.
func DefaultParams() domain.StructureParams {
	return domain.StructureParams{
		SwingLength:    DefaultSwingLength,
		InternalLength: DefaultInternalLength,
		Mitigation:     domain.MitigationHighLow,
	}
}

// ValidateParams checks windows and the mitigation mode.
func ValidateParams(p domain.StructureParams) error {
	if p.SwingLength < 1 {
		return fmt.Errorf("%w: swing length must be positive, got %d", ErrInvalidParams, p.SwingLength)
	}
	if p.InternalLength < 1 {
		return fmt.Errorf("%w: internal length must be positive, got %d", ErrInvalidParams, p.InternalLength)
	}
	if !p.Mitigation.IsValid() {
		return fmt.Errorf("%w: mitigation mode must be Close or HighLow", ErrInvalidParams)
	}
	return nil
}

// scope is the pivot/trend state of one window size.
type scope struct {
	kind   domain.Scope
	window int
	leg    domain.Leg
	high   domain.Pivot
	low    domain.Pivot
	trend  domain.Bias
}

func newScope(kind domain.Scope, window int) scope {
	return scope{
		kind:   kind,
		window: window,
		leg:    domain.LegNone,
		high:   newPivot(),
		low:    newPivot(),
		trend:  domain.BiasNeutral,
	}
}

func newPivot() domain.Pivot {
	return domain.Pivot{
		CurrentLevel: math.NaN(),
		LastLevel:    math.NaN(),
		BarIndex:     -1,
	}
}

// Engine is an incremental market structure detector.
//
// Order blocks and gaps live in append-only arenas addressed by index.
// Records are never modified after insertion; mitigation is tracked in a
// parallel slice holding the bar index of mitigation (-1 while active).
// An Engine has a single writer (Push) and is not safe for concurrent use.
type Engine struct {
	params domain.StructureParams

	highs  []float64
	lows   []float64
	closes []float64
	times  []int64

	internal scope
	swing    scope

	obs           []domain.OrderBlock
	obMitigatedAt []int
	activeOBs     []int

	fvgs           []domain.FairValueGap
	fvgMitigatedAt []int
	activeFVGs     []int

	events []domain.StructureEvent
}

// NewEngine creates an engine. Returns ErrInvalidParams on bad params.
func NewEngine(p domain.StructureParams) (*Engine, error) {
	if err := ValidateParams(p); err != nil {
		return nil, err
	}
	return &Engine{
		params:   p,
		internal: newScope(domain.ScopeInternal, p.InternalLength),
		swing:    newScope(domain.ScopeSwing, p.SwingLength),
	}, nil
}

// Params returns the engine parameters.
func (e *Engine) Params() domain.StructureParams {
	return e.params
}

// Len returns the number of bars processed.
func (e *Engine) Len() int {
	return len(e.closes)
}

// Step summarizes one processed bar.
type Step struct {
	Index  int
	Events []domain.StructureEvent // events emitted on this bar
}

// Push processes the next bar. Steps run in a fixed order:
//  1. gap mitigation
//  2. leg detection (swing, then internal)
//  3. break detection (internal, then swing)
//  4. order block mitigation
//  5. gap detection
//
// Steps lacking history for their lookback are skipped for this bar.
func (e *Engine) Push(c domain.Candle) Step {
	i := len(e.closes)
	e.highs = append(e.highs, c.High)
	e.lows = append(e.lows, c.Low)
	e.closes = append(e.closes, c.Close)
	e.times = append(e.times, c.Timestamp)

	first := len(e.events)

	e.mitigateFVGs(i, c)
	e.detectLeg(&e.swing, i)
	e.detectLeg(&e.internal, i)
	e.detectBreaks(&e.internal, i)
	e.detectBreaks(&e.swing, i)
	e.mitigateOrderBlocks(i, c)
	e.detectFVG(i)

	return Step{
		Index:  i,
		Events: append([]domain.StructureEvent(nil), e.events[first:]...),
	}
}

func (e *Engine) mitigateFVGs(i int, c domain.Candle) {
	kept := e.activeFVGs[:0]
	for _, idx := range e.activeFVGs {
		g := &e.fvgs[idx]
		hit := false
		switch g.Bias {
		case domain.BiasBullish:
			hit = c.Low < g.Bottom
		case domain.BiasBearish:
			hit = c.High > g.Top
		case domain.BiasNeutral:
		}
		if hit {
			e.fvgMitigatedAt[idx] = i
			continue
		}
		kept = append(kept, idx)
	}
	e.activeFVGs = kept
}

// detectLeg compares the candidate bar at i-window against the trailing
// window ending at i and updates the pivot on a leg flip.
func (e *Engine) detectLeg(s *scope, i int) {
	w := s.window
	if i < w {
		return
	}
	cand := i - w

	hh := math.Inf(-1)
	ll := math.Inf(1)
	for j := cand + 1; j <= i; j++ {
		if e.highs[j] > hh {
			hh = e.highs[j]
		}
		if e.lows[j] < ll {
			ll = e.lows[j]
		}
	}

	leg := s.leg
	if e.highs[cand] > hh {
		leg = domain.LegBearish
	} else if e.lows[cand] < ll {
		leg = domain.LegBullish
	}
	if leg == s.leg {
		return
	}
	s.leg = leg

	switch leg {
	case domain.LegBearish:
		updatePivot(&s.high, e.highs[cand], e.times[cand], cand)
	case domain.LegBullish:
		updatePivot(&s.low, e.lows[cand], e.times[cand], cand)
	case domain.LegNone:
	}
}

func updatePivot(p *domain.Pivot, level float64, barTime int64, barIndex int) {
	p.LastLevel = p.CurrentLevel
	p.CurrentLevel = level
	p.BarTime = barTime
	p.BarIndex = barIndex
	p.Crossed = false
}

func (e *Engine) detectBreaks(s *scope, i int) {
	cl := e.closes[i]

	if s.high.Active() && cl > s.high.CurrentLevel {
		kind := domain.KindBOS
		if s.trend == domain.BiasBearish {
			kind = domain.KindCHoCH
		}
		s.high.Crossed = true
		s.trend = domain.BiasBullish
		ref := e.storeOrderBlock(s.kind, s.high.BarIndex, i, domain.BiasBullish)
		e.events = append(e.events, domain.StructureEvent{
			Time:  e.times[i],
			Index: i,
			Kind:  kind,
			Scope: s.kind,
			Bias:  domain.BiasBullish,
			Level: s.high.CurrentLevel,
			Ref:   ref,
		})
	}

	if s.low.Active() && cl < s.low.CurrentLevel {
		kind := domain.KindBOS
		if s.trend == domain.BiasBullish {
			kind = domain.KindCHoCH
		}
		s.low.Crossed = true
		s.trend = domain.BiasBearish
		ref := e.storeOrderBlock(s.kind, s.low.BarIndex, i, domain.BiasBearish)
		e.events = append(e.events, domain.StructureEvent{
			Time:  e.times[i],
			Index: i,
			Kind:  kind,
			Scope: s.kind,
			Bias:  domain.BiasBearish,
			Level: s.low.CurrentLevel,
			Ref:   ref,
		})
	}
}

// storeOrderBlock appends the block implicated by a break at bar i.
// Bullish breaks take the bar with the highest high in [from, i);
// bearish breaks take the bar with the lowest low. First match wins on ties.
func (e *Engine) storeOrderBlock(sc domain.Scope, from, i int, bias domain.Bias) int {
	if from < 0 || from >= i {
		return -1
	}

	best := from
	for j := from + 1; j < i; j++ {
		if bias == domain.BiasBullish && e.highs[j] > e.highs[best] {
			best = j
		}
		if bias == domain.BiasBearish && e.lows[j] < e.lows[best] {
			best = j
		}
	}

	idx := len(e.obs)
	e.obs = append(e.obs, domain.OrderBlock{
		BarHigh:        e.highs[best],
		BarLow:         e.lows[best],
		BarTime:        e.times[best],
		BarIndex:       best,
		Bias:           bias,
		Scope:          sc,
		CreatedIndex:   i,
		MitigatedIndex: -1,
	})
	e.obMitigatedAt = append(e.obMitigatedAt, -1)
	e.activeOBs = append(e.activeOBs, idx)
	return idx
}

// mitigateOrderBlocks checks blocks created on earlier bars.
func (e *Engine) mitigateOrderBlocks(i int, c domain.Candle) {
	srcHigh, srcLow := c.High, c.Low
	if e.params.Mitigation == domain.MitigationClose {
		srcHigh, srcLow = c.Close, c.Close
	}

	kept := e.activeOBs[:0]
	for _, idx := range e.activeOBs {
		ob := &e.obs[idx]
		if ob.CreatedIndex < i {
			hit := false
			switch ob.Bias {
			case domain.BiasBearish:
				hit = srcHigh > ob.BarHigh
			case domain.BiasBullish:
				hit = srcLow < ob.BarLow
			case domain.BiasNeutral:
			}
			if hit {
				e.obMitigatedAt[idx] = i
				continue
			}
		}
		kept = append(kept, idx)
	}
	e.activeOBs = kept
}

// detectFVG compares bars i, i-1 and i-2.
func (e *Engine) detectFVG(i int) {
	if i < 2 {
		return
	}
	h2, l2 := e.highs[i-2], e.lows[i-2]
	c1 := e.closes[i-1]

	var g domain.FairValueGap
	var level float64
	switch {
	case e.lows[i] > h2 && c1 > h2:
		g = domain.FairValueGap{Top: e.lows[i], Bottom: h2, Bias: domain.BiasBullish}
		level = h2
	case e.highs[i] < l2 && c1 < l2:
		g = domain.FairValueGap{Top: l2, Bottom: e.highs[i], Bias: domain.BiasBearish}
		level = l2
	default:
		return
	}
	g.StartTime = e.times[i]
	g.Index = i
	g.MitigatedIndex = -1

	idx := len(e.fvgs)
	e.fvgs = append(e.fvgs, g)
	e.fvgMitigatedAt = append(e.fvgMitigatedAt, -1)
	e.activeFVGs = append(e.activeFVGs, idx)

	// Level is the price of the bar the gap jumped over.
	e.events = append(e.events, domain.StructureEvent{
		Time:  e.times[i],
		Index: i,
		Kind:  domain.KindFVG,
		Scope: domain.ScopeInternal,
		Bias:  g.Bias,
		Level: level,
		Ref:   idx,
	})
}
