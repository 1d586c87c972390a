// Package portfolio simulates several strategies over one merged timeline
// sharing a single equity and margin pool.
package portfolio

import (
	"context"
	"errors"
	"fmt"

	"smc-lab/internal/domain"
	"smc-lab/internal/position"
	"smc-lab/internal/replay"
	"smc-lab/internal/strategy"
)

// Portfolio errors
var (
	ErrNoInputs     = errors.New("portfolio has no strategies")
	ErrDuplicateKey = errors.New("strategy key appears more than once")
	ErrNoCapital    = errors.New("initial capital must be positive")
)

// errLiquidated halts the replay once equity is exhausted.
var errLiquidated = errors.New("portfolio liquidated")

// Input is one strategy of a portfolio run. Series and Bias are shared
// read-only; every run builds its own pipeline and positions.
type Input struct {
	Config   domain.StrategyConfig
	Series   *domain.Series
	Bias     strategy.BiasLookup // nil means neutral
	Features []domain.Features   // optional, computed when nil
}

// Key returns the strategy key of the input.
func (in Input) Key() string {
	return in.Config.Key()
}

// Params configures a portfolio run.
type Params struct {
	InitialCapital float64 // shared equity; 0 takes the first input's risk capital
}

// Simulator is the replay engine of one portfolio run.
// It is single-threaded and owned by the run that created it.
type Simulator struct {
	inputs []Input
	pipes  []*strategy.Pipeline
	active []bool // false when the series is shorter than the strategy lookback

	open      []*position.Position
	lastClose []float64
	seen      []bool

	start       float64
	realized    float64
	peak        float64
	maxDD       float64
	maxDDDate   int64
	liquidated  bool
	liqDate     int64
	wins        int
	curve       []domain.EquityPoint
	trades      []domain.Trade
	marginInUse float64
}

// NewSimulator validates the inputs and prepares one pipeline per strategy.
func NewSimulator(inputs []Input, p Params) (*Simulator, error) {
	if len(inputs) == 0 {
		return nil, ErrNoInputs
	}

	start := p.InitialCapital
	if start == 0 {
		start = inputs[0].Config.Risk.InitialCapital
	}
	if !(start > 0) {
		return nil, ErrNoCapital
	}

	s := &Simulator{
		inputs:    inputs,
		pipes:     make([]*strategy.Pipeline, len(inputs)),
		active:    make([]bool, len(inputs)),
		open:      make([]*position.Position, len(inputs)),
		lastClose: make([]float64, len(inputs)),
		seen:      make([]bool, len(inputs)),
		start:     start,
		realized:  start,
		peak:      start,
	}

	keys := make(map[string]struct{}, len(inputs))
	for i, in := range inputs {
		key := in.Key()
		if _, dup := keys[key]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateKey, key)
		}
		keys[key] = struct{}{}

		if in.Series == nil {
			return nil, fmt.Errorf("%s: %w", key, domain.ErrEmptySeries)
		}
		if err := in.Series.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		pipe, err := strategy.NewPipeline(in.Config, in.Series.Candles, in.Features, in.Bias)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		s.pipes[i] = pipe
		s.active[i] = in.Series.Len() >= strategy.MinBars(in.Config)
	}
	return s, nil
}

// OnStep implements replay.ReplayEngine. Per timestamp:
//
//	(a) advance open positions that have a candle at this step
//	(b) evaluate flat strategies present at this step and open accepted
//	    signals while total margin fits in realized equity
//	(c) record equity = realized + unrealized at last known prices
//	(d) update peak, drawdown and liquidation
func (s *Simulator) OnStep(_ context.Context, step *replay.Step) error {
	if s.liquidated {
		return errLiquidated
	}

	for _, b := range step.Bars {
		s.lastClose[b.Series] = s.inputs[b.Series].Series.Candles[b.Index].Close
		s.seen[b.Series] = true
	}

	// (a) existing positions
	for _, b := range step.Bars {
		pos := s.open[b.Series]
		if pos == nil {
			continue
		}
		if pos.Update(s.inputs[b.Series].Series.Candles[b.Index]) {
			s.settle(pos)
			s.open[b.Series] = nil
		}
	}

	// (b) new positions
	if s.realized > 0 {
		for _, b := range step.Bars {
			if s.open[b.Series] != nil || !s.active[b.Series] {
				continue
			}
			s.tryOpen(b)
		}
	}

	// (c) equity point
	equity := s.realized
	for i, pos := range s.open {
		if pos != nil && s.seen[i] {
			equity += pos.UnrealizedPnL(s.lastClose[i])
		}
	}

	// (d) peak, drawdown, liquidation
	if equity > s.peak {
		s.peak = equity
	}
	var dd float64
	if s.peak > 0 {
		dd = (s.peak - equity) / s.peak
		if dd < 0 {
			dd = 0
		}
	}
	if dd > s.maxDD {
		s.maxDD = dd
		s.maxDDDate = step.Timestamp
	}
	s.curve = append(s.curve, domain.EquityPoint{
		Timestamp:   step.Timestamp,
		Equity:      equity,
		RunningPeak: s.peak,
		DrawdownPct: dd * 100,
	})

	if equity <= 0 {
		s.liquidated = true
		s.liqDate = step.Timestamp
		return errLiquidated
	}
	return nil
}

func (s *Simulator) tryOpen(b replay.Bar) {
	in := s.inputs[b.Series]
	pipe := s.pipes[b.Series]

	intent, ok := pipe.Signal(b.Index)
	if !ok {
		return
	}
	atr := pipe.Features()[b.Index].ATR
	plan, err := position.Size(intent.Side, intent.ReferencePrice, atr, s.realized, in.Config.Risk)
	if err != nil {
		return
	}
	if s.marginInUse+plan.Margin > s.realized {
		return
	}

	s.open[b.Series] = position.Open(in.Key(), in.Config.Symbol, plan, intent.Time, in.Config.Risk)
	s.marginInUse += plan.Margin
}

func (s *Simulator) settle(pos *position.Position) {
	trade, _ := pos.Trade()
	s.realized += trade.PnL
	trade.CapitalAfter = s.realized
	s.marginInUse -= pos.Margin()
	if s.marginInUse < 0 {
		s.marginInUse = 0
	}
	if trade.IsWin() {
		s.wins++
	}
	s.trades = append(s.trades, trade)
}

// Result builds the portfolio record. End capital is realized capital;
// a liquidated portfolio ends at zero.
func (s *Simulator) Result() *domain.PortfolioResult {
	keys := make([]string, len(s.inputs))
	for i, in := range s.inputs {
		keys[i] = in.Key()
	}

	end := s.realized
	if s.liquidated {
		end = 0
	}
	var winRate float64
	if len(s.trades) > 0 {
		winRate = float64(s.wins) / float64(len(s.trades)) * 100
	}

	res := &domain.PortfolioResult{
		Keys:            keys,
		StartCapital:    s.start,
		EndCapital:      end,
		TotalPnLPct:     (end/s.start - 1) * 100,
		TradeCount:      len(s.trades),
		WinRate:         winRate,
		MaxDrawdownPct:  s.maxDD * 100,
		MaxDrawdownDate: s.maxDDDate,
		Liquidated:      s.liquidated,
		EquityCurve:     s.curve,
		Trades:          s.trades,
	}
	if s.liquidated {
		res.LiquidationDate = s.liqDate
	}
	return res
}

// OpenPositions returns the number of positions still open.
func (s *Simulator) OpenPositions() int {
	n := 0
	for _, pos := range s.open {
		if pos != nil {
			n++
		}
	}
	return n
}

// Simulate runs a portfolio over the merged timeline of its inputs.
// It is pure and deterministic for fixed inputs.
func Simulate(inputs []Input, p Params) (*domain.PortfolioResult, error) {
	sim, err := NewSimulator(inputs, p)
	if err != nil {
		return nil, err
	}

	series := make([][]domain.Candle, len(inputs))
	for i, in := range inputs {
		series[i] = in.Series.Candles
	}
	if err := replay.Replay(context.Background(), sim, series...); err != nil && !errors.Is(err, errLiquidated) {
		return nil, err
	}
	return sim.Result(), nil
}

var _ replay.ReplayEngine = (*Simulator)(nil)
