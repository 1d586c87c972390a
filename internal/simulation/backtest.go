package simulation

import (
	"fmt"

	"smc-lab/internal/domain"
	"smc-lab/internal/position"
	"smc-lab/internal/strategy"
)

// Report is the detailed output of one backtest.
type Report struct {
	Result  *domain.StrategyResult
	Events  []domain.StructureEvent
	Skipped map[string]int // accepted signals that could not be sized, by reason
}

// Backtest runs one strategy over one series and returns its result record.
// See Simulate for the status semantics.
func Backtest(series *domain.Series, bias strategy.BiasLookup, cfg domain.StrategyConfig) (*domain.StrategyResult, error) {
	rep, err := Simulate(series, bias, cfg)
	return rep.Result, err
}

// Simulate replays a series bar by bar through the strategy pipeline and a
// single position simulator. It is pure and deterministic.
//
// Status semantics:
//   - malformed or empty series, or an invalid config: BAD_INPUT result plus the wrapped error
//   - fewer candles than the strategy lookback: INSUFFICIENT_DATA result, nil error
//   - otherwise OK
//
// Entries fill at the close of the signal bar; the position is first
// updated on the next bar. A position still open when data ends is not
// counted. After liquidation no further positions open.
func Simulate(series *domain.Series, bias strategy.BiasLookup, cfg domain.StrategyConfig) (*Report, error) {
	key := cfg.Key()
	start := cfg.Risk.InitialCapital
	rep := &Report{Skipped: make(map[string]int)}

	if series == nil {
		rep.Result = domain.BadInputResult(key, cfg.Symbol, cfg.Timeframe, start)
		return rep, fmt.Errorf("%s: %w", key, domain.ErrEmptySeries)
	}
	if err := series.Validate(); err != nil {
		rep.Result = domain.BadInputResult(key, cfg.Symbol, cfg.Timeframe, start)
		return rep, fmt.Errorf("%s: %w", key, err)
	}
	if _, err := strategy.FromConfig(cfg); err != nil {
		rep.Result = domain.BadInputResult(key, cfg.Symbol, cfg.Timeframe, start)
		return rep, fmt.Errorf("%s: %w", key, err)
	}

	candles := series.Candles
	if len(candles) < strategy.MinBars(cfg) {
		rep.Result = domain.InsufficientDataResult(key, cfg.Symbol, cfg.Timeframe, start)
		return rep, nil
	}

	pipe, err := strategy.NewPipeline(cfg, candles, nil, bias)
	if err != nil {
		rep.Result = domain.BadInputResult(key, cfg.Symbol, cfg.Timeframe, start)
		return rep, fmt.Errorf("%s: %w", key, err)
	}
	feats := pipe.Features()

	acc := position.NewAccount(start)
	var pos *position.Position
	var trades []domain.Trade

	for i, c := range candles {
		pipe.Advance(i)

		if pos != nil && pos.Update(c) {
			trade, _ := pos.Trade()
			acc.Settle(&trade)
			trades = append(trades, trade)
			pos = nil
		}
		if pos != nil || !acc.CanOpen() {
			continue
		}

		intent, ok := pipe.Signal(i)
		if !ok {
			continue
		}
		plan, err := position.Size(intent.Side, intent.ReferencePrice, feats[i].ATR, acc.Capital(), cfg.Risk)
		if err != nil {
			rep.Skipped[position.RejectReason(err)]++
			continue
		}
		pos = position.Open(key, cfg.Symbol, plan, c.Timestamp, cfg.Risk)
	}

	liquidated, _ := acc.Liquidated()
	rep.Events = pipe.Engine().Events()
	rep.Result = &domain.StrategyResult{
		Key:            key,
		Symbol:         cfg.Symbol,
		Timeframe:      cfg.Timeframe,
		Status:         domain.StatusOK,
		StartCapital:   start,
		EndCapital:     acc.Capital(),
		TotalPnLPct:    acc.TotalPnLPct(),
		TradesCount:    acc.TradesCount(),
		WinRate:        acc.WinRate(),
		MaxDrawdownPct: acc.MaxDrawdown() * 100,
		Liquidated:     liquidated,
		Trades:         trades,
	}
	return rep, nil
}
