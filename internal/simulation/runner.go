package simulation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"smc-lab/internal/domain"
	"smc-lab/internal/observability"
	"smc-lab/internal/resample"
	"smc-lab/internal/storage"
	"smc-lab/internal/strategy"
)

// Runner executes single-strategy backtests against stored candles.
type Runner struct {
	candleStore storage.CandleStore
	biasCache   *strategy.BiasCache
	tradeStore  storage.TradeStore
	resultStore storage.ResultStore
	log         logrus.FieldLogger
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	CandleStore storage.CandleStore
	BiasCache   *strategy.BiasCache // optional, owned by the caller
	TradeStore  storage.TradeStore  // optional
	ResultStore storage.ResultStore // optional
	Logger      logrus.FieldLogger
}

// NewRunner creates a simulation runner.
func NewRunner(opts RunnerOptions) *Runner {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Runner{
		candleStore: opts.CandleStore,
		biasCache:   opts.BiasCache,
		tradeStore:  opts.TradeStore,
		resultStore: opts.ResultStore,
		log:         log,
	}
}

// Run executes a backtest for one strategy config.
// Steps:
//  1. Load the series by symbol and timeframe
//  2. Resolve the higher-timeframe bias (stored series or resampled candles)
//  3. Simulate
//  4. Persist trades and result under runID when stores are configured
//
// A missing or malformed series yields a BAD_INPUT result together with the
// error. Store failures are returned as errors with a nil result.
func (r *Runner) Run(ctx context.Context, runID string, cfg domain.StrategyConfig) (*domain.StrategyResult, error) {
	started := time.Now()
	key := cfg.Key()
	log := r.log.WithFields(logrus.Fields{
		"run_id":       runID,
		"strategy_key": key,
		"mode":         cfg.Signal.Mode,
	})

	// 1. Load series
	series, err := r.candleStore.Get(ctx, cfg.Symbol, cfg.Timeframe)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.BadInputResult(key, cfg.Symbol, cfg.Timeframe, cfg.Risk.InitialCapital),
			fmt.Errorf("load %s: %w", key, err)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}

	// 2. Higher-timeframe bias
	bias, err := r.ResolveBias(ctx, cfg, series)
	if err != nil {
		return domain.BadInputResult(key, cfg.Symbol, cfg.Timeframe, cfg.Risk.InitialCapital),
			fmt.Errorf("htf bias %s: %w", key, err)
	}

	// 3. Simulate
	rep, simErr := Simulate(series, bias, cfg)
	res := rep.Result

	observability.RecordBacktest(string(res.Status), res.TradesCount, time.Since(started).Seconds())
	for reason, n := range rep.Skipped {
		observability.RecordSkipped(reason, n)
	}
	for _, ev := range rep.Events {
		observability.RecordStructureEvent(ev.Kind.String())
	}

	if simErr != nil {
		log.WithError(simErr).Warn("backtest rejected input")
		return res, simErr
	}

	skipped := 0
	for _, n := range rep.Skipped {
		skipped += n
	}
	log.WithFields(logrus.Fields{
		"status":      res.Status,
		"candles":     series.Len(),
		"events":      len(rep.Events),
		"trades":      res.TradesCount,
		"skipped":     skipped,
		"pnl_pct":     fmt.Sprintf("%.2f", res.TotalPnLPct),
		"max_dd_pct":  fmt.Sprintf("%.2f", res.MaxDrawdownPct),
		"end_capital": fmt.Sprintf("%.2f", res.EndCapital),
		"liquidated":  res.Liquidated,
	}).Info("backtest complete")

	// 4. Persist
	if runID != "" {
		if r.tradeStore != nil && len(res.Trades) > 0 {
			if err := r.tradeStore.InsertBulk(ctx, runID, res.Trades); err != nil {
				return nil, fmt.Errorf("store trades %s: %w", key, err)
			}
		}
		if r.resultStore != nil {
			if err := r.resultStore.Insert(ctx, runID, res); err != nil {
				return nil, fmt.Errorf("store result %s: %w", key, err)
			}
		}
	}

	observability.MarkSuccess(time.Now().Unix())
	return res, nil
}

// ResolveBias returns the bias lookup for cfg. An empty HTF timeframe
// disables the filter. A stored HTF series wins over resampling.
func (r *Runner) ResolveBias(ctx context.Context, cfg domain.StrategyConfig, ltf *domain.Series) (strategy.BiasLookup, error) {
	htf := cfg.Signal.HTFTimeframe
	if htf == "" {
		return strategy.FixedBias(domain.BiasNeutral), nil
	}

	var candles []domain.Candle
	stored, err := r.candleStore.Get(ctx, cfg.Symbol, htf)
	switch {
	case err == nil:
		candles = stored.Candles
	case errors.Is(err, storage.ErrNotFound):
		candles, err = resample.Aggregate(ltf.Candles, cfg.Timeframe, htf)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}
	if len(candles) == 0 {
		return strategy.FixedBias(domain.BiasNeutral), nil
	}

	if r.biasCache != nil {
		return r.biasCache.GetOrBuild(cfg.Symbol, htf, cfg.Structure, candles)
	}
	return strategy.BuildBiasSeries(candles, htf, cfg.Structure)
}
