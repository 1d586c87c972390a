package simulation

import (
	"context"
	"fmt"

	"smc-lab/internal/domain"
	"smc-lab/internal/portfolio"
)

// PortfolioInput loads the series of cfg and resolves its higher-timeframe
// bias for a portfolio or optimizer run.
func (r *Runner) PortfolioInput(ctx context.Context, cfg domain.StrategyConfig) (portfolio.Input, error) {
	series, err := r.candleStore.Get(ctx, cfg.Symbol, cfg.Timeframe)
	if err != nil {
		return portfolio.Input{}, fmt.Errorf("load %s: %w", cfg.Key(), err)
	}
	if err := series.Validate(); err != nil {
		return portfolio.Input{}, fmt.Errorf("load %s: %w", cfg.Key(), err)
	}

	bias, err := r.ResolveBias(ctx, cfg, series)
	if err != nil {
		return portfolio.Input{}, fmt.Errorf("htf bias %s: %w", cfg.Key(), err)
	}

	return portfolio.Input{Config: cfg, Series: series, Bias: bias}, nil
}

// PortfolioInputs loads every config in order. The first failure aborts.
func (r *Runner) PortfolioInputs(ctx context.Context, cfgs []domain.StrategyConfig) ([]portfolio.Input, error) {
	inputs := make([]portfolio.Input, 0, len(cfgs))
	for _, cfg := range cfgs {
		in, err := r.PortfolioInput(ctx, cfg)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}
