package decision

import (
	"fmt"

	"smc-lab/internal/domain"
)

// Evaluator applies pruning thresholds to simulated candidates.
type Evaluator struct {
	thresholds Thresholds
}

// NewEvaluator creates a new decision evaluator.
func NewEvaluator(t Thresholds) (*Evaluator, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &Evaluator{thresholds: t}, nil
}

// Thresholds returns the configured limits.
func (e *Evaluator) Thresholds() Thresholds {
	return e.thresholds
}

// Evaluate produces a Result from Input.
// KEEP if every criterion passes, PRUNE otherwise. Disabled criteria always pass.
func (e *Evaluator) Evaluate(input Input) (*Result, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	t := e.thresholds
	criteria := []CriterionResult{
		{
			Name:      "Not liquidated",
			Threshold: "false",
			Actual:    fmt.Sprintf("%t", input.Liquidated),
			Pass:      !input.Liquidated,
		},
		{
			Name:      "Trades count",
			Threshold: fmt.Sprintf(">= %d", t.MinTrades),
			Actual:    fmt.Sprintf("%d", input.TradesCount),
			Pass:      input.TradesCount >= t.MinTrades,
		},
		{
			Name:      "Win rate",
			Threshold: fmt.Sprintf(">= %.2f%%", t.MinWinRate*100),
			Actual:    fmt.Sprintf("%.2f%%", input.WinRatePct),
			Pass:      input.WinRatePct >= t.MinWinRate*100,
		},
		{
			Name:      "Max drawdown",
			Threshold: maxDrawdownThreshold(t.MaxDrawdown),
			Actual:    fmt.Sprintf("%.2f%%", input.MaxDrawdownPct),
			Pass:      t.MaxDrawdown == 0 || input.MaxDrawdownPct <= t.MaxDrawdown*100,
		},
	}

	verdict := VerdictKeep
	for _, c := range criteria {
		if !c.Pass {
			verdict = VerdictPrune
			break
		}
	}

	return &Result{Key: input.Key, Verdict: verdict, Criteria: criteria}, nil
}

// EvaluateStrategy evaluates a single-strategy result.
func (e *Evaluator) EvaluateStrategy(res *domain.StrategyResult) (*Result, error) {
	return e.Evaluate(FromStrategyResult(res))
}

// EvaluatePortfolio evaluates a portfolio result under key.
func (e *Evaluator) EvaluatePortfolio(key string, res *domain.PortfolioResult) (*Result, error) {
	return e.Evaluate(FromPortfolioResult(key, res))
}

// FromStrategyResult builds Input from a strategy result.
func FromStrategyResult(res *domain.StrategyResult) Input {
	return Input{
		Key:            res.Key,
		TradesCount:    res.TradesCount,
		WinRatePct:     res.WinRate,
		MaxDrawdownPct: res.MaxDrawdownPct,
		Liquidated:     res.Liquidated,
	}
}

// FromPortfolioResult builds Input from a portfolio result.
func FromPortfolioResult(key string, res *domain.PortfolioResult) Input {
	return Input{
		Key:            key,
		TradesCount:    res.TradeCount,
		WinRatePct:     res.WinRate,
		MaxDrawdownPct: res.MaxDrawdownPct,
		Liquidated:     res.Liquidated,
	}
}

func maxDrawdownThreshold(v float64) string {
	if v == 0 {
		return "disabled"
	}
	return fmt.Sprintf("<= %.2f%%", v*100)
}
