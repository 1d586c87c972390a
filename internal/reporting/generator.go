package reporting

import (
	"context"
	"errors"
	"time"

	"smc-lab/internal/domain"
	"smc-lab/internal/metrics"
	"smc-lab/internal/optimizer"
	"smc-lab/internal/storage"
)

// ErrNoResults is returned when a run has no stored results.
var ErrNoResults = errors.New("no results for run")

// Generator produces reports from stored data.
type Generator struct {
	resultStore storage.ResultStore
	tradeStore  storage.TradeStore
	now         func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(resultStore storage.ResultStore, tradeStore storage.TradeStore) *Generator {
	return &Generator{
		resultStore: resultStore,
		tradeStore:  tradeStore,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces the report of one backtest run.
func (g *Generator) Generate(ctx context.Context, runID string) (*Report, error) {
	results, err := g.resultStore.GetByRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrNoResults
	}

	report := &Report{
		GeneratedAt: g.now(),
		RunID:       runID,
		Strategies:  make([]StrategyRow, 0, len(results)),
	}

	for _, res := range results {
		trades, err := g.tradeStore.GetByStrategyKey(ctx, runID, res.Key)
		if err != nil {
			return nil, err
		}
		report.Strategies = append(report.Strategies, StrategyRowOf(res, trades))
		summarize(&report.Summary, res, trades)
	}

	return report, nil
}

// summarize folds one result into the report summary.
func summarize(s *Summary, res *domain.StrategyResult, trades []domain.Trade) {
	s.StrategyCount++
	switch res.Status {
	case domain.StatusOK:
		s.OKCount++
	case domain.StatusInsufficientData:
		s.InsufficientCount++
	case domain.StatusBadInput:
		s.BadInputCount++
	}

	s.TotalTrades += len(trades)
	for _, t := range trades {
		if s.DateRangeStart == 0 || t.EntryTime < s.DateRangeStart {
			s.DateRangeStart = t.EntryTime
		}
		if t.ExitTime > s.DateRangeEnd {
			s.DateRangeEnd = t.ExitTime
		}
	}
}

// StrategyRowOf builds the table row of one strategy result. Trade
// statistics use the realized capital curve implied by the trades.
func StrategyRowOf(res *domain.StrategyResult, trades []domain.Trade) StrategyRow {
	curve := make([]domain.EquityPoint, 0, len(trades)+1)
	curve = append(curve, domain.EquityPoint{Equity: res.StartCapital})
	for _, t := range trades {
		curve = append(curve, domain.EquityPoint{Timestamp: t.ExitTime, Equity: t.CapitalAfter})
	}
	stats := metrics.Compute(trades, curve)

	return StrategyRow{
		Key:                  res.Key,
		Status:               string(res.Status),
		Trades:               res.TradesCount,
		WinRate:              res.WinRate,
		TotalPnLPct:          res.TotalPnLPct,
		EndCapital:           res.EndCapital,
		MaxDrawdownPct:       res.MaxDrawdownPct,
		ProfitFactor:         stats.ProfitFactor,
		PnLMean:              stats.PnLMean,
		PnLMedian:            stats.PnLMedian,
		PnLP10:               stats.PnLP10,
		PnLP90:               stats.PnLP90,
		MaxConsecutiveLosses: stats.MaxConsecutiveLosses,
		Sharpe:               stats.Sharpe,
		Liquidated:           res.Liquidated,
	}
}

// NewPortfolioSection describes an optimizer outcome. sel may be nil when no
// candidate survived.
func NewPortfolioSection(sel *domain.Selection, candidates []optimizer.Candidate) *PortfolioSection {
	section := &PortfolioSection{
		Candidates: make([]CandidateRow, 0, len(candidates)),
	}

	selected := make(map[string]bool)
	if sel != nil {
		section.RunID = sel.RunID
		section.Keys = sel.Keys
		section.Rounds = sel.Rounds
		section.TargetMaxDrawdownPct = sel.TargetMaxDrawdownPct
		for _, k := range sel.Keys {
			selected[k] = true
		}

		if res := sel.Result; res != nil {
			section.StartCapital = res.StartCapital
			section.EndCapital = res.EndCapital
			section.TotalPnLPct = res.TotalPnLPct
			section.Trades = res.TradeCount
			section.WinRate = res.WinRate
			section.MaxDrawdownPct = res.MaxDrawdownPct
			section.MaxDrawdownDate = res.MaxDrawdownDate
			section.Liquidated = res.Liquidated
			section.Sharpe = metrics.Compute(res.Trades, res.EquityCurve).Sharpe
		}
	}

	for _, c := range candidates {
		row := CandidateRow{
			Key:      c.Key,
			Rejected: c.Rejected,
			Selected: selected[c.Key],
		}
		if c.Result != nil {
			row.EndCapital = c.Result.EndCapital
			row.MaxDrawdownPct = c.Result.MaxDrawdownPct
			row.Liquidated = c.Result.Liquidated
		}
		section.Candidates = append(section.Candidates, row)
	}

	return section
}
