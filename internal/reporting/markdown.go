package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Backtest Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	if r.RunID != "" {
		sb.WriteString(fmt.Sprintf("Run: %s\n\n", r.RunID))
	}

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Strategies | %d |\n", r.Summary.StrategyCount))
	sb.WriteString(fmt.Sprintf("| OK | %d |\n", r.Summary.OKCount))
	sb.WriteString(fmt.Sprintf("| Insufficient Data | %d |\n", r.Summary.InsufficientCount))
	sb.WriteString(fmt.Sprintf("| Bad Input | %d |\n", r.Summary.BadInputCount))
	sb.WriteString(fmt.Sprintf("| Total Trades | %d |\n", r.Summary.TotalTrades))
	sb.WriteString(fmt.Sprintf("| Date Range Start (ms) | %d |\n", r.Summary.DateRangeStart))
	sb.WriteString(fmt.Sprintf("| Date Range End (ms) | %d |\n", r.Summary.DateRangeEnd))
	sb.WriteString("\n")

	// Strategy Results
	sb.WriteString("## Strategy Results\n\n")
	if len(r.Strategies) > 0 {
		sb.WriteString("| Key | Status | Trades | WinRate | PnL% | MaxDD% | PF | Mean | Median | P10 | P90 | MaxLoss | Sharpe |\n")
		sb.WriteString("|-----|--------|--------|---------|------|--------|----|------|--------|-----|-----|---------|--------|\n")
		for _, s := range r.Strategies {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %.2f | %.2f | %.2f | %.2f | %.4f | %.4f | %.4f | %.4f | %d | %.3f |\n",
				s.Key, s.Status, s.Trades, s.WinRate, s.TotalPnLPct, s.MaxDrawdownPct, s.ProfitFactor,
				s.PnLMean, s.PnLMedian, s.PnLP10, s.PnLP90, s.MaxConsecutiveLosses, s.Sharpe))
		}
	} else {
		sb.WriteString("No strategy results available.\n")
	}
	sb.WriteString("\n")

	if r.Portfolio != nil {
		renderPortfolio(&sb, r.Portfolio)
	}

	return sb.String()
}

func renderPortfolio(sb *strings.Builder, p *PortfolioSection) {
	sb.WriteString("## Portfolio Selection\n\n")
	if len(p.Keys) == 0 {
		sb.WriteString("No strategy satisfies the drawdown target.\n\n")
	} else {
		sb.WriteString(fmt.Sprintf("Selected: %s\n\n", strings.Join(p.Keys, ", ")))
		sb.WriteString("| Metric | Value |\n")
		sb.WriteString("|--------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Run | %s |\n", p.RunID))
		sb.WriteString(fmt.Sprintf("| Rounds | %d |\n", p.Rounds))
		sb.WriteString(fmt.Sprintf("| Target MaxDD%% | %.2f |\n", p.TargetMaxDrawdownPct))
		sb.WriteString(fmt.Sprintf("| Start Capital | %.2f |\n", p.StartCapital))
		sb.WriteString(fmt.Sprintf("| End Capital | %.2f |\n", p.EndCapital))
		sb.WriteString(fmt.Sprintf("| PnL%% | %.2f |\n", p.TotalPnLPct))
		sb.WriteString(fmt.Sprintf("| Trades | %d |\n", p.Trades))
		sb.WriteString(fmt.Sprintf("| WinRate | %.2f |\n", p.WinRate))
		sb.WriteString(fmt.Sprintf("| MaxDD%% | %.2f |\n", p.MaxDrawdownPct))
		sb.WriteString(fmt.Sprintf("| MaxDD Date (ms) | %d |\n", p.MaxDrawdownDate))
		sb.WriteString(fmt.Sprintf("| Sharpe | %.3f |\n", p.Sharpe))
		sb.WriteString("\n")
	}

	sb.WriteString("### Candidates\n\n")
	if len(p.Candidates) == 0 {
		sb.WriteString("No candidates evaluated.\n\n")
		return
	}
	sb.WriteString("| Key | End Capital | MaxDD% | Liquidated | Status |\n")
	sb.WriteString("|-----|-------------|--------|------------|--------|\n")
	for _, c := range p.Candidates {
		sb.WriteString(fmt.Sprintf("| %s | %.2f | %.2f | %t | %s |\n",
			c.Key, c.EndCapital, c.MaxDrawdownPct, c.Liquidated, candidateStatus(c)))
	}
	sb.WriteString("\n")
}
