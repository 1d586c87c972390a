package reporting

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// RenderTable writes strategy rows as a console table.
func RenderTable(w io.Writer, rows []StrategyRow) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Key", "Status", "Trades", "WinRate", "PnL%", "MaxDD%", "PF", "Sharpe"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)

	for _, r := range rows {
		table.Append([]string{
			r.Key,
			r.Status,
			fmt.Sprintf("%d", r.Trades),
			fmt.Sprintf("%.2f", r.WinRate),
			fmt.Sprintf("%.2f", r.TotalPnLPct),
			fmt.Sprintf("%.2f", r.MaxDrawdownPct),
			fmt.Sprintf("%.2f", r.ProfitFactor),
			fmt.Sprintf("%.3f", r.Sharpe),
		})
	}

	table.Render()
}

// RenderCandidateTable writes optimizer candidates as a console table.
func RenderCandidateTable(w io.Writer, rows []CandidateRow) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Key", "EndCapital", "MaxDD%", "Liquidated", "Status"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)

	for _, r := range rows {
		table.Append([]string{
			r.Key,
			fmt.Sprintf("%.2f", r.EndCapital),
			fmt.Sprintf("%.2f", r.MaxDrawdownPct),
			fmt.Sprintf("%t", r.Liquidated),
			candidateStatus(r),
		})
	}

	table.Render()
}

func candidateStatus(r CandidateRow) string {
	switch {
	case r.Selected:
		return "SELECTED"
	case r.Rejected != "":
		return "REJECTED (" + r.Rejected + ")"
	default:
		return "-"
	}
}

// RenderPortfolioTable writes the aggregate metrics of a portfolio run.
func RenderPortfolioTable(w io.Writer, p *PortfolioSection) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "Value"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	table.Append([]string{"Strategies", strings.Join(p.Keys, ", ")})
	table.Append([]string{"Start Capital", fmt.Sprintf("%.2f", p.StartCapital)})
	table.Append([]string{"End Capital", fmt.Sprintf("%.2f", p.EndCapital)})
	table.Append([]string{"PnL%", fmt.Sprintf("%.2f", p.TotalPnLPct)})
	table.Append([]string{"Trades", fmt.Sprintf("%d", p.Trades)})
	table.Append([]string{"WinRate", fmt.Sprintf("%.2f", p.WinRate)})
	table.Append([]string{"MaxDD%", fmt.Sprintf("%.2f", p.MaxDrawdownPct)})
	table.Append([]string{"Sharpe", fmt.Sprintf("%.3f", p.Sharpe)})
	table.Append([]string{"Liquidated", fmt.Sprintf("%t", p.Liquidated)})

	table.Render()
}
