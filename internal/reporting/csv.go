package reporting

import (
	"github.com/gocarina/gocsv"

	"smc-lab/internal/domain"
)

// RenderCSV renders strategy rows as CSV string with a header line.
func RenderCSV(rows []StrategyRow) (string, error) {
	if rows == nil {
		rows = []StrategyRow{}
	}
	return gocsv.MarshalString(&rows)
}

// RenderEquityCSV renders an equity curve as CSV string with a header line.
func RenderEquityCSV(curve []domain.EquityPoint) (string, error) {
	rows := make([]EquityRow, len(curve))
	for i, p := range curve {
		rows[i] = EquityRow{
			Timestamp:   p.Timestamp,
			Equity:      p.Equity,
			RunningPeak: p.RunningPeak,
			DrawdownPct: p.DrawdownPct,
		}
	}
	return gocsv.MarshalString(&rows)
}
