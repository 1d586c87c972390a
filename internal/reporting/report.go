package reporting

import "time"

// Report is the rendered outcome of a backtest run and, optionally, of the
// optimizer selection built on top of it.
type Report struct {
	GeneratedAt time.Time
	RunID       string

	Summary Summary

	// Strategies sorted by key
	Strategies []StrategyRow

	// Nil unless the run produced a portfolio selection
	Portfolio *PortfolioSection
}

// Summary describes the data behind a report.
type Summary struct {
	StrategyCount     int
	OKCount           int
	InsufficientCount int
	BadInputCount     int
	TotalTrades       int
	DateRangeStart    int64 // Unix ms, first entry
	DateRangeEnd      int64 // Unix ms, last exit
}

// StrategyRow is one strategy key in the results table and CSV export.
// Percent fields are in percent.
type StrategyRow struct {
	Key                  string  `csv:"key"`
	Status               string  `csv:"status"`
	Trades               int     `csv:"trades"`
	WinRate              float64 `csv:"win_rate"`
	TotalPnLPct          float64 `csv:"total_pnl_pct"`
	EndCapital           float64 `csv:"end_capital"`
	MaxDrawdownPct       float64 `csv:"max_drawdown_pct"`
	ProfitFactor         float64 `csv:"profit_factor"`
	PnLMean              float64 `csv:"pnl_mean"`
	PnLMedian            float64 `csv:"pnl_median"`
	PnLP10               float64 `csv:"pnl_p10"`
	PnLP90               float64 `csv:"pnl_p90"`
	MaxConsecutiveLosses int     `csv:"max_consecutive_losses"`
	Sharpe               float64 `csv:"sharpe"`
	Liquidated           bool    `csv:"liquidated"`
}

// PortfolioSection describes an optimizer selection.
type PortfolioSection struct {
	RunID                string
	Keys                 []string
	Rounds               int
	TargetMaxDrawdownPct float64

	StartCapital    float64
	EndCapital      float64
	TotalPnLPct     float64
	Trades          int
	WinRate         float64
	MaxDrawdownPct  float64
	MaxDrawdownDate int64
	Liquidated      bool
	Sharpe          float64

	// Individual runs in input order
	Candidates []CandidateRow
}

// CandidateRow is the individual run of one optimizer input.
type CandidateRow struct {
	Key            string
	EndCapital     float64
	MaxDrawdownPct float64
	Liquidated     bool
	Rejected       string // empty for survivors
	Selected       bool
}

// EquityRow is one equity curve point in the CSV export.
type EquityRow struct {
	Timestamp   int64   `csv:"timestamp"`
	Equity      float64 `csv:"equity"`
	RunningPeak float64 `csv:"running_peak"`
	DrawdownPct float64 `csv:"drawdown_pct"`
}
