package domain

// PerformanceStats summarizes closed trades and an equity curve.
// Percent fields are in percent. Distribution fields describe net pnl per trade.
// GrossLoss is a positive magnitude; ProfitFactor is 0 without losses.
// Sharpe is per equity step and not annualized.
type PerformanceStats struct {
	Trades  int     `json:"trades" csv:"trades"`
	Wins    int     `json:"wins" csv:"wins"`
	Losses  int     `json:"losses" csv:"losses"`
	WinRate float64 `json:"win_rate" csv:"win_rate"`

	GrossProfit  float64 `json:"gross_profit" csv:"gross_profit"`
	GrossLoss    float64 `json:"gross_loss" csv:"gross_loss"`
	ProfitFactor float64 `json:"profit_factor" csv:"profit_factor"`

	PnLMean   float64 `json:"pnl_mean" csv:"pnl_mean"`
	PnLMedian float64 `json:"pnl_median" csv:"pnl_median"`
	PnLP10    float64 `json:"pnl_p10" csv:"pnl_p10"`
	PnLP90    float64 `json:"pnl_p90" csv:"pnl_p90"`
	PnLStddev float64 `json:"pnl_stddev" csv:"pnl_stddev"`

	MaxConsecutiveLosses int     `json:"max_consecutive_losses" csv:"max_consecutive_losses"`
	AvgHoldMs            int64   `json:"avg_hold_ms" csv:"avg_hold_ms"`
	MaxDrawdownPct       float64 `json:"max_drawdown_pct" csv:"max_drawdown_pct"`
	Sharpe               float64 `json:"sharpe" csv:"sharpe"`
}
