package domain

// ResultStatus distinguishes a completed run from degenerate inputs.
type ResultStatus string

const (
	StatusOK               ResultStatus = "OK"
	StatusInsufficientData ResultStatus = "INSUFFICIENT_DATA" // fewer candles than the minimum lookback
	StatusBadInput         ResultStatus = "BAD_INPUT"         // empty or malformed series
)

// StrategyResult is the per-strategy performance record.
// Percent fields are expressed in percent (12.5 = 12.5%).
type StrategyResult struct {
	Key       string       `json:"key"`
	Symbol    string       `json:"symbol"`
	Timeframe string       `json:"timeframe"`
	Status    ResultStatus `json:"status"`

	StartCapital   float64 `json:"start_capital"`
	EndCapital     float64 `json:"end_capital"`
	TotalPnLPct    float64 `json:"total_pnl_pct"`
	TradesCount    int     `json:"trades_count"`
	WinRate        float64 `json:"win_rate"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	Liquidated     bool    `json:"liquidated"`

	Trades []Trade `json:"-"`
}

// InsufficientDataResult is the sentinel returned when a series is too short.
func InsufficientDataResult(key, symbol, timeframe string, startCapital float64) *StrategyResult {
	return &StrategyResult{
		Key:          key,
		Symbol:       symbol,
		Timeframe:    timeframe,
		Status:       StatusInsufficientData,
		StartCapital: startCapital,
		EndCapital:   0,
		TotalPnLPct:  -100,
	}
}

// BadInputResult is the sentinel returned for empty or malformed series.
func BadInputResult(key, symbol, timeframe string, startCapital float64) *StrategyResult {
	return &StrategyResult{
		Key:          key,
		Symbol:       symbol,
		Timeframe:    timeframe,
		Status:       StatusBadInput,
		StartCapital: startCapital,
		TotalPnLPct:  -100,
	}
}

// EquityPoint is a capital snapshot at one timestamp.
type EquityPoint struct {
	Timestamp   int64   `json:"timestamp"`
	Equity      float64 `json:"equity"`       // realized plus unrealized
	RunningPeak float64 `json:"running_peak"` // non-decreasing
	DrawdownPct float64 `json:"drawdown_pct"` // (peak-equity)/peak * 100, >= 0
}

// PortfolioResult is the aggregate record of one portfolio simulation.
type PortfolioResult struct {
	Keys []string `json:"keys"`

	StartCapital   float64 `json:"start_capital"`
	EndCapital     float64 `json:"end_capital"` // realized capital at the end of the run
	TotalPnLPct    float64 `json:"total_pnl_pct"`
	TradeCount     int     `json:"trade_count"`
	WinRate        float64 `json:"win_rate"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`

	MaxDrawdownDate int64 `json:"max_drawdown_date"` // 0 if equity never fell below its peak
	Liquidated      bool  `json:"liquidated"`
	LiquidationDate int64 `json:"liquidation_date"` // 0 unless liquidated

	EquityCurve []EquityPoint `json:"equity_curve"`
	Trades      []Trade       `json:"-"`
}

// Selection is the strategy set chosen by one optimizer run.
type Selection struct {
	RunID                string           `json:"run_id"`
	CreatedAt            int64            `json:"created_at"` // ms
	TargetMaxDrawdownPct float64          `json:"target_max_drawdown_pct"`
	Keys                 []string         `json:"keys"`
	Symbols              []string         `json:"symbols"`
	Rounds               int              `json:"rounds"`
	Result               *PortfolioResult `json:"result"`
}
