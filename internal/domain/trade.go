package domain

// ExitReason is the reason code of a closed position.
type ExitReason string

// Exit reason codes
const (
	ExitReasonStopLoss     ExitReason = "STOP_LOSS"
	ExitReasonTakeProfit   ExitReason = "TAKE_PROFIT"
	ExitReasonTrailingStop ExitReason = "TRAILING_STOP"
)

// Outcome class constants
const (
	OutcomeClassWin  = "WIN"
	OutcomeClassLoss = "LOSS"
)

// Trade is the outcome of a closed position. Values are fixed once recorded.
type Trade struct {
	TradeID     string // deterministic hash
	StrategyKey string // SYMBOL_TIMEFRAME
	Symbol      string
	Side        Side

	// Entry
	EntryTime  int64   // ms
	EntryPrice float64 // reference price of the signal
	StopLoss   float64 // initial stop
	TakeProfit float64 // initial target
	Notional   float64 // leveraged position size in quote currency
	Margin     float64 // capital held against the position

	// Exit
	ExitTime   int64
	ExitPrice  float64
	ExitReason ExitReason

	// Outcome
	GrossPnL     float64 // notional * pct move
	Fees         float64 // round trip
	PnL          float64 // net of fees
	PnLPct       float64 // net pnl / margin * 100
	OutcomeClass string  // "WIN" | "LOSS"
	CapitalAfter float64 // realized capital after settlement

	// Metadata
	Trailing  bool    // trailing stop was active at exit
	PeakPrice float64 // best price reached during hold
}

// IsWin reports whether the trade closed with positive net pnl.
func (t *Trade) IsWin() bool {
	return t.PnL > 0
}
