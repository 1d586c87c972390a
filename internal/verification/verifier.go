// Package verification checks stored simulation output against replays and
// asserts the structural invariants of engine and portfolio runs.
package verification

import (
	"context"
	"math"

	"smc-lab/internal/domain"
)

// FloatTolerance is the tolerance for float64 comparisons.
const FloatTolerance = 1e-7

// FieldDivergence represents a mismatch between stored and replayed values.
type FieldDivergence struct {
	Field    string      // field name
	Expected interface{} // stored value
	Actual   interface{} // replayed value
}

// VerificationResult contains the result of verifying a single trade.
type VerificationResult struct {
	TradeID     string            // verified trade ID
	StrategyKey string            // SYMBOL_TIMEFRAME
	Match       bool              // true if all fields match
	Divergences []FieldDivergence // list of divergent fields
	StoredPnL   float64           // net pnl of the stored trade
	ReplayedPnL float64           // net pnl of the replayed trade
}

// VerificationReport contains results for batch verification.
type VerificationReport struct {
	RunID           string
	TotalTrades     int                  // total trades verified
	MatchedTrades   int                  // trades that matched exactly
	DivergentTrades int                  // trades with divergences
	Results         []VerificationResult // individual results
}

// Verifier interface for trade replay verification.
type Verifier interface {
	// VerifyTrade replays the strategy of one stored trade and compares it.
	VerifyTrade(ctx context.Context, runID, tradeID string) (*VerificationResult, error)

	// VerifyRun verifies all trades stored under runID.
	VerifyRun(ctx context.Context, runID string) (*VerificationReport, error)
}

// CompareTrades compares two trades and returns divergences.
// Uses FloatTolerance for float64 comparisons.
func CompareTrades(stored, replayed *domain.Trade) []FieldDivergence {
	var divergences []FieldDivergence

	exact := func(field string, a, b interface{}) {
		if a != b {
			divergences = append(divergences, FieldDivergence{Field: field, Expected: a, Actual: b})
		}
	}
	float := func(field string, a, b float64) {
		if !floatEquals(a, b) {
			divergences = append(divergences, FieldDivergence{Field: field, Expected: a, Actual: b})
		}
	}

	// Identity
	exact("TradeID", stored.TradeID, replayed.TradeID)
	exact("StrategyKey", stored.StrategyKey, replayed.StrategyKey)
	exact("Symbol", stored.Symbol, replayed.Symbol)
	exact("Side", stored.Side, replayed.Side)

	// Entry
	exact("EntryTime", stored.EntryTime, replayed.EntryTime)
	float("EntryPrice", stored.EntryPrice, replayed.EntryPrice)
	float("StopLoss", stored.StopLoss, replayed.StopLoss)
	float("TakeProfit", stored.TakeProfit, replayed.TakeProfit)
	float("Notional", stored.Notional, replayed.Notional)
	float("Margin", stored.Margin, replayed.Margin)

	// Exit
	exact("ExitTime", stored.ExitTime, replayed.ExitTime)
	float("ExitPrice", stored.ExitPrice, replayed.ExitPrice)
	exact("ExitReason", stored.ExitReason, replayed.ExitReason)

	// Outcome (critical for verification)
	float("GrossPnL", stored.GrossPnL, replayed.GrossPnL)
	float("Fees", stored.Fees, replayed.Fees)
	float("PnL", stored.PnL, replayed.PnL)
	float("PnLPct", stored.PnLPct, replayed.PnLPct)
	exact("OutcomeClass", stored.OutcomeClass, replayed.OutcomeClass)
	float("CapitalAfter", stored.CapitalAfter, replayed.CapitalAfter)

	// Metadata
	exact("Trailing", stored.Trailing, replayed.Trailing)
	float("PeakPrice", stored.PeakPrice, replayed.PeakPrice)

	return divergences
}

// floatEquals compares two float64 values within FloatTolerance.
func floatEquals(a, b float64) bool {
	return math.Abs(a-b) <= FloatTolerance
}
