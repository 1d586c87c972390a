package strategy

import (
	"smc-lab/internal/domain"
)

// StructureView is the read side of a market structure engine.
type StructureView interface {
	Trend(scope domain.Scope) domain.Bias
	ActiveOrderBlocks() []domain.OrderBlock
	ActiveFVGs() []domain.FairValueGap
}

// Evaluator produces a raw trade intent for the current bar.
type Evaluator interface {
	// Evaluate returns the intent for ctx.Index, or false when there is no signal.
	// Implementations must only read candles and features up to ctx.Index.
	Evaluate(ctx *Context) (domain.Intent, bool)

	// ID returns evaluator identifier (includes parameters).
	ID() string
}

// Context holds all data needed to evaluate one bar.
type Context struct {
	Index     int
	Candles   []domain.Candle
	Features  []domain.Features // aligned with Candles
	Structure StructureView     // state after Candles[Index] was processed
	Bias      domain.Bias       // higher-timeframe bias at this bar
}

// Candle returns the current candle.
func (c *Context) Candle() domain.Candle {
	return c.Candles[c.Index]
}

// Feature returns the features of the current candle.
func (c *Context) Feature() domain.Features {
	return c.Features[c.Index]
}

func intentAt(ctx *Context, side domain.Side) domain.Intent {
	c := ctx.Candle()
	return domain.Intent{
		Side:           side,
		ReferencePrice: c.Close,
		Time:           c.Timestamp,
		Index:          ctx.Index,
	}
}
