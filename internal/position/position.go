package position

import (
	"fmt"

	"smc-lab/internal/domain"
	"smc-lab/internal/idhash"
)

// State is the lifecycle state of a position. A flat strategy holds no
// Position at all.
type State int8

const (
	StateOpen State = iota + 1
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "OPEN"
	case StateClosed:
		return "CLOSED"
	default:
		return fmt.Sprintf("State(%d)", int8(s))
	}
}

// Position is one simulated trade of a strategy key.
// It is owned by exactly one simulator and is not safe for concurrent use.
type Position struct {
	key       string
	symbol    string
	plan      Plan
	entryTime int64
	fee       float64
	callback  float64

	state    State
	stop     float64
	trailing bool
	peak     float64

	exitTime   int64
	exitPrice  float64
	exitReason domain.ExitReason
}

// Open creates an open position from a plan. Entry is at plan.Entry on the
// bar at entryTime; the first Update should be the following bar.
func Open(key, symbol string, plan Plan, entryTime int64, p domain.RiskParams) *Position {
	return &Position{
		key:       key,
		symbol:    symbol,
		plan:      plan,
		entryTime: entryTime,
		fee:       p.Fee,
		callback:  p.TrailingCallbackRate,
		state:     StateOpen,
		stop:      plan.StopLoss,
		peak:      plan.Entry,
	}
}

// Key returns the strategy key.
func (p *Position) Key() string { return p.key }

// Side returns the position side.
func (p *Position) Side() domain.Side { return p.plan.Side }

// Plan returns the sizing plan the position was opened with.
func (p *Position) Plan() Plan { return p.plan }

// State returns the lifecycle state.
func (p *Position) State() State { return p.state }

// StopLoss returns the current stop level.
func (p *Position) StopLoss() float64 { return p.stop }

// Trailing reports whether the trailing stop is active.
func (p *Position) Trailing() bool { return p.trailing }

// PeakPrice returns the best price reached since entry.
func (p *Position) PeakPrice() float64 { return p.peak }

// Margin returns the capital held against the position.
func (p *Position) Margin() float64 { return p.plan.Margin }

// Update advances the position by one candle in this order:
//  1. trailing activation when price touches the activation level
//  2. peak tracking and stop ratchet while trailing
//  3. exit check: stop first, then take profit only if not trailing
//
// Returns true when the position closed on this candle.
func (p *Position) Update(c domain.Candle) bool {
	if p.state != StateOpen {
		return false
	}

	switch p.plan.Side {
	case domain.SideLong:
		if c.High > p.peak {
			p.peak = c.High
		}
		if !p.trailing && p.plan.ActivationPrice > 0 && c.High >= p.plan.ActivationPrice {
			p.trailing = true
		}
		if p.trailing {
			if level := p.peak * (1 - p.callback); level > p.stop {
				p.stop = level
			}
		}
		if c.Low <= p.stop {
			p.close(c.Timestamp, p.stop, p.stopReason())
			return true
		}
		if !p.trailing && c.High >= p.plan.TakeProfit {
			p.close(c.Timestamp, p.plan.TakeProfit, domain.ExitReasonTakeProfit)
			return true
		}

	case domain.SideShort:
		if c.Low < p.peak {
			p.peak = c.Low
		}
		if !p.trailing && p.plan.ActivationPrice > 0 && c.Low <= p.plan.ActivationPrice {
			p.trailing = true
		}
		if p.trailing {
			if level := p.peak * (1 + p.callback); level < p.stop {
				p.stop = level
			}
		}
		if c.High >= p.stop {
			p.close(c.Timestamp, p.stop, p.stopReason())
			return true
		}
		if !p.trailing && c.Low <= p.plan.TakeProfit {
			p.close(c.Timestamp, p.plan.TakeProfit, domain.ExitReasonTakeProfit)
			return true
		}
	}
	return false
}

func (p *Position) stopReason() domain.ExitReason {
	if p.trailing {
		return domain.ExitReasonTrailingStop
	}
	return domain.ExitReasonStopLoss
}

func (p *Position) close(ts int64, price float64, reason domain.ExitReason) {
	p.state = StateClosed
	p.exitTime = ts
	p.exitPrice = price
	p.exitReason = reason
}

// UnrealizedPnL returns the gross pnl at price, before fees.
func (p *Position) UnrealizedPnL(price float64) float64 {
	if p.state != StateOpen {
		return 0
	}
	return p.plan.Notional * p.plan.Side.Sign() * (price - p.plan.Entry) / p.plan.Entry
}

// Trade builds the trade record of a closed position. CapitalAfter is left
// for the account to fill on settlement. Returns false while still open.
func (p *Position) Trade() (domain.Trade, bool) {
	if p.state != StateClosed {
		return domain.Trade{}, false
	}

	move := p.plan.Side.Sign() * (p.exitPrice - p.plan.Entry) / p.plan.Entry
	gross := p.plan.Notional * move
	fees := p.plan.Notional * p.fee * 2
	net := gross - fees

	outcome := domain.OutcomeClassLoss
	if net > 0 {
		outcome = domain.OutcomeClassWin
	}
	var pnlPct float64
	if p.plan.Margin > 0 {
		pnlPct = net / p.plan.Margin * 100
	}

	return domain.Trade{
		TradeID:      idhash.ComputeTradeID(p.key, p.plan.Side.String(), p.entryTime, p.exitTime),
		StrategyKey:  p.key,
		Symbol:       p.symbol,
		Side:         p.plan.Side,
		EntryTime:    p.entryTime,
		EntryPrice:   p.plan.Entry,
		StopLoss:     p.plan.StopLoss,
		TakeProfit:   p.plan.TakeProfit,
		Notional:     p.plan.Notional,
		Margin:       p.plan.Margin,
		ExitTime:     p.exitTime,
		ExitPrice:    p.exitPrice,
		ExitReason:   p.exitReason,
		GrossPnL:     gross,
		Fees:         fees,
		PnL:          net,
		PnLPct:       pnlPct,
		OutcomeClass: outcome,
		Trailing:     p.trailing,
		PeakPrice:    p.peak,
	}, true
}
