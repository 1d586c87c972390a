package position

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"smc-lab/internal/domain"
)

// Sizing errors. Simulators treat all of them as "skip this opportunity".
var (
	ErrNoCapital           = errors.New("no capital available")
	ErrInvalidIndicator    = errors.New("entry price or atr is not a positive number")
	ErrInvalidStopDistance = errors.New("stop distance must be positive")
	ErrNotionalTooSmall    = errors.New("notional below exchange minimum")
	ErrInsufficientMargin  = errors.New("margin exceeds available capital")
	ErrInvalidLeverage     = errors.New("leverage must be positive")
)

// Plan is a sized position ready to be opened.
type Plan struct {
	Side            domain.Side
	Entry           float64
	StopDistance    float64
	StopLoss        float64
	TakeProfit      float64
	ActivationPrice float64 // trailing activation level, 0 when trailing is disabled
	Notional        float64
	Margin          float64
}

// Size computes stop, target and size for an entry at price with the given ATR.
//
//	stop_distance = max(atr * atr_multiplier_sl, entry * min_sl)
//	notional      = min(capital * risk / (stop_distance / entry), capital * max_leverage_cap, absolute_cap)
//	margin        = ceil(notional / leverage * 100) / 100
func Size(side domain.Side, entry, atr, capital float64, p domain.RiskParams) (Plan, error) {
	if capital <= 0 || math.IsNaN(capital) {
		return Plan{}, ErrNoCapital
	}
	if !(entry > 0) || math.IsInf(entry, 0) || math.IsNaN(atr) || atr < 0 {
		return Plan{}, ErrInvalidIndicator
	}
	if !(p.Leverage > 0) {
		return Plan{}, ErrInvalidLeverage
	}

	stopDistance := math.Max(atr*p.ATRMultiplierSL, entry*p.MinSL)
	if !(stopDistance > 0) {
		return Plan{}, ErrInvalidStopDistance
	}

	notional := capital * p.RiskPerTrade / (stopDistance / entry)
	if p.MaxLeverageCap > 0 {
		notional = math.Min(notional, capital*p.MaxLeverageCap)
	}
	if p.AbsoluteNotionalCap > 0 {
		notional = math.Min(notional, p.AbsoluteNotionalCap)
	}
	if !(notional > 0) || notional < p.MinNotional {
		return Plan{}, fmt.Errorf("%w: %.4f < %.4f", ErrNotionalTooSmall, notional, p.MinNotional)
	}

	margin := MarginFor(notional, p.Leverage)
	if margin > capital {
		return Plan{}, fmt.Errorf("%w: margin %.2f, capital %.2f", ErrInsufficientMargin, margin, capital)
	}

	sign := side.Sign()
	plan := Plan{
		Side:         side,
		Entry:        entry,
		StopDistance: stopDistance,
		StopLoss:     entry - sign*stopDistance,
		TakeProfit:   entry + sign*stopDistance*p.RiskRewardRatio,
		Notional:     notional,
		Margin:       margin,
	}
	if p.TrailingEnabled() {
		plan.ActivationPrice = entry + sign*stopDistance*p.TrailingActivationRR
	}
	return plan, nil
}

// MarginFor returns notional / leverage rounded up to the cent.
func MarginFor(notional, leverage float64) float64 {
	m := decimal.NewFromFloat(notional).
		Div(decimal.NewFromFloat(leverage)).
		Shift(2).
		Ceil().
		Shift(-2)
	return m.InexactFloat64()
}

// RejectReason returns a short label for a sizing error, for logs and metrics.
func RejectReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoCapital):
		return "no_capital"
	case errors.Is(err, ErrInvalidIndicator):
		return "invalid_indicator"
	case errors.Is(err, ErrInvalidStopDistance):
		return "invalid_stop_distance"
	case errors.Is(err, ErrNotionalTooSmall):
		return "notional_too_small"
	case errors.Is(err, ErrInsufficientMargin):
		return "insufficient_margin"
	case errors.Is(err, ErrInvalidLeverage):
		return "invalid_leverage"
	default:
		return "other"
	}
}
