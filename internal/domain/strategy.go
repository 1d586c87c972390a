package domain

import "fmt"

// SignalMode selects the raw signal evaluator.
type SignalMode string

const (
	SignalModeSMC   SignalMode = "smc"   // zone re-entry into unmitigated FVG / order block
	SignalModeTrend SignalMode = "trend" // dual-baseline trend alignment
)

// IsValid reports whether the mode is known.
func (m SignalMode) IsValid() bool {
	return m == SignalModeSMC || m == SignalModeTrend
}

// SignalParams configures signal evaluation and its filters.
type SignalParams struct {
	Mode          SignalMode `json:"mode"`
	UseADXFilter  bool       `json:"use_adx_filter"`
	ADXThreshold  float64    `json:"adx_threshold"`
	ConfirmBars   int        `json:"confirm_bars"`   // lagged confirmation window (trend mode)
	UseSupertrend bool       `json:"use_supertrend"` // require supertrend agreement (trend mode)
	HTFTimeframe  string     `json:"htf_timeframe"`  // empty disables the MTF bias filter
}

// FeatureParams configures the indicator periods of the feature provider.
type FeatureParams struct {
	ATRPeriod            int     `json:"atr_period"`
	ADXPeriod            int     `json:"adx_period"`
	TenkanPeriod         int     `json:"tenkan_period"`
	KijunPeriod          int     `json:"kijun_period"`
	SenkouBPeriod        int     `json:"senkou_b_period"`
	Displacement         int     `json:"displacement"`
	SupertrendPeriod     int     `json:"supertrend_period"`
	SupertrendMultiplier float64 `json:"supertrend_multiplier"`
}

// RiskParams configures position sizing and exits.
// All percentage values are fractions (0.01 = 1%).
type RiskParams struct {
	InitialCapital       float64 `json:"initial_capital"`
	RiskPerTrade         float64 `json:"risk_per_trade"`
	RiskRewardRatio      float64 `json:"risk_reward_ratio"`
	Leverage             float64 `json:"leverage"`
	MaxLeverageCap       float64 `json:"max_leverage_cap"`
	AbsoluteNotionalCap  float64 `json:"absolute_notional_cap"` // 0 = unlimited
	MinNotional          float64 `json:"min_notional"`
	Fee                  float64 `json:"fee"` // per side
	TrailingActivationRR float64 `json:"trailing_activation_rr"`
	TrailingCallbackRate float64 `json:"trailing_callback_rate"`
	ATRMultiplierSL      float64 `json:"atr_multiplier_sl"`
	MinSL                float64 `json:"min_sl"`
}

// TrailingEnabled reports whether the trailing stop can ever activate.
func (r RiskParams) TrailingEnabled() bool {
	return r.TrailingActivationRR > 0 && r.TrailingCallbackRate > 0
}

// StrategyConfig is the full parameter set of one strategy key.
type StrategyConfig struct {
	Symbol    string          `json:"symbol"`
	Timeframe string          `json:"timeframe"`
	Structure StructureParams `json:"structure"`
	Signal    SignalParams    `json:"signal"`
	Features  FeatureParams   `json:"features"`
	Risk      RiskParams      `json:"risk"`
}

// Key returns the strategy key (SYMBOL_TIMEFRAME).
func (c StrategyConfig) Key() string {
	return SeriesKey(c.Symbol, c.Timeframe)
}

// ID returns a descriptive identifier including the main parameters.
func (c StrategyConfig) ID() string {
	return fmt.Sprintf("%s_%s_swing%d_%s", c.Key(), c.Signal.Mode, c.Structure.SwingLength, c.Structure.Mitigation)
}

// Intent is a trade signal produced by a signal evaluator.
type Intent struct {
	Side           Side
	ReferencePrice float64
	Time           int64 // bar time of the signal (ms)
	Index          int   // bar index of the signal
}
