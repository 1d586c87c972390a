package config

import (
	"os"
	"strconv"
	"strings"
)

// applyEnv overrides fields from environment variables starting with prefix.
func (c *Config) applyEnv(prefix string) {
	// Structure
	c.Structure.SwingsLength = pickInt(os.Getenv(prefix+"STRUCTURE_SWINGS_LENGTH"), c.Structure.SwingsLength)
	c.Structure.InternalLength = pickInt(os.Getenv(prefix+"STRUCTURE_INTERNAL_LENGTH"), c.Structure.InternalLength)
	c.Structure.OBMitigation = pickStr(os.Getenv(prefix+"STRUCTURE_OB_MITIGATION"), c.Structure.OBMitigation)

	// Signal
	c.Signal.Mode = pickStr(os.Getenv(prefix+"SIGNAL_MODE"), c.Signal.Mode)
	c.Signal.UseADXFilter = pickBool(os.Getenv(prefix+"SIGNAL_USE_ADX_FILTER"), c.Signal.UseADXFilter)
	c.Signal.ADXThreshold = pickFloat(os.Getenv(prefix+"SIGNAL_ADX_THRESHOLD"), c.Signal.ADXThreshold)
	c.Signal.ConfirmBars = pickInt(os.Getenv(prefix+"SIGNAL_CONFIRM_BARS"), c.Signal.ConfirmBars)
	c.Signal.UseSupertrend = pickBool(os.Getenv(prefix+"SIGNAL_USE_SUPERTREND"), c.Signal.UseSupertrend)
	if v, ok := os.LookupEnv(prefix + "SIGNAL_HTF_TIMEFRAME"); ok {
		// Empty value disables the filter
		c.Signal.HTFTimeframe = strings.TrimSpace(v)
	}

	// Risk
	c.Risk.InitialCapital = pickFloat(os.Getenv(prefix+"RISK_INITIAL_CAPITAL"), c.Risk.InitialCapital)
	c.Risk.RiskPerTradePct = pickFloat(os.Getenv(prefix+"RISK_PER_TRADE_PCT"), c.Risk.RiskPerTradePct)
	c.Risk.RiskRewardRatio = pickFloat(os.Getenv(prefix+"RISK_REWARD_RATIO"), c.Risk.RiskRewardRatio)
	c.Risk.Leverage = pickFloat(os.Getenv(prefix+"RISK_LEVERAGE"), c.Risk.Leverage)
	c.Risk.MaxLeverageCap = pickFloat(os.Getenv(prefix+"RISK_MAX_LEVERAGE_CAP"), c.Risk.MaxLeverageCap)
	c.Risk.AbsoluteNotionalCap = pickFloat(os.Getenv(prefix+"RISK_ABSOLUTE_NOTIONAL_CAP"), c.Risk.AbsoluteNotionalCap)
	c.Risk.MinNotional = pickFloat(os.Getenv(prefix+"RISK_MIN_NOTIONAL"), c.Risk.MinNotional)
	c.Risk.FeePct = pickFloat(os.Getenv(prefix+"RISK_FEE_PCT"), c.Risk.FeePct)
	c.Risk.TrailingStopActivationRR = pickFloat(os.Getenv(prefix+"RISK_TRAILING_ACTIVATION_RR"), c.Risk.TrailingStopActivationRR)
	c.Risk.TrailingStopCallbackRatePct = pickFloat(os.Getenv(prefix+"RISK_TRAILING_CALLBACK_PCT"), c.Risk.TrailingStopCallbackRatePct)
	c.Risk.ATRMultiplierSL = pickFloat(os.Getenv(prefix+"RISK_ATR_MULTIPLIER_SL"), c.Risk.ATRMultiplierSL)
	c.Risk.MinSLPct = pickFloat(os.Getenv(prefix+"RISK_MIN_SL_PCT"), c.Risk.MinSLPct)

	// Features
	c.Features.ATRPeriod = pickInt(os.Getenv(prefix+"FEATURES_ATR_PERIOD"), c.Features.ATRPeriod)
	c.Features.ADXPeriod = pickInt(os.Getenv(prefix+"FEATURES_ADX_PERIOD"), c.Features.ADXPeriod)

	// Optimizer
	c.Optimizer.MaxDrawdownConstraint = pickFloat(os.Getenv(prefix+"OPTIMIZER_MAX_DRAWDOWN"), c.Optimizer.MaxDrawdownConstraint)
	c.Optimizer.MinTrades = pickInt(os.Getenv(prefix+"OPTIMIZER_MIN_TRADES"), c.Optimizer.MinTrades)
	c.Optimizer.MinWinRatePct = pickFloat(os.Getenv(prefix+"OPTIMIZER_MIN_WIN_RATE_PCT"), c.Optimizer.MinWinRatePct)
	c.Optimizer.Workers = pickInt(os.Getenv(prefix+"OPTIMIZER_WORKERS"), c.Optimizer.Workers)

	// Data
	c.Data.CacheDir = pickStr(os.Getenv(prefix+"DATA_CACHE_DIR"), c.Data.CacheDir)
	if v := os.Getenv(prefix + "DATA_SYMBOLS"); v != "" {
		c.Data.Symbols = splitCSV(v)
	}
	if v := os.Getenv(prefix + "DATA_TIMEFRAMES"); v != "" {
		c.Data.Timeframes = splitCSV(v)
	}
	c.Data.ParamsFile = pickStr(os.Getenv(prefix+"DATA_PARAMS_FILE"), c.Data.ParamsFile)
	c.Data.SelectionFile = pickStr(os.Getenv(prefix+"DATA_SELECTION_FILE"), c.Data.SelectionFile)

	// Storage
	c.Storage.UseMemory = pickBool(os.Getenv(prefix+"STORAGE_USE_MEMORY"), c.Storage.UseMemory)
	c.Storage.PostgresDSN = pickStr(os.Getenv(prefix+"POSTGRES_DSN"), c.Storage.PostgresDSN)
	c.Storage.ClickHouseDSN = pickStr(os.Getenv(prefix+"CLICKHOUSE_DSN"), c.Storage.ClickHouseDSN)

	// Logging
	c.Logging.Level = pickStr(os.Getenv(prefix+"LOG_LEVEL"), c.Logging.Level)
	c.Logging.JSON = pickBool(os.Getenv(prefix+"LOG_JSON"), c.Logging.JSON)
}

func pickStr(env, cur string) string {
	if strings.TrimSpace(env) != "" {
		return strings.TrimSpace(env)
	}
	return cur
}

func pickInt(env string, cur int) int {
	if strings.TrimSpace(env) == "" {
		return cur
	}
	if v, err := strconv.Atoi(strings.TrimSpace(env)); err == nil {
		return v
	}
	return cur
}

func pickFloat(env string, cur float64) float64 {
	if strings.TrimSpace(env) == "" {
		return cur
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(env), 64); err == nil {
		return v
	}
	return cur
}

func pickBool(env string, cur bool) bool {
	if strings.TrimSpace(env) == "" {
		return cur
	}
	s := strings.ToLower(strings.TrimSpace(env))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
