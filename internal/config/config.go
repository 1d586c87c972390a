// Package config loads the run configuration.
//
// Sources, in increasing priority: defaults, the first YAML file found, an
// optional .env file, then environment variables prefixed SMCLAB_.
//
// Percent-valued options (riskPerTradePct, feePct, ...) stay in percent here
// and are converted to fractions by RiskParams and OptimizerParams.
//
// Example YAML (configs/smclab.yaml):
//
//	structure:
//	  swingsLength: 50
//	  internalLength: 5
//	  obMitigation: HighLow
//	signal:
//	  mode: smc
//	  useAdxFilter: false
//	  adxThreshold: 20
//	  htfTimeframe: 4h
//	risk:
//	  initialCapital: 1000
//	  riskPerTradePct: 1
//	  leverage: 10
//	optimizer:
//	  maxDrawdownConstraint: 30
//	  workers: 4
//	data:
//	  symbols: [BTCUSDT, ETHUSDT]
//	  timeframes: [1h, 4h]
//	logging:
//	  level: info
//	  json: false
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"smc-lab/internal/decision"
	"smc-lab/internal/domain"
	"smc-lab/internal/features"
	"smc-lab/internal/optimizer"
	"smc-lab/internal/structure"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "SMCLAB_"

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the root configuration.
type Config struct {
	Structure StructureConfig `yaml:"structure"`
	Signal    SignalConfig    `yaml:"signal"`
	Risk      RiskConfig      `yaml:"risk"`
	Features  FeaturesConfig  `yaml:"features"`
	Optimizer OptimizerConfig `yaml:"optimizer"`
	Data      DataConfig      `yaml:"data"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`

	// Source is the YAML file that was loaded, empty when none was found.
	Source string `yaml:"-"`
}

// StructureConfig configures the market structure engine.
type StructureConfig struct {
	SwingsLength   int    `yaml:"swingsLength"`
	InternalLength int    `yaml:"internalLength"`
	OBMitigation   string `yaml:"obMitigation"` // Close | HighLow | High/Low
}

// SignalConfig configures signal evaluation.
type SignalConfig struct {
	Mode          string  `yaml:"mode"` // smc | trend
	UseADXFilter  bool    `yaml:"useAdxFilter"`
	ADXThreshold  float64 `yaml:"adxThreshold"`
	HTFTimeframe  string  `yaml:"htfTimeframe"` // empty disables the MTF bias filter
	ConfirmBars   int     `yaml:"confirmBars"`
	UseSupertrend bool    `yaml:"useSupertrend"`
}

// RiskConfig configures sizing and exits. Pct fields are in percent.
type RiskConfig struct {
	InitialCapital              float64 `yaml:"initialCapital"`
	RiskPerTradePct             float64 `yaml:"riskPerTradePct"`
	RiskRewardRatio             float64 `yaml:"riskRewardRatio"`
	Leverage                    float64 `yaml:"leverage"`
	MaxLeverageCap              float64 `yaml:"maxLeverageCap"`
	AbsoluteNotionalCap         float64 `yaml:"absoluteNotionalCap"` // 0 = unlimited
	MinNotional                 float64 `yaml:"minNotional"`
	FeePct                      float64 `yaml:"feePct"` // per side
	TrailingStopActivationRR    float64 `yaml:"trailingStopActivationRR"`
	TrailingStopCallbackRatePct float64 `yaml:"trailingStopCallbackRatePct"`
	ATRMultiplierSL             float64 `yaml:"atrMultiplierSL"`
	MinSLPct                    float64 `yaml:"minSLPct"`
}

// FeaturesConfig configures indicator periods.
type FeaturesConfig struct {
	ATRPeriod            int     `yaml:"atrPeriod"`
	ADXPeriod            int     `yaml:"adxPeriod"`
	TenkanPeriod         int     `yaml:"tenkanPeriod"`
	KijunPeriod          int     `yaml:"kijunPeriod"`
	SenkouBPeriod        int     `yaml:"senkouBPeriod"`
	Displacement         int     `yaml:"displacement"`
	SupertrendPeriod     int     `yaml:"supertrendPeriod"`
	SupertrendMultiplier float64 `yaml:"supertrendMultiplier"`
}

// OptimizerConfig configures the portfolio search and trial pruning.
type OptimizerConfig struct {
	MaxDrawdownConstraint float64 `yaml:"maxDrawdownConstraint"` // percent
	MinTrades             int     `yaml:"minTrades"`
	MinWinRatePct         float64 `yaml:"minWinRatePct"`
	Workers               int     `yaml:"workers"`
}

// DataConfig locates inputs and artifacts.
type DataConfig struct {
	CacheDir      string   `yaml:"cacheDir"`
	Symbols       []string `yaml:"symbols"`
	Timeframes    []string `yaml:"timeframes"`
	ParamsFile    string   `yaml:"paramsFile"`
	SelectionFile string   `yaml:"selectionFile"`
}

// StorageConfig selects the store backends.
type StorageConfig struct {
	UseMemory     bool   `yaml:"useMemory"`
	PostgresDSN   string `yaml:"postgresDSN"`
	ClickHouseDSN string `yaml:"clickhouseDSN"`
}

// LoggingConfig configures logrus.
type LoggingConfig struct {
	Level string `yaml:"level"` // trace|debug|info|warn|error
	JSON  bool   `yaml:"json"`
}

// Default returns the configuration used when no file or env is present.
func Default() Config {
	fp := features.DefaultParams()
	return Config{
		Structure: StructureConfig{
			SwingsLength:   structure.DefaultSwingLength,
			InternalLength: structure.DefaultInternalLength,
			OBMitigation:   "HighLow",
		},
		Signal: SignalConfig{
			Mode:         string(domain.SignalModeSMC),
			ADXThreshold: 20,
			HTFTimeframe: "4h",
			ConfirmBars:  3,
		},
		Risk: RiskConfig{
			InitialCapital:              1000,
			RiskPerTradePct:             1,
			RiskRewardRatio:             2,
			Leverage:                    10,
			MaxLeverageCap:              10,
			MinNotional:                 5,
			FeePct:                      0.05,
			TrailingStopActivationRR:    1,
			TrailingStopCallbackRatePct: 1,
			ATRMultiplierSL:             2,
			MinSLPct:                    0.5,
		},
		Features: FeaturesConfig{
			ATRPeriod:            fp.ATRPeriod,
			ADXPeriod:            fp.ADXPeriod,
			TenkanPeriod:         fp.TenkanPeriod,
			KijunPeriod:          fp.KijunPeriod,
			SenkouBPeriod:        fp.SenkouBPeriod,
			Displacement:         fp.Displacement,
			SupertrendPeriod:     fp.SupertrendPeriod,
			SupertrendMultiplier: fp.SupertrendMultiplier,
		},
		Optimizer: OptimizerConfig{
			MaxDrawdownConstraint: 30,
			Workers:               4,
		},
		Data: DataConfig{
			CacheDir:      "./data",
			Symbols:       []string{"BTCUSDT"},
			Timeframes:    []string{"1h"},
			ParamsFile:    "./data/strategy_params.json",
			SelectionFile: "./data/selection.json",
		},
		Storage: StorageConfig{
			UseMemory: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the first existing YAML file of paths, applies .env and
// environment overrides, and validates the result.
// Without paths it tries ./configs/smclab.yaml, ./config.yaml and ./smclab.yaml.
// Missing files fall back to defaults; unknown keys are ignored.
func Load(paths ...string) (*Config, error) {
	c := Default()

	if len(paths) == 0 {
		paths = []string{
			"./configs/smclab.yaml",
			"./config.yaml",
			"./smclab.yaml",
		}
	}

	for _, p := range paths {
		abs := p
		if !filepath.IsAbs(p) {
			abs, _ = filepath.Abs(p)
		}
		fi, err := os.Stat(abs)
		if err != nil || fi.IsDir() {
			continue
		}
		b, err := os.ReadFile(abs)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", abs, err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", abs, err)
		}
		c.Source = abs
		break
	}

	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}
	c.applyEnv(EnvPrefix)

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// loadDotEnv loads path into the environment when it exists. Variables
// already set are not overwritten.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Validate checks bounds and normalizes enumerations.
func (c *Config) Validate() error {
	// Structure
	if c.Structure.SwingsLength < 1 {
		return invalid("structure.swingsLength must be >= 1, got %d", c.Structure.SwingsLength)
	}
	if c.Structure.InternalLength < 1 {
		return invalid("structure.internalLength must be >= 1, got %d", c.Structure.InternalLength)
	}
	mode, err := domain.ParseMitigationMode(c.Structure.OBMitigation)
	if err != nil {
		return invalid("structure.obMitigation: %v", err)
	}
	c.Structure.OBMitigation = mode.String()

	// Signal
	c.Signal.Mode = strings.ToLower(strings.TrimSpace(c.Signal.Mode))
	if !domain.SignalMode(c.Signal.Mode).IsValid() {
		return invalid("signal.mode must be smc or trend, got %q", c.Signal.Mode)
	}
	if c.Signal.ADXThreshold < 0 {
		return invalid("signal.adxThreshold must be >= 0")
	}
	if c.Signal.ConfirmBars < 1 {
		return invalid("signal.confirmBars must be >= 1, got %d", c.Signal.ConfirmBars)
	}
	if c.Signal.HTFTimeframe != "" {
		if _, err := domain.ParseTimeframe(c.Signal.HTFTimeframe); err != nil {
			return invalid("signal.htfTimeframe: %v", err)
		}
	}

	// Risk
	r := c.Risk
	switch {
	case r.InitialCapital <= 0:
		return invalid("risk.initialCapital must be > 0")
	case r.RiskPerTradePct <= 0 || r.RiskPerTradePct > 100:
		return invalid("risk.riskPerTradePct must be in (0, 100]")
	case r.RiskRewardRatio <= 0:
		return invalid("risk.riskRewardRatio must be > 0")
	case r.Leverage <= 0:
		return invalid("risk.leverage must be > 0")
	case r.MaxLeverageCap < 0:
		return invalid("risk.maxLeverageCap must be >= 0")
	case r.AbsoluteNotionalCap < 0:
		return invalid("risk.absoluteNotionalCap must be >= 0")
	case r.MinNotional < 0:
		return invalid("risk.minNotional must be >= 0")
	case r.FeePct < 0 || r.FeePct >= 100:
		return invalid("risk.feePct must be in [0, 100)")
	case r.TrailingStopActivationRR < 0:
		return invalid("risk.trailingStopActivationRR must be >= 0")
	case r.TrailingStopCallbackRatePct < 0 || r.TrailingStopCallbackRatePct >= 100:
		return invalid("risk.trailingStopCallbackRatePct must be in [0, 100)")
	case r.ATRMultiplierSL <= 0:
		return invalid("risk.atrMultiplierSL must be > 0")
	case r.MinSLPct < 0 || r.MinSLPct >= 100:
		return invalid("risk.minSLPct must be in [0, 100)")
	}

	// Features; zero periods take the provider defaults
	f := c.Features
	for name, v := range map[string]int{
		"atrPeriod":        f.ATRPeriod,
		"adxPeriod":        f.ADXPeriod,
		"tenkanPeriod":     f.TenkanPeriod,
		"kijunPeriod":      f.KijunPeriod,
		"senkouBPeriod":    f.SenkouBPeriod,
		"displacement":     f.Displacement,
		"supertrendPeriod": f.SupertrendPeriod,
	} {
		if v < 0 {
			return invalid("features.%s must be >= 0, got %d", name, v)
		}
	}
	if f.SupertrendMultiplier < 0 {
		return invalid("features.supertrendMultiplier must be >= 0")
	}

	// Optimizer
	o := c.Optimizer
	if o.MaxDrawdownConstraint <= 0 || o.MaxDrawdownConstraint > 100 {
		return invalid("optimizer.maxDrawdownConstraint must be in (0, 100]")
	}
	if o.MinTrades < 0 {
		return invalid("optimizer.minTrades must be >= 0")
	}
	if o.MinWinRatePct < 0 || o.MinWinRatePct > 100 {
		return invalid("optimizer.minWinRatePct must be in [0, 100]")
	}
	if o.Workers < 0 {
		return invalid("optimizer.workers must be >= 0")
	}

	// Data
	if c.Data.CacheDir == "" {
		c.Data.CacheDir = "./data"
	}
	for i, s := range c.Data.Symbols {
		c.Data.Symbols[i] = strings.ToUpper(strings.TrimSpace(s))
	}
	for _, tf := range c.Data.Timeframes {
		if _, err := domain.ParseTimeframe(tf); err != nil {
			return invalid("data.timeframes: %v", err)
		}
	}

	// Storage
	if !c.Storage.UseMemory && c.Storage.PostgresDSN == "" {
		return invalid("storage.postgresDSN is required unless storage.useMemory is set")
	}

	// Logging
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		return invalid("logging.level: %v", err)
	}
	return nil
}

// StructureParams returns the engine parameters.
func (c *Config) StructureParams() domain.StructureParams {
	mode, _ := domain.ParseMitigationMode(c.Structure.OBMitigation)
	return domain.StructureParams{
		SwingLength:    c.Structure.SwingsLength,
		InternalLength: c.Structure.InternalLength,
		Mitigation:     mode,
	}
}

// SignalParams returns the signal evaluation parameters.
func (c *Config) SignalParams() domain.SignalParams {
	return domain.SignalParams{
		Mode:          domain.SignalMode(c.Signal.Mode),
		UseADXFilter:  c.Signal.UseADXFilter,
		ADXThreshold:  c.Signal.ADXThreshold,
		ConfirmBars:   c.Signal.ConfirmBars,
		UseSupertrend: c.Signal.UseSupertrend,
		HTFTimeframe:  c.Signal.HTFTimeframe,
	}
}

// FeatureParams returns the indicator periods.
func (c *Config) FeatureParams() domain.FeatureParams {
	f := c.Features
	return domain.FeatureParams{
		ATRPeriod:            f.ATRPeriod,
		ADXPeriod:            f.ADXPeriod,
		TenkanPeriod:         f.TenkanPeriod,
		KijunPeriod:          f.KijunPeriod,
		SenkouBPeriod:        f.SenkouBPeriod,
		Displacement:         f.Displacement,
		SupertrendPeriod:     f.SupertrendPeriod,
		SupertrendMultiplier: f.SupertrendMultiplier,
	}
}

// RiskParams returns the sizing parameters with percentages as fractions.
func (c *Config) RiskParams() domain.RiskParams {
	r := c.Risk
	return domain.RiskParams{
		InitialCapital:       r.InitialCapital,
		RiskPerTrade:         r.RiskPerTradePct / 100,
		RiskRewardRatio:      r.RiskRewardRatio,
		Leverage:             r.Leverage,
		MaxLeverageCap:       r.MaxLeverageCap,
		AbsoluteNotionalCap:  r.AbsoluteNotionalCap,
		MinNotional:          r.MinNotional,
		Fee:                  r.FeePct / 100,
		TrailingActivationRR: r.TrailingStopActivationRR,
		TrailingCallbackRate: r.TrailingStopCallbackRatePct / 100,
		ATRMultiplierSL:      r.ATRMultiplierSL,
		MinSL:                r.MinSLPct / 100,
	}
}

// OptimizerParams returns the search parameters with the drawdown target as
// a fraction.
func (c *Config) OptimizerParams() optimizer.Params {
	return optimizer.Params{
		TargetMaxDrawdown: c.Optimizer.MaxDrawdownConstraint / 100,
		InitialCapital:    c.Risk.InitialCapital,
		Workers:           c.Optimizer.Workers,
	}
}

// DecisionThresholds returns the pruning thresholds as fractions. The
// drawdown target is enforced by the optimizer itself and stays disabled here.
func (c *Config) DecisionThresholds() decision.Thresholds {
	return decision.Thresholds{
		MinTrades:  c.Optimizer.MinTrades,
		MinWinRate: c.Optimizer.MinWinRatePct / 100,
	}
}

// PruningEnabled reports whether any pruning threshold is set.
func (c *Config) PruningEnabled() bool {
	return c.Optimizer.MinTrades > 0 || c.Optimizer.MinWinRatePct > 0
}

// StrategyConfig assembles the full parameter set of one series.
func (c *Config) StrategyConfig(symbol, timeframe string) domain.StrategyConfig {
	return domain.StrategyConfig{
		Symbol:    strings.ToUpper(symbol),
		Timeframe: timeframe,
		Structure: c.StructureParams(),
		Signal:    c.SignalParams(),
		Features:  c.FeatureParams(),
		Risk:      c.RiskParams(),
	}
}

// StrategyConfigs returns one config per configured symbol and timeframe,
// symbols outer, timeframes inner.
func (c *Config) StrategyConfigs() []domain.StrategyConfig {
	out := make([]domain.StrategyConfig, 0, len(c.Data.Symbols)*len(c.Data.Timeframes))
	for _, s := range c.Data.Symbols {
		for _, tf := range c.Data.Timeframes {
			out = append(out, c.StrategyConfig(s, tf))
		}
	}
	return out
}

// Apply configures level and format of logger.
func (l LoggingConfig) Apply(logger *logrus.Logger) error {
	level, err := logrus.ParseLevel(l.Level)
	if err != nil {
		return err
	}
	logger.SetLevel(level)
	if l.JSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}
