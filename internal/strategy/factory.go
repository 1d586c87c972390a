package strategy

import (
	"errors"
	"fmt"

	"smc-lab/internal/domain"
)

// Factory errors
var (
	ErrUnknownSignalMode    = errors.New("unknown signal mode")
	ErrInvalidADXThreshold  = errors.New("adx filter requires a non-negative threshold")
	ErrInvalidConfirmBars   = errors.New("confirm bars must be non-negative")
	ErrMissingStructureMode = errors.New("smc mode requires an explicit mitigation mode")
)

// FromConfig creates the filtered evaluator of a strategy.
// Validates required parameters per signal mode.
func FromConfig(cfg domain.StrategyConfig) (Evaluator, error) {
	sig := cfg.Signal
	if sig.UseADXFilter && sig.ADXThreshold < 0 {
		return nil, ErrInvalidADXThreshold
	}

	var inner Evaluator
	switch sig.Mode {
	case domain.SignalModeSMC:
		if !cfg.Structure.Mitigation.IsValid() {
			return nil, ErrMissingStructureMode
		}
		inner = NewZoneEvaluator()
	case domain.SignalModeTrend:
		if sig.ConfirmBars < 0 {
			return nil, ErrInvalidConfirmBars
		}
		inner = NewTrendEvaluator(sig.ConfirmBars, sig.UseSupertrend)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSignalMode, sig.Mode)
	}

	return &Filtered{
		Inner:        inner,
		UseADX:       sig.UseADXFilter,
		ADXThreshold: sig.ADXThreshold,
	}, nil
}

// MinBars returns the minimum history a strategy needs before it can signal.
// Shorter series produce an insufficient-data result.
func MinBars(cfg domain.StrategyConfig) int {
	n := cfg.Structure.InternalLength + 1
	if cfg.Features.ATRPeriod > n {
		n = cfg.Features.ATRPeriod
	}
	switch cfg.Signal.Mode {
	case domain.SignalModeSMC:
		// Internal breaks need a confirmed pivot plus the FVG lookback.
		if n < 3 {
			n = 3
		}
	case domain.SignalModeTrend:
		cloud := cfg.Features.SenkouBPeriod + cfg.Features.Displacement
		if cloud > n {
			n = cloud
		}
	}
	return n
}
