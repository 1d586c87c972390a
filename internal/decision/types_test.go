package decision

import (
	"errors"
	"testing"
)

func TestInput_Validate(t *testing.T) {
	validInput := &Input{
		Key:            "BTCUSDT_1h",
		TradesCount:    3,
		WinRatePct:     50.0,
		MaxDrawdownPct: 10,
	}

	// Valid input
	if err := validInput.Validate(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	// Nil input
	var nilInput *Input
	if err := nilInput.Validate(); err == nil {
		t.Error("expected error for nil input")
	}

	// Empty key
	input := *validInput
	input.Key = ""
	if err := input.Validate(); !errors.Is(err, ErrEmptyKey) {
		t.Errorf("expected ErrEmptyKey, got %v", err)
	}

	// Negative trades
	input = *validInput
	input.TradesCount = -1
	if err := input.Validate(); !errors.Is(err, ErrNegativeTrades) {
		t.Errorf("expected ErrNegativeTrades, got %v", err)
	}

	// Win rate out of range
	input = *validInput
	input.WinRatePct = 101
	if err := input.Validate(); !errors.Is(err, ErrInvalidWinRate) {
		t.Errorf("expected ErrInvalidWinRate, got %v", err)
	}

	// Negative drawdown
	input = *validInput
	input.MaxDrawdownPct = -0.1
	if err := input.Validate(); !errors.Is(err, ErrNegativeDrawdown) {
		t.Errorf("expected ErrNegativeDrawdown, got %v", err)
	}

	// Boundary cases - valid
	input = *validInput
	input.WinRatePct = 0
	if err := input.Validate(); err != nil {
		t.Errorf("0%% should be valid, got %v", err)
	}

	input.WinRatePct = 100
	if err := input.Validate(); err != nil {
		t.Errorf("100%% should be valid, got %v", err)
	}
}
