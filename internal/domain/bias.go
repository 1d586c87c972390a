package domain

import (
	"fmt"
	"strings"
)

// Bias is a directional state: trend of a structure scope, market-wide
// higher-timeframe bias, or the direction of an order block / gap.
type Bias int8

const (
	BiasNeutral Bias = iota
	BiasBullish
	BiasBearish
)

// String returns the canonical upper-case name.
func (b Bias) String() string {
	switch b {
	case BiasNeutral:
		return "NEUTRAL"
	case BiasBullish:
		return "BULLISH"
	case BiasBearish:
		return "BEARISH"
	default:
		return fmt.Sprintf("Bias(%d)", int8(b))
	}
}

// Opposes reports whether a candidate side runs against this bias.
// A neutral bias opposes nothing.
func (b Bias) Opposes(side Side) bool {
	switch b {
	case BiasBullish:
		return side == SideShort
	case BiasBearish:
		return side == SideLong
	case BiasNeutral:
		return false
	default:
		return false
	}
}

// ParseBias parses BULLISH / BEARISH / NEUTRAL (case-insensitive).
func ParseBias(s string) (Bias, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BULLISH":
		return BiasBullish, nil
	case "BEARISH":
		return BiasBearish, nil
	case "NEUTRAL", "":
		return BiasNeutral, nil
	default:
		return BiasNeutral, fmt.Errorf("unknown bias %q", s)
	}
}

// Leg is the direction of the leg currently being built by a pivot window.
// LegNone until the first flip is detected.
type Leg int8

const (
	LegNone Leg = iota
	LegBullish
	LegBearish
)

func (l Leg) String() string {
	switch l {
	case LegNone:
		return "NONE"
	case LegBullish:
		return "BULLISH"
	case LegBearish:
		return "BEARISH"
	default:
		return fmt.Sprintf("Leg(%d)", int8(l))
	}
}

// Side is the direction of a trade.
type Side int8

const (
	SideLong Side = iota + 1
	SideShort
)

func (s Side) String() string {
	switch s {
	case SideLong:
		return "LONG"
	case SideShort:
		return "SHORT"
	default:
		return fmt.Sprintf("Side(%d)", int8(s))
	}
}

// Sign returns +1 for long and -1 for short.
func (s Side) Sign() float64 {
	if s == SideShort {
		return -1
	}
	return 1
}

// Bias returns the bias a side agrees with.
func (s Side) Bias() Bias {
	switch s {
	case SideLong:
		return BiasBullish
	case SideShort:
		return BiasBearish
	default:
		return BiasNeutral
	}
}

// MarshalText encodes the side as LONG / SHORT.
func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes LONG / SHORT.
func (s *Side) UnmarshalText(b []byte) error {
	switch strings.ToUpper(string(b)) {
	case "LONG":
		*s = SideLong
	case "SHORT":
		*s = SideShort
	default:
		return fmt.Errorf("unknown side %q", string(b))
	}
	return nil
}

// MarshalText encodes the bias by name.
func (b Bias) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText decodes a bias name.
func (b *Bias) UnmarshalText(text []byte) error {
	v, err := ParseBias(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}
