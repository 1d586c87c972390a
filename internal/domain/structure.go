package domain

import (
	"fmt"
	"strings"
)

// Scope selects which pivot window a structure record belongs to.
type Scope int8

const (
	ScopeInternal Scope = iota
	ScopeSwing
)

func (s Scope) String() string {
	switch s {
	case ScopeInternal:
		return "INTERNAL"
	case ScopeSwing:
		return "SWING"
	default:
		return fmt.Sprintf("Scope(%d)", int8(s))
	}
}

// StructureKind tags a structure event.
type StructureKind int8

const (
	KindBOS StructureKind = iota + 1
	KindCHoCH
	KindFVG
)

func (k StructureKind) String() string {
	switch k {
	case KindBOS:
		return "BOS"
	case KindCHoCH:
		return "CHOCH"
	case KindFVG:
		return "FVG"
	default:
		return fmt.Sprintf("Kind(%d)", int8(k))
	}
}

// MitigationMode selects the price source used to invalidate order blocks.
// The zero value is deliberately invalid so callers must choose one.
type MitigationMode int8

const (
	MitigationUnset MitigationMode = iota
	MitigationClose
	MitigationHighLow
)

func (m MitigationMode) String() string {
	switch m {
	case MitigationClose:
		return "Close"
	case MitigationHighLow:
		return "HighLow"
	default:
		return "Unset"
	}
}

// IsValid reports whether the mode is Close or HighLow.
func (m MitigationMode) IsValid() bool {
	return m == MitigationClose || m == MitigationHighLow
}

// ParseMitigationMode accepts "Close", "HighLow" and "High/Low" (case-insensitive).
func ParseMitigationMode(s string) (MitigationMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "close":
		return MitigationClose, nil
	case "highlow", "high/low", "high_low":
		return MitigationHighLow, nil
	default:
		return MitigationUnset, fmt.Errorf("unknown mitigation mode %q", s)
	}
}

// MarshalText encodes the mode by name.
func (m MitigationMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText decodes a mode name.
func (m *MitigationMode) UnmarshalText(b []byte) error {
	v, err := ParseMitigationMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// StructureParams configures a market structure engine.
type StructureParams struct {
	SwingLength    int            `json:"swingsLength" yaml:"swingsLength"`
	InternalLength int            `json:"internalLength" yaml:"internalLength"`
	Mitigation     MitigationMode `json:"obMitigation" yaml:"obMitigation"`
}

// Pivot is the most recent confirmed extreme of one scope.
// BarIndex is -1 until the first pivot is confirmed.
type Pivot struct {
	CurrentLevel float64
	LastLevel    float64
	Crossed      bool
	BarTime      int64
	BarIndex     int
}

// Active reports whether the pivot is confirmed and not yet broken.
func (p Pivot) Active() bool {
	return p.BarIndex >= 0 && !p.Crossed
}

// StructureEvent is one entry of the append-only event log.
type StructureEvent struct {
	Time  int64         // bar time of detection (ms)
	Index int           // bar index of detection
	Kind  StructureKind // BOS | CHOCH | FVG
	Scope Scope         // pivot scope; ScopeInternal for FVG events
	Bias  Bias          // direction of the break or gap
	Level float64       // broken pivot level, or gap boundary for FVG
	Ref   int           // arena index of the order block or gap created with the event, -1 if none
}

// OrderBlock is the candle range implicated in a structural break.
type OrderBlock struct {
	BarHigh        float64
	BarLow         float64
	BarTime        int64
	BarIndex       int
	Bias           Bias
	Scope          Scope
	CreatedIndex   int  // bar index of the break that produced the block
	Mitigated      bool // monotonic false -> true
	MitigatedIndex int  // -1 while active
}

// FairValueGap is a three-bar price gap. Top >= Bottom always.
type FairValueGap struct {
	Top            float64
	Bottom         float64
	Bias           Bias
	StartTime      int64
	Index          int  // bar index where the gap was detected
	Mitigated      bool // monotonic false -> true
	MitigatedIndex int  // -1 while active
}
