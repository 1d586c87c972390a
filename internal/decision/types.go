package decision

import "errors"

// Verdict is the pruning outcome for one candidate.
type Verdict string

const (
	VerdictKeep  Verdict = "KEEP"
	VerdictPrune Verdict = "PRUNE"
)

// Validation errors
var (
	ErrEmptyKey          = errors.New("candidate key is empty")
	ErrNegativeTrades    = errors.New("trades count must be non-negative")
	ErrInvalidWinRate    = errors.New("win rate must be within [0, 100]")
	ErrNegativeDrawdown  = errors.New("max drawdown must be non-negative")
	ErrInvalidThresholds = errors.New("thresholds must be non-negative")
)

// Thresholds are the pruning limits. Fractions, zero disables a check.
type Thresholds struct {
	MinTrades   int
	MinWinRate  float64 // 0.4 = 40%
	MaxDrawdown float64 // 0.3 = 30%
}

// Validate checks thresholds.
func (t Thresholds) Validate() error {
	if t.MinTrades < 0 || t.MinWinRate < 0 || t.MaxDrawdown < 0 {
		return ErrInvalidThresholds
	}
	return nil
}

// Input contains the metrics of one simulated candidate.
// Percent fields are in percent, as on the result records.
type Input struct {
	Key            string
	TradesCount    int
	WinRatePct     float64
	MaxDrawdownPct float64
	Liquidated     bool
}

// Validate checks input invariants.
func (in *Input) Validate() error {
	if in == nil {
		return ErrEmptyKey
	}
	if in.Key == "" {
		return ErrEmptyKey
	}
	if in.TradesCount < 0 {
		return ErrNegativeTrades
	}
	if in.WinRatePct < 0 || in.WinRatePct > 100 {
		return ErrInvalidWinRate
	}
	if in.MaxDrawdownPct < 0 {
		return ErrNegativeDrawdown
	}
	return nil
}

// CriterionResult represents pass/fail for one criterion.
type CriterionResult struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// Result contains the verdict with its checklist.
type Result struct {
	Key      string
	Verdict  Verdict
	Criteria []CriterionResult
}

// Keep reports whether the candidate survived.
func (r *Result) Keep() bool {
	return r.Verdict == VerdictKeep
}

// Failed returns the names of failing criteria.
func (r *Result) Failed() []string {
	var out []string
	for _, c := range r.Criteria {
		if !c.Pass {
			out = append(out, c.Name)
		}
	}
	return out
}
