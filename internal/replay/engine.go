package replay

import (
	"context"
)

// Bar points at the candle of one series present at a step.
type Bar struct {
	Series int // position of the series in the merged input
	Index  int // candle index within that series
}

// Step is one timestamp of the merged timeline.
// Bars lists only the series that have a candle at Timestamp, ordered by Series.
type Step struct {
	Timestamp int64
	Bars      []Bar
}

// Has reports whether series s has a candle at this step, and its index.
func (s *Step) Has(series int) (int, bool) {
	for _, b := range s.Bars {
		if b.Series == series {
			return b.Index, true
		}
		if b.Series > series {
			break
		}
	}
	return -1, false
}

// ReplayEngine processes timeline steps in order.
type ReplayEngine interface {
	// OnStep is called for each step in ascending timestamp order.
	OnStep(ctx context.Context, step *Step) error
}
