// Package optimizer selects a strategy set with a greedy, drawdown-constrained
// search over portfolio simulations.
package optimizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"smc-lab/internal/decision"
	"smc-lab/internal/domain"
	"smc-lab/internal/features"
	"smc-lab/internal/idhash"
	"smc-lab/internal/observability"
	"smc-lab/internal/portfolio"
)

// Optimizer errors
var (
	ErrNoSurvivors   = errors.New("no strategy satisfies the drawdown target")
	ErrInvalidTarget = errors.New("target max drawdown must be positive")
)

// Rejection reasons
const (
	RejectLiquidated  = "liquidated"
	RejectMaxDrawdown = "max_drawdown"
	RejectPruned      = "pruned"
)

// Params configures the search. TargetMaxDrawdown is a fraction (0.3 = 30%).
type Params struct {
	TargetMaxDrawdown float64
	InitialCapital    float64 // 0 takes the first input's risk capital for every run
	Workers           int     // parallel simulations, <= 0 means 1
}

// Options contains configuration for creating an Optimizer.
type Options struct {
	Params   Params
	Decision *decision.Evaluator // optional pruning of individual runs
	Logger   logrus.FieldLogger
	Now      func() time.Time // defaults to time.Now
}

// Optimizer runs the greedy portfolio search.
type Optimizer struct {
	params   Params
	decision *decision.Evaluator
	log      logrus.FieldLogger
	now      func() time.Time
}

// Candidate is the individual run of one input.
type Candidate struct {
	Index    int
	Key      string
	Symbol   string
	Result   *domain.PortfolioResult
	Verdict  *decision.Result // nil without a decision evaluator
	Rejected string           // empty for survivors
}

// Report is the detailed outcome of one optimizer run.
type Report struct {
	Selection  *domain.Selection
	Candidates []Candidate // in input order
}

// New creates an optimizer.
func New(opts Options) (*Optimizer, error) {
	if !(opts.Params.TargetMaxDrawdown > 0) {
		return nil, ErrInvalidTarget
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	if opts.Params.Workers <= 0 {
		opts.Params.Workers = 1
	}
	return &Optimizer{
		params:   opts.Params,
		decision: opts.Decision,
		log:      log,
		now:      now,
	}, nil
}

// Optimize returns the selected strategy set.
func (o *Optimizer) Optimize(ctx context.Context, inputs []portfolio.Input) (*domain.Selection, error) {
	rep, err := o.Run(ctx, inputs)
	if err != nil {
		return nil, err
	}
	return rep.Selection, nil
}

// Run executes the search:
//  1. Simulate every input alone; discard liquidated runs and runs whose
//     drawdown exceeds the target (and, when configured, pruned runs)
//  2. Seed with the best survivor
//  3. Each round, simulate the current set plus every survivor on an unused
//     symbol and keep the best strictly improving candidate within the target
//  4. Stop when no candidate improves final capital
//
// "Best" is the highest final capital, then the lower max drawdown, then the
// earlier input. When nothing survives step 1, the report is returned with
// ErrNoSurvivors.
func (o *Optimizer) Run(ctx context.Context, inputs []portfolio.Input) (*Report, error) {
	started := time.Now()
	if len(inputs) == 0 {
		return nil, portfolio.ErrNoInputs
	}

	prepared, err := prepare(inputs)
	if err != nil {
		return nil, err
	}
	capital := o.params.InitialCapital
	if capital == 0 {
		capital = prepared[0].Config.Risk.InitialCapital
	}
	if !(capital > 0) {
		return nil, portfolio.ErrNoCapital
	}

	runID := idhash.NewRunID()
	log := o.log.WithFields(logrus.Fields{
		"run_id":    runID,
		"inputs":    len(prepared),
		"target_dd": fmt.Sprintf("%.2f%%", o.params.TargetMaxDrawdown*100),
	})

	// 1. Individual runs
	sets := make([][]portfolio.Input, len(prepared))
	for i := range prepared {
		sets[i] = []portfolio.Input{prepared[i]}
	}
	results, err := o.simulateAll(ctx, sets, capital)
	if err != nil {
		return nil, err
	}

	rep := &Report{Candidates: make([]Candidate, len(prepared))}
	var survivors []int
	for i, res := range results {
		c := Candidate{
			Index:  i,
			Key:    prepared[i].Key(),
			Symbol: strings.ToUpper(prepared[i].Config.Symbol),
			Result: res,
		}
		c.Rejected, c.Verdict, err = o.screen(c.Key, res)
		if err != nil {
			return nil, err
		}
		if c.Rejected != "" {
			observability.RecordCandidateRejected(c.Rejected)
			log.WithFields(logrus.Fields{
				"strategy_key": c.Key,
				"reason":       c.Rejected,
				"max_dd_pct":   fmt.Sprintf("%.2f", res.MaxDrawdownPct),
			}).Debug("candidate rejected")
		} else {
			survivors = append(survivors, i)
		}
		rep.Candidates[i] = c
	}

	if len(survivors) == 0 {
		log.Warn("no candidate survived individual screening")
		return rep, ErrNoSurvivors
	}

	// 2. Seed
	seed := survivors[0]
	for _, i := range survivors[1:] {
		if better(results[i], results[seed]) {
			seed = i
		}
	}
	selected := []int{seed}
	used := map[string]bool{rep.Candidates[seed].Symbol: true}
	current := results[seed]
	log.WithFields(logrus.Fields{
		"strategy_key": rep.Candidates[seed].Key,
		"end_capital":  fmt.Sprintf("%.2f", current.EndCapital),
	}).Info("portfolio seeded")

	// 3. Greedy rounds
	rounds := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var pool []int
		for _, i := range survivors {
			if !used[rep.Candidates[i].Symbol] {
				pool = append(pool, i)
			}
		}
		if len(pool) == 0 {
			break
		}

		sets := make([][]portfolio.Input, len(pool))
		for k, i := range pool {
			set := make([]portfolio.Input, 0, len(selected)+1)
			for _, s := range selected {
				set = append(set, prepared[s])
			}
			sets[k] = append(set, prepared[i])
		}
		trial, err := o.simulateAll(ctx, sets, capital)
		if err != nil {
			return nil, err
		}

		best := -1
		for k, res := range trial {
			if !o.withinTarget(res) || !(res.EndCapital > current.EndCapital) {
				continue
			}
			if best < 0 || better(res, trial[best]) {
				best = k
			}
		}
		if best < 0 {
			break
		}

		added := pool[best]
		selected = append(selected, added)
		used[rep.Candidates[added].Symbol] = true
		current = trial[best]
		rounds++
		observability.RecordOptimizerRound()
		log.WithFields(logrus.Fields{
			"round":        rounds,
			"strategy_key": rep.Candidates[added].Key,
			"end_capital":  fmt.Sprintf("%.2f", current.EndCapital),
			"max_dd_pct":   fmt.Sprintf("%.2f", current.MaxDrawdownPct),
		}).Info("strategy added")
	}

	// 4. Output
	sel := &domain.Selection{
		RunID:                runID,
		CreatedAt:            o.now().UnixMilli(),
		TargetMaxDrawdownPct: o.params.TargetMaxDrawdown * 100,
		Rounds:               rounds,
		Result:               current,
	}
	for _, i := range selected {
		sel.Keys = append(sel.Keys, rep.Candidates[i].Key)
		sel.Symbols = append(sel.Symbols, rep.Candidates[i].Symbol)
	}
	rep.Selection = sel

	observability.RecordOptimizerRun(time.Since(started).Seconds())
	observability.MarkSuccess(time.Now().Unix())
	log.WithFields(logrus.Fields{
		"selected":    strings.Join(sel.Keys, ","),
		"rounds":      rounds,
		"end_capital": fmt.Sprintf("%.2f", current.EndCapital),
		"max_dd_pct":  fmt.Sprintf("%.2f", current.MaxDrawdownPct),
	}).Info("optimization complete")

	return rep, nil
}

// screen applies the individual survival rules.
func (o *Optimizer) screen(key string, res *domain.PortfolioResult) (string, *decision.Result, error) {
	var verdict *decision.Result
	if o.decision != nil {
		v, err := o.decision.EvaluatePortfolio(key, res)
		if err != nil {
			return "", nil, fmt.Errorf("screen %s: %w", key, err)
		}
		verdict = v
	}

	switch {
	case res.Liquidated:
		return RejectLiquidated, verdict, nil
	case res.MaxDrawdownPct > o.params.TargetMaxDrawdown*100:
		return RejectMaxDrawdown, verdict, nil
	case verdict != nil && !verdict.Keep():
		return RejectPruned, verdict, nil
	}
	return "", verdict, nil
}

func (o *Optimizer) withinTarget(res *domain.PortfolioResult) bool {
	return !res.Liquidated && res.MaxDrawdownPct <= o.params.TargetMaxDrawdown*100
}

// simulateAll runs independent portfolio simulations from the same starting
// capital on a bounded worker group. Results keep the order of sets.
func (o *Optimizer) simulateAll(ctx context.Context, sets [][]portfolio.Input, capital float64) ([]*domain.PortfolioResult, error) {
	results := make([]*domain.PortfolioResult, len(sets))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.params.Workers)
	for i, set := range sets {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			started := time.Now()
			res, err := portfolio.Simulate(set, portfolio.Params{InitialCapital: capital})
			if err != nil {
				return err
			}
			observability.RecordCandidateEvaluated()
			observability.RecordPortfolioRun(res.Liquidated, time.Since(started).Seconds())
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// prepare validates keys and computes features once per input so that
// repeated simulations share them read-only.
func prepare(inputs []portfolio.Input) ([]portfolio.Input, error) {
	out := make([]portfolio.Input, len(inputs))
	keys := make(map[string]struct{}, len(inputs))
	for i, in := range inputs {
		key := in.Key()
		if _, dup := keys[key]; dup {
			return nil, fmt.Errorf("%w: %s", portfolio.ErrDuplicateKey, key)
		}
		keys[key] = struct{}{}
		if in.Series == nil {
			return nil, fmt.Errorf("%s: %w", key, domain.ErrEmptySeries)
		}
		if in.Features == nil {
			in.Features = features.NewStandard(in.Config.Features).Annotate(in.Series.Candles)
		}
		out[i] = in
	}
	return out, nil
}

// better reports whether a ranks above b: higher final capital, then lower
// max drawdown. Equal results keep the earlier one.
func better(a, b *domain.PortfolioResult) bool {
	if a.EndCapital != b.EndCapital {
		return a.EndCapital > b.EndCapital
	}
	return a.MaxDrawdownPct < b.MaxDrawdownPct
}
