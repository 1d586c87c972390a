package verification

import (
	"context"
	"errors"
	"fmt"

	"smc-lab/internal/domain"
	"smc-lab/internal/simulation"
	"smc-lab/internal/storage"
)

var (
	// ErrTradeNotFound is returned when trade ID doesn't exist.
	ErrTradeNotFound = errors.New("trade not found")

	// ErrUnknownStrategy is returned when no config is registered for a strategy key.
	ErrUnknownStrategy = errors.New("unknown strategy key")
)

// ReplayVerifier re-runs backtests and compares them with stored trades.
type ReplayVerifier struct {
	tradeStore storage.TradeStore
	runner     *simulation.Runner

	// configs maps strategy key to its configuration.
	// Must be pre-populated with every key of the verified runs.
	configs map[string]domain.StrategyConfig
}

// ReplayVerifierOptions contains configuration for creating a ReplayVerifier.
type ReplayVerifierOptions struct {
	TradeStore storage.TradeStore
	Runner     *simulation.Runner // replays without persisting
	Configs    map[string]domain.StrategyConfig
}

// NewReplayVerifier creates a new ReplayVerifier.
func NewReplayVerifier(opts ReplayVerifierOptions) *ReplayVerifier {
	return &ReplayVerifier{
		tradeStore: opts.TradeStore,
		runner:     opts.Runner,
		configs:    opts.Configs,
	}
}

// VerifyTrade verifies a single stored trade by replaying its strategy.
func (v *ReplayVerifier) VerifyTrade(ctx context.Context, runID, tradeID string) (*VerificationResult, error) {
	trades, err := v.tradeStore.GetByRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	for i := range trades {
		if trades[i].TradeID != tradeID {
			continue
		}
		replayed, err := v.replay(ctx, trades[i].StrategyKey)
		if err != nil {
			return nil, err
		}
		return compareOne(&trades[i], replayed), nil
	}
	return nil, ErrTradeNotFound
}

// VerifyRun verifies all trades stored under runID. Each strategy key is
// replayed once.
func (v *ReplayVerifier) VerifyRun(ctx context.Context, runID string) (*VerificationReport, error) {
	trades, err := v.tradeStore.GetByRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	report := &VerificationReport{
		RunID:       runID,
		TotalTrades: len(trades),
		Results:     make([]VerificationResult, 0, len(trades)),
	}

	replays := make(map[string]map[string]*domain.Trade)
	failures := make(map[string]error)
	for i := range trades {
		stored := &trades[i]
		key := stored.StrategyKey

		if _, done := replays[key]; !done && failures[key] == nil {
			replayed, err := v.replay(ctx, key)
			if err != nil {
				failures[key] = err
			} else {
				replays[key] = replayed
			}
		}

		if err := failures[key]; err != nil {
			// Record error as divergence
			report.Results = append(report.Results, VerificationResult{
				TradeID:     stored.TradeID,
				StrategyKey: key,
				StoredPnL:   stored.PnL,
				Divergences: []FieldDivergence{
					{Field: "Error", Expected: nil, Actual: err.Error()},
				},
			})
			report.DivergentTrades++
			continue
		}

		result := compareOne(stored, replays[key])
		report.Results = append(report.Results, *result)
		if result.Match {
			report.MatchedTrades++
		} else {
			report.DivergentTrades++
		}
	}

	return report, nil
}

// replay runs the backtest of key and indexes its trades by ID.
func (v *ReplayVerifier) replay(ctx context.Context, key string) (map[string]*domain.Trade, error) {
	cfg, ok := v.configs[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, key)
	}
	res, err := v.runner.Run(ctx, "", cfg)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*domain.Trade, len(res.Trades))
	for i := range res.Trades {
		out[res.Trades[i].TradeID] = &res.Trades[i]
	}
	return out, nil
}

func compareOne(stored *domain.Trade, replayed map[string]*domain.Trade) *VerificationResult {
	r, ok := replayed[stored.TradeID]
	if !ok {
		return &VerificationResult{
			TradeID:     stored.TradeID,
			StrategyKey: stored.StrategyKey,
			StoredPnL:   stored.PnL,
			Divergences: []FieldDivergence{
				{Field: "TradeID", Expected: stored.TradeID, Actual: nil},
			},
		}
	}
	divergences := CompareTrades(stored, r)
	return &VerificationResult{
		TradeID:     stored.TradeID,
		StrategyKey: stored.StrategyKey,
		Match:       len(divergences) == 0,
		Divergences: divergences,
		StoredPnL:   stored.PnL,
		ReplayedPnL: r.PnL,
	}
}
