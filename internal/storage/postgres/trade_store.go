package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"smc-lab/internal/domain"
	"smc-lab/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

const tradeColumns = `
	trade_id, strategy_key, symbol, side,
	entry_time, entry_price, stop_loss, take_profit, notional, margin,
	exit_time, exit_price, exit_reason,
	gross_pnl, fees, pnl, pnl_pct, outcome_class, capital_after,
	trailing, peak_price`

// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
func (s *TradeStore) InsertBulk(ctx context.Context, runID string, trades []domain.Trade) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(trades) == 0 {
		return nil
	}

	query := `
		INSERT INTO trades (run_id,` + tradeColumns + `
		) VALUES (
			$1,
			$2, $3, $4, $5,
			$6, $7, $8, $9, $10, $11,
			$12, $13, $14,
			$15, $16, $17, $18, $19, $20,
			$21, $22
		)
	`

	// all or nothing: a duplicate rolls back the whole batch
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for i := range trades {
			t := &trades[i]
			_, err := tx.Exec(ctx, query,
				runID,
				t.TradeID, t.StrategyKey, t.Symbol, t.Side.String(),
				t.EntryTime, t.EntryPrice, t.StopLoss, t.TakeProfit, t.Notional, t.Margin,
				t.ExitTime, t.ExitPrice, string(t.ExitReason),
				t.GrossPnL, t.Fees, t.PnL, t.PnLPct, t.OutcomeClass, t.CapitalAfter,
				t.Trailing, t.PeakPrice,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
	return translate(err, "insert trades")
}

// GetByRun retrieves all trades of a run, ordered by entry time ASC.
func (s *TradeStore) GetByRun(ctx context.Context, runID string) ([]domain.Trade, error) {
	query := `
		SELECT` + tradeColumns + `
		FROM trades
		WHERE run_id = $1
		ORDER BY entry_time ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get trades by run: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// GetByStrategyKey retrieves trades of one strategy key within a run.
func (s *TradeStore) GetByStrategyKey(ctx context.Context, runID, key string) ([]domain.Trade, error) {
	query := `
		SELECT` + tradeColumns + `
		FROM trades
		WHERE run_id = $1 AND strategy_key = $2
		ORDER BY entry_time ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, runID, key)
	if err != nil {
		return nil, fmt.Errorf("get trades by strategy key: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// scanTrades scans multiple rows into a slice of Trade.
func scanTrades(rows pgx.Rows) ([]domain.Trade, error) {
	var trades []domain.Trade

	for rows.Next() {
		var t domain.Trade
		var side, exitReason string

		err := rows.Scan(
			&t.TradeID, &t.StrategyKey, &t.Symbol, &side,
			&t.EntryTime, &t.EntryPrice, &t.StopLoss, &t.TakeProfit, &t.Notional, &t.Margin,
			&t.ExitTime, &t.ExitPrice, &exitReason,
			&t.GrossPnL, &t.Fees, &t.PnL, &t.PnLPct, &t.OutcomeClass, &t.CapitalAfter,
			&t.Trailing, &t.PeakPrice,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}
		if err := t.Side.UnmarshalText([]byte(side)); err != nil {
			return nil, fmt.Errorf("trade %s: %w", t.TradeID, err)
		}
		t.ExitReason = domain.ExitReason(exitReason)

		trades = append(trades, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}

	return trades, nil
}
