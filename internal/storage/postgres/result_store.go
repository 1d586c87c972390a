package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"smc-lab/internal/domain"
	"smc-lab/internal/storage"
)

// ResultStore implements storage.ResultStore using PostgreSQL.
type ResultStore struct {
	pool *Pool
}

// NewResultStore creates a new ResultStore.
func NewResultStore(pool *Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ResultStore = (*ResultStore)(nil)

const resultColumns = `
	strategy_key, symbol, timeframe, status,
	start_capital, end_capital, total_pnl_pct, trades_count,
	win_rate, max_drawdown_pct, liquidated`

// Insert adds a result. Returns ErrDuplicateKey if (run_id, key) exists.
func (s *ResultStore) Insert(ctx context.Context, runID string, r *domain.StrategyResult) error {
	if runID == "" || r == nil || r.Key == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO strategy_results (run_id,` + resultColumns + `
		) VALUES (
			$1,
			$2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12
		)
	`

	_, err := s.pool.Exec(ctx, query,
		runID,
		r.Key, r.Symbol, r.Timeframe, string(r.Status),
		r.StartCapital, r.EndCapital, r.TotalPnLPct, r.TradesCount,
		r.WinRate, r.MaxDrawdownPct, r.Liquidated,
	)
	return translate(err, "insert strategy result")
}

// Get retrieves one result. Returns ErrNotFound if not exists.
func (s *ResultStore) Get(ctx context.Context, runID, key string) (*domain.StrategyResult, error) {
	query := `
		SELECT` + resultColumns + `
		FROM strategy_results
		WHERE run_id = $1 AND strategy_key = $2
	`

	r, err := scanResult(s.pool.QueryRow(ctx, query, runID, key))
	if err != nil {
		return nil, translate(err, "get strategy result")
	}
	return r, nil
}

// GetByRun retrieves all results of a run, ordered by key.
func (s *ResultStore) GetByRun(ctx context.Context, runID string) ([]*domain.StrategyResult, error) {
	query := `
		SELECT` + resultColumns + `
		FROM strategy_results
		WHERE run_id = $1
		ORDER BY strategy_key ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get strategy results by run: %w", err)
	}
	defer rows.Close()

	var results []*domain.StrategyResult
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan strategy result row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate strategy result rows: %w", err)
	}

	return results, nil
}

// scanResult scans a single row into a StrategyResult.
func scanResult(row pgx.Row) (*domain.StrategyResult, error) {
	var r domain.StrategyResult
	var status string

	err := row.Scan(
		&r.Key, &r.Symbol, &r.Timeframe, &status,
		&r.StartCapital, &r.EndCapital, &r.TotalPnLPct, &r.TradesCount,
		&r.WinRate, &r.MaxDrawdownPct, &r.Liquidated,
	)
	if err != nil {
		return nil, err
	}
	r.Status = domain.ResultStatus(status)

	return &r, nil
}
