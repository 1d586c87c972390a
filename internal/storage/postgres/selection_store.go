package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"smc-lab/internal/domain"
	"smc-lab/internal/storage"
)

// SelectionStore implements storage.SelectionStore using PostgreSQL.
// The portfolio result is stored as JSONB without its trades.
type SelectionStore struct {
	pool *Pool
}

// NewSelectionStore creates a new SelectionStore.
func NewSelectionStore(pool *Pool) *SelectionStore {
	return &SelectionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SelectionStore = (*SelectionStore)(nil)

const selectionColumns = `
	run_id, created_at, target_max_drawdown_pct, keys, symbols, rounds, result`

// Insert adds a selection. Returns ErrDuplicateKey if run_id exists.
func (s *SelectionStore) Insert(ctx context.Context, sel *domain.Selection) error {
	if sel == nil || sel.RunID == "" {
		return storage.ErrInvalidInput
	}

	var result []byte
	if sel.Result != nil {
		var err error
		result, err = json.Marshal(sel.Result)
		if err != nil {
			return fmt.Errorf("encode selection result: %w", err)
		}
	}

	query := `
		INSERT INTO selections (` + selectionColumns + `
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.pool.Exec(ctx, query,
		sel.RunID, sel.CreatedAt, sel.TargetMaxDrawdownPct,
		nonNil(sel.Keys), nonNil(sel.Symbols), sel.Rounds, result,
	)
	return translate(err, "insert selection")
}

// Get retrieves a selection by run ID. Returns ErrNotFound if not exists.
func (s *SelectionStore) Get(ctx context.Context, runID string) (*domain.Selection, error) {
	query := `
		SELECT` + selectionColumns + `
		FROM selections
		WHERE run_id = $1
	`

	sel, err := scanSelection(s.pool.QueryRow(ctx, query, runID))
	if err != nil {
		return nil, translate(err, "get selection")
	}
	return sel, nil
}

// Latest retrieves the most recently created selection. Returns ErrNotFound if none.
func (s *SelectionStore) Latest(ctx context.Context) (*domain.Selection, error) {
	query := `
		SELECT` + selectionColumns + `
		FROM selections
		ORDER BY created_at DESC, run_id DESC
		LIMIT 1
	`

	sel, err := scanSelection(s.pool.QueryRow(ctx, query))
	if err != nil {
		return nil, translate(err, "get latest selection")
	}
	return sel, nil
}

// scanSelection scans a single row into a Selection.
func scanSelection(row pgx.Row) (*domain.Selection, error) {
	var sel domain.Selection
	var result []byte

	err := row.Scan(
		&sel.RunID, &sel.CreatedAt, &sel.TargetMaxDrawdownPct,
		&sel.Keys, &sel.Symbols, &sel.Rounds, &result,
	)
	if err != nil {
		return nil, err
	}

	if len(result) > 0 {
		sel.Result = &domain.PortfolioResult{}
		if err := json.Unmarshal(result, sel.Result); err != nil {
			return nil, fmt.Errorf("decode selection result: %w", err)
		}
	}

	return &sel, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
