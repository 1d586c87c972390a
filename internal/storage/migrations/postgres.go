package migrations

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresExecer executes a multi-statement SQL script.
// *pgxpool.Pool and *pgx.Conn satisfy it.
type PostgresExecer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// RunPostgresMigrations creates the trades, strategy_results and selections
// tables. Each file is sent as one script; all of them are idempotent.
func RunPostgresMigrations(ctx context.Context, db PostgresExecer) error {
	files, err := scripts("postgres")
	if err != nil {
		return err
	}
	for _, f := range files {
		if _, err := db.Exec(ctx, f.body); err != nil {
			return fmt.Errorf("apply migration %s: %w", f.name, err)
		}
	}
	return nil
}
