package migrate

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// sqlTarget holds the verify and count mechanics shared by the SQL-backed
// targets; only snapshot mechanics and placeholder syntax differ per
// backend.
type sqlTarget struct {
	db     *sql.DB
	logger *zap.Logger

	// tableExists probes for a table in the backend's catalog.
	tableExists func(ctx context.Context, table string) (bool, error)

	// defaultsStmts are the backfill statements applying Defaults, with
	// backend-appropriate placeholders for (chat_model, memory_model).
	defaultsStmts []string
}

// counts returns per-table row counts for every canonical table present.
func (t *sqlTarget) counts(ctx context.Context) (map[string]int, error) {
	out := make(map[string]int)
	for _, table := range canonicalTables {
		ok, err := t.tableExists(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("probing table %s: %w", table, err)
		}
		if !ok {
			continue
		}

		var n int
		if err := t.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM "+table,
		).Scan(&n); err != nil {
			return nil, fmt.Errorf("counting %s: %w", table, err)
		}
		out[table] = n
	}
	return out, nil
}

// verify drops orphaned rows, applies the configured defaults and reports
// the resulting counts. Runs in one transaction.
func (t *sqlTarget) verify(ctx context.Context, defaults Defaults) (*VerifyReport, error) {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning verify transaction: %w", err)
	}
	defer tx.Rollback()

	dropped := make(map[string]int)
	for _, od := range orphanDeletes {
		ok, err := t.tableExists(ctx, od.Table)
		if err != nil {
			return nil, fmt.Errorf("probing table %s: %w", od.Table, err)
		}
		if !ok {
			continue
		}

		res, err := tx.ExecContext(ctx, od.SQL)
		if err != nil {
			return nil, fmt.Errorf("dropping orphans from %s: %w", od.Table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if n > 0 {
			dropped[od.Table] = int(n)
			t.logger.Warn("dropped orphaned rows",
				zap.String("table", od.Table),
				zap.Int64("count", n),
			)
		}
	}

	if defaults.ChatModel != "" || defaults.MemoryModel != "" {
		if ok, err := t.tableExists(ctx, "user_settings"); err != nil {
			return nil, err
		} else if ok {
			for _, stmt := range t.defaultsStmts {
				if _, err := tx.ExecContext(ctx, stmt, defaults.ChatModel, defaults.MemoryModel); err != nil {
					return nil, fmt.Errorf("applying migration defaults: %w", err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing verify transaction: %w", err)
	}

	live, err := t.counts(ctx)
	if err != nil {
		return nil, err
	}

	return &VerifyReport{
		Live:           live,
		OrphansDropped: dropped,
	}, nil
}

// transform runs the migration script inside one all-or-nothing
// transaction. Re-entrancy is the script's contract (IF EXISTS /
// IF NOT EXISTS guards); the target only guarantees atomicity.
func (t *sqlTarget) transform(ctx context.Context, script string) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transform transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, script); err != nil {
		return fmt.Errorf("executing migration script: %w", err)
	}

	return tx.Commit()
}
