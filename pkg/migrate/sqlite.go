package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteTarget migrates a SQLite database. Snapshots use VACUUM INTO,
// which produces a consistent single-file copy.
type SQLiteTarget struct {
	sqlTarget
	path string
}

// NewSQLiteTarget opens the SQLite database at path for migration. The
// connection holds the exclusive access the transform step requires.
func NewSQLiteTarget(path string, logger *zap.Logger) (*SQLiteTarget, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = OFF"); err != nil {
		db.Close()
		return nil, fmt.Errorf("disabling foreign keys for migration: %w", err)
	}

	t := &SQLiteTarget{path: path}
	t.db = db
	t.logger = logger
	t.tableExists = func(ctx context.Context, table string) (bool, error) {
		var name string
		err := db.QueryRowContext(ctx,
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
		).Scan(&name)
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return err == nil, err
	}
	t.defaultsStmts = []string{
		`UPDATE user_settings SET
			chat_model   = COALESCE(NULLIF(chat_model, ''), NULLIF(?, ''), chat_model),
			memory_model = COALESCE(NULLIF(memory_model, ''), NULLIF(?, ''), memory_model)`,
	}

	return t, nil
}

// Name implements Target.
func (t *SQLiteTarget) Name() string {
	return "sqlite"
}

// Snapshot implements Target via VACUUM INTO.
func (t *SQLiteTarget) Snapshot(ctx context.Context, dir string) (*Snapshot, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating backup dir: %w", err)
	}

	backupPath := filepath.Join(dir,
		fmt.Sprintf("mnemo-backup-%s.db", time.Now().UTC().Format("20060102T150405Z")),
	)

	if _, err := t.db.ExecContext(ctx, `VACUUM INTO ?`, backupPath); err != nil {
		return nil, fmt.Errorf("writing backup: %w", err)
	}

	counts, err := t.counts(ctx)
	if err != nil {
		return nil, err
	}

	t.logger.Info("sqlite backup written",
		zap.String("path", backupPath),
	)

	return NewSnapshot(backupPath, counts), nil
}

// Transform implements Target.
func (t *SQLiteTarget) Transform(ctx context.Context, script string) error {
	return t.transform(ctx, script)
}

// Verify implements Target.
func (t *SQLiteTarget) Verify(ctx context.Context, defaults Defaults) (*VerifyReport, error) {
	return t.verify(ctx, defaults)
}

// Close implements Target.
func (t *SQLiteTarget) Close() error {
	return t.db.Close()
}

var _ Target = (*SQLiteTarget)(nil)
