package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

// PostgresConfig holds connection parameters for the Postgres target,
// conventionally taken from the environment by the CLI.
type PostgresConfig struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

// DSN renders the config as a pgx connection string.
func (c PostgresConfig) DSN() string {
	parts := []string{
		"host=" + c.Host,
		"dbname=" + c.Database,
		"user=" + c.User,
	}
	if c.Port != "" {
		parts = append(parts, "port="+c.Port)
	}
	if c.Password != "" {
		parts = append(parts, "password="+c.Password)
	}
	return strings.Join(parts, " ")
}

// PostgresTarget migrates a Postgres database. Snapshots are full logical
// exports written as a SQL file of INSERT statements.
type PostgresTarget struct {
	sqlTarget
}

// NewPostgresTarget connects to the database described by cfg.
func NewPostgresTarget(cfg PostgresConfig, logger *zap.Logger) (*PostgresTarget, error) {
	if cfg.Host == "" || cfg.Database == "" || cfg.User == "" {
		return nil, fmt.Errorf("postgres host, database and user are required")
	}

	db, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	t := &PostgresTarget{}
	t.db = db
	t.logger = logger
	t.tableExists = func(ctx context.Context, table string) (bool, error) {
		var reg sql.NullString
		err := db.QueryRowContext(ctx,
			`SELECT to_regclass($1)::text`, table,
		).Scan(&reg)
		if err != nil {
			return false, err
		}
		return reg.Valid, nil
	}
	t.defaultsStmts = []string{
		`UPDATE user_settings SET
			chat_model   = COALESCE(NULLIF(chat_model, ''), NULLIF($1, ''), chat_model),
			memory_model = COALESCE(NULLIF(memory_model, ''), NULLIF($2, ''), memory_model)`,
	}

	return t, nil
}

// Name implements Target.
func (t *PostgresTarget) Name() string {
	return "postgres"
}

// Snapshot implements Target as a full logical export.
func (t *PostgresTarget) Snapshot(ctx context.Context, dir string) (*Snapshot, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating backup dir: %w", err)
	}

	backupPath := filepath.Join(dir,
		fmt.Sprintf("mnemo-backup-%s.sql", time.Now().UTC().Format("20060102T150405Z")),
	)

	f, err := os.Create(backupPath)
	if err != nil {
		return nil, fmt.Errorf("creating backup file: %w", err)
	}
	defer f.Close()

	counts := make(map[string]int)
	for _, table := range canonicalTables {
		ok, err := t.tableExists(ctx, table)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		n, err := t.dumpTable(ctx, f, table)
		if err != nil {
			return nil, fmt.Errorf("dumping %s: %w", table, err)
		}
		counts[table] = n
	}

	if err := f.Sync(); err != nil {
		return nil, fmt.Errorf("flushing backup file: %w", err)
	}

	t.logger.Info("postgres backup written",
		zap.String("path", backupPath),
	)

	return NewSnapshot(backupPath, counts), nil
}

// dumpTable writes one table's rows as INSERT statements and returns the
// row count.
func (t *PostgresTarget) dumpTable(ctx context.Context, f *os.File, table string) (int, error) {
	rows, err := t.db.QueryContext(ctx, "SELECT * FROM "+table)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return 0, err
	}

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	count := 0
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return 0, err
		}

		literals := make([]string, len(values))
		for i, v := range values {
			literals[i] = sqlLiteral(v)
		}

		if _, err := fmt.Fprintf(f, "INSERT INTO %s (%s) VALUES (%s);\n",
			table, strings.Join(cols, ", "), strings.Join(literals, ", ")); err != nil {
			return 0, err
		}
		count++
	}

	return count, rows.Err()
}

// sqlLiteral renders one scanned value as a SQL literal.
func sqlLiteral(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	case int64:
		return fmt.Sprintf("%d", val)
	case float64:
		return fmt.Sprintf("%g", val)
	case time.Time:
		return "'" + val.UTC().Format(time.RFC3339Nano) + "'"
	case []byte:
		return "'" + strings.ReplaceAll(string(val), "'", "''") + "'"
	case string:
		return "'" + strings.ReplaceAll(val, "'", "''") + "'"
	default:
		return "'" + strings.ReplaceAll(fmt.Sprintf("%v", val), "'", "''") + "'"
	}
}

// Transform implements Target.
func (t *PostgresTarget) Transform(ctx context.Context, script string) error {
	return t.transform(ctx, script)
}

// Verify implements Target.
func (t *PostgresTarget) Verify(ctx context.Context, defaults Defaults) (*VerifyReport, error) {
	return t.verify(ctx, defaults)
}

// Close implements Target.
func (t *PostgresTarget) Close() error {
	return t.db.Close()
}

var _ Target = (*PostgresTarget)(nil)
