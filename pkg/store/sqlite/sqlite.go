// Package sqlite provides the SQLite-backed store driver. Lexical search
// is served by an FTS5 index over each record's searchable text, kept in
// sync by triggers.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/mnemohq/mnemo/pkg/store"
)

var _ store.Driver = (*Driver)(nil)

// Config holds configuration for the SQLite store driver.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string
}

// Driver implements store.Driver over SQLite.
type Driver struct {
	db     *sql.DB
	logger *zap.Logger

	mu      sync.Mutex
	entropy *rand.Rand
}

// NewDriver opens (or creates) the database, enables foreign keys and WAL,
// and applies the schema.
func NewDriver(c Config, logger *zap.Logger) (*Driver, error) {
	if c.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// One connection: a second pooled connection to :memory: would get its
	// own empty database, and on files it invites SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("sqlite store driver initialized",
		zap.String("db_path", c.DBPath),
	)

	return &Driver{
		db:      db,
		logger:  logger,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// DB exposes the underlying handle for the migration manager, which needs
// exclusive transactional access to the tables it transforms.
func (d *Driver) DB() *sql.DB {
	return d.db
}

// Close closes the store and releases any resources.
func (d *Driver) Close() error {
	return d.db.Close()
}

// newID mints a sortable opaque identifier.
func (d *Driver) newID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), d.entropy).String()
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// wrapConstraint converts sqlite constraint violations into
// store.ConstraintError, surfaced verbatim to the caller.
func wrapConstraint(err error, constraint string) error {
	if err == nil {
		return nil
	}

	var se sqlite3.Error
	if errors.As(err, &se) && se.Code == sqlite3.ErrConstraint {
		return store.ConstraintError{Constraint: constraint, Err: err}
	}

	return err
}

// matchExpr builds an FTS5 MATCH expression from free-form query text:
// alphanumeric tokens OR-ed together, which approximates term-frequency
// weighted overlap under bm25 ranking.
func matchExpr(query string) string {
	tokens := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r >= 'A' && r <= 'Z')
	})
	if len(tokens) == 0 {
		return ""
	}

	quoted := make([]string, len(tokens))
	for i, tok := range tokens {
		quoted[i] = `"` + tok + `"`
	}

	return strings.Join(quoted, " OR ")
}
