package migrate

import "context"

// Defaults carries the fallback values the verify step applies instead of
// baking them into transformation logic. They come from configuration.
type Defaults struct {
	// ChatModel and MemoryModel backfill user settings rows migrated
	// without model identifiers.
	ChatModel   string
	MemoryModel string
}

// VerifyReport is the outcome of the verify step's cross-check.
type VerifyReport struct {
	// Live holds the per-table row counts after transform and orphan
	// dropping.
	Live map[string]int

	// OrphansDropped counts rows removed per table because their owning
	// tenant or user no longer exists in the registry.
	OrphansDropped map[string]int
}

// Target is one migratable database backend. The manager drives the state
// machine; the target supplies backup, transform and verify mechanics.
type Target interface {
	// Name identifies the backend for logs and reports.
	Name() string

	// Snapshot produces a full logical backup under dir and returns its
	// handle with per-table row counts.
	Snapshot(ctx context.Context, dir string) (*Snapshot, error)

	// Transform applies the migration script inside a single
	// all-or-nothing transaction. It must be re-entrant: running it
	// against an already-migrated schema is a no-op, not an error.
	Transform(ctx context.Context, script string) error

	// Verify drops rows whose owning tenant or user no longer exists,
	// applies the configured defaults, and reports resulting counts.
	Verify(ctx context.Context, defaults Defaults) (*VerifyReport, error)

	// Close releases the target's connection.
	Close() error
}
