// Package migrate executes structural schema changes with a
// backup-snapshot, transform, verify, commit-or-abort discipline.
//
// The manager is a state machine over Prepared, Backed-Up, Transformed,
// Verified and Committed, with a terminal Aborted state reachable from
// any non-committed state. A backup snapshot is acquired before any
// destructive change and, on every exit path, is either
// committed-and-released or preserved-on-abort. The manager never
// restores a backup automatically: a partially applied change is left
// for the operator to inspect.
package migrate

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Config holds configuration for the migration manager.
type Config struct {
	// BackupDir is where snapshots are written.
	BackupDir string

	// Defaults are the fallback values applied during verify.
	Defaults Defaults

	// ForceWithoutBackup lets the operator override a failed backup.
	// Without it, a failed backup blocks the migration entirely.
	ForceWithoutBackup bool
}

// Report summarizes a finished migration run.
type Report struct {
	// FinalState is Committed on success, Aborted otherwise.
	FinalState State

	// BackupPath is always set when a backup was produced, including on
	// abort.
	BackupPath string

	// Verify is present when the verify step ran.
	Verify *VerifyReport
}

// Manager drives one migration run against a target.
type Manager struct {
	target Target
	cfg    Config
	logger *zap.Logger

	state    State
	snapshot *Snapshot
}

// NewManager creates a migration manager for the target.
func NewManager(target Target, cfg Config, logger *zap.Logger) *Manager {
	return &Manager{
		target: target,
		cfg:    cfg,
		logger: logger,
	}
}

// State returns the manager's current state.
func (m *Manager) State() State {
	return m.state
}

// Snapshot returns the backup handle, nil before the backup step.
func (m *Manager) Snapshot() *Snapshot {
	return m.snapshot
}

// Run executes the full state machine for one migration script. On abort
// the returned error is an AbortedError carrying the backup path.
func (m *Manager) Run(ctx context.Context, script string) (*Report, error) {
	if strings.TrimSpace(script) == "" {
		return nil, fmt.Errorf("empty migration script")
	}

	m.state = StatePrepared
	m.logger.Info("migration prepared",
		zap.String("target", m.target.Name()),
	)

	report := &Report{}

	// Prepared -> Backed-Up. A failed backup blocks progression unless
	// the operator explicitly overrides.
	snap, err := m.target.Snapshot(ctx, m.cfg.BackupDir)
	if err != nil {
		if !m.cfg.ForceWithoutBackup {
			m.logger.Error("backup failed, refusing to continue", zap.Error(err))
			return report, fmt.Errorf("%w: %v", ErrNoBackup, err)
		}
		m.logger.Warn("backup failed, continuing on operator override", zap.Error(err))
		snap = NewSnapshot("", nil)
	}
	m.snapshot = snap
	report.BackupPath = snap.Path

	if err := m.advance(StateBackedUp); err != nil {
		return report, err
	}
	m.logger.Info("backup written",
		zap.String("path", snap.Path),
	)

	// Backed-Up -> Transformed. One all-or-nothing transaction.
	if err := m.target.Transform(ctx, script); err != nil {
		return report, m.abort(report, StateTransformed, fmt.Errorf("transform: %w", err))
	}
	if err := m.advance(StateTransformed); err != nil {
		return report, err
	}
	m.logger.Info("transform applied")

	// Transformed -> Verified. Orphans dropped, counts cross-checked.
	verify, err := m.target.Verify(ctx, m.cfg.Defaults)
	if err != nil {
		return report, m.abort(report, StateVerified, fmt.Errorf("verify: %w", err))
	}
	report.Verify = verify

	if err := m.crossCheck(verify); err != nil {
		return report, m.abort(report, StateVerified, err)
	}
	if err := m.advance(StateVerified); err != nil {
		return report, err
	}
	m.logger.Info("verification passed",
		zap.Int("tables", len(verify.Live)),
	)

	// Verified -> Committed. Release the retention pointer; the backup
	// file stays on disk.
	m.snapshot.Release()
	if err := m.advance(StateCommitted); err != nil {
		return report, err
	}
	report.FinalState = StateCommitted

	m.logger.Info("migration committed",
		zap.String("backup", snap.Path),
	)

	return report, nil
}

// crossCheck compares live row counts against the backup, adjusted for
// intentionally dropped orphans.
func (m *Manager) crossCheck(verify *VerifyReport) error {
	if m.snapshot == nil || m.snapshot.Counts == nil {
		// Operator override without a backup leaves nothing to check.
		return nil
	}

	for table, backedUp := range m.snapshot.Counts {
		live, ok := verify.Live[table]
		if !ok {
			continue
		}
		expected := backedUp - verify.OrphansDropped[table]
		if live != expected {
			return fmt.Errorf("row count mismatch for %s: backup %d, orphans dropped %d, expected %d, live %d",
				table, backedUp, verify.OrphansDropped[table], expected, live)
		}
	}

	return nil
}

// advance moves the state machine one legal step forward.
func (m *Manager) advance(to State) error {
	if !m.state.CanAdvance(to) {
		return fmt.Errorf("illegal transition %s -> %s", m.state, to)
	}
	m.state = to
	return nil
}

// abort enters the terminal Aborted state, preserving the snapshot and
// surfacing its location. Never restores.
func (m *Manager) abort(report *Report, failedAt State, cause error) error {
	if !m.state.CanAbort() {
		return cause
	}
	m.state = StateAborted
	report.FinalState = StateAborted

	backupPath := ""
	if m.snapshot != nil {
		backupPath = m.snapshot.Path
	}

	m.logger.Error("migration aborted",
		zap.String("failed_at", string(failedAt)),
		zap.String("backup", backupPath),
		zap.Error(cause),
	)

	return AbortedError{
		FailedAt:   failedAt,
		BackupPath: backupPath,
		Err:        cause,
	}
}
