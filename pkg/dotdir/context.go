package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	contextFile = "context.json"
)

// ContextState is the persisted tenant scope the CLI operates under. It
// is set by `mnemo use` and read by every tenant-scoped command.
type ContextState struct {
	// OrganizationID scopes all operations.
	OrganizationID string `json:"organization_id"`

	// UserID scopes user-level operations. May be empty for org-scoped
	// administrative commands.
	UserID string `json:"user_id,omitempty"`
}

// LoadContextState loads the tenant context from a target .mnemo/context.json.
// Returns nil, nil if no context exists yet.
// If overrideDir is non-empty, it is used instead of the default ~/.mnemo/ location.
func (m *Manager) LoadContextState(overrideDir string) (*ContextState, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, contextFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading context state: %w", err)
	}

	state := &ContextState{}
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parsing context state: %w", err)
	}

	return state, nil
}

// SaveContext persists the tenant context to a target .mnemo/context.json.
func (m *Manager) SaveContext(state *ContextState, overrideDir string) error {
	if state == nil {
		return errors.New("cannot save nil context state")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling context state: %w", err)
	}

	path := filepath.Join(dir, contextFile)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing context state: %w", err)
	}

	return nil
}

// ClearContext removes the context state file.
// Returns nil if the file doesn't exist (already cleared).
func (m *Manager) ClearContext(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	path := filepath.Join(dir, contextFile)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing context state: %w", err)
	}

	return nil
}
