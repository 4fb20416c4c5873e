// Package seed populates a SQLite database with a small demo corpus: one
// organization, one user, and a spread of memory records across all six
// variants. The corpus is sized for trying out search and the CLI, not
// for benchmarking.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mnemohq/mnemo/pkg/record"
	"github.com/mnemohq/mnemo/pkg/store/sqlite"
	"github.com/mnemohq/mnemo/pkg/tenant"
)

const DemoSQLitePath = "mnemo.demo.sqlite"

const (
	demoOrgName  = "Demo Org"
	demoUserName = "Ada"
)

// Result reports what SeedDemo created. The ids are printed so the
// operator can select the demo tenant with mnemo use.
type Result struct {
	OrganizationID string
	UserID         string
	Records        int
}

// SeedDemo seeds the demo corpus into the database at path. Records are
// written without embeddings; running mnemo reconcile against a live
// embedder fills them in.
func SeedDemo(ctx context.Context, path string, overwrite bool, logger *zap.Logger) (*Result, error) {
	if err := prepareSQLitePath(path, overwrite); err != nil {
		return nil, err
	}

	driver, err := sqlite.NewDriver(sqlite.Config{DBPath: path}, logger)
	if err != nil {
		return nil, err
	}
	defer func() { _ = driver.Close() }()

	org, err := driver.CreateOrganization(ctx, demoOrgName)
	if err != nil {
		return nil, fmt.Errorf("creating demo organization: %w", err)
	}

	user, err := driver.CreateUser(ctx, org.ID, demoUserName, "Europe/London")
	if err != nil {
		return nil, fmt.Errorf("creating demo user: %w", err)
	}

	tc := tenant.Context{OrganizationID: org.ID, UserID: user.ID}

	records := demoRecords(time.Now().UTC())
	for _, rec := range records {
		if _, err := driver.CreateRecord(ctx, tc, rec); err != nil {
			return nil, fmt.Errorf("seeding record: %w", err)
		}
	}

	return &Result{
		OrganizationID: org.ID,
		UserID:         user.ID,
		Records:        len(records),
	}, nil
}

func prepareSQLitePath(path string, overwrite bool) error {
	if isInMemorySQLite(path) {
		return nil
	}

	if info, err := os.Stat(path); err == nil {
		if info.IsDir() {
			return fmt.Errorf("sqlite path is a directory: %s", path)
		}
		if !overwrite {
			return fmt.Errorf("sqlite database already exists: %s (use --overwrite)", path)
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("remove sqlite database: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat sqlite database: %w", err)
	}

	parent := filepath.Dir(path)
	if parent == "." || parent == "" {
		return nil
	}

	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("create sqlite directory: %w", err)
	}

	return nil
}

func isInMemorySQLite(path string) bool {
	trimmed := strings.TrimSpace(path)
	if trimmed == ":memory:" {
		return true
	}

	return strings.HasPrefix(trimmed, "file::memory:")
}

func demoRecords(now time.Time) []*record.Record {
	return []*record.Record{
		{
			Variant: record.VariantEpisodic,
			Payload: &record.Episodic{
				OccurredAt: now.Add(-48 * time.Hour),
				Actor:      "ada",
				EventType:  "decision",
				Summary:    "Decided the Q3 roadmap priorities",
				Details:    "Agreed to focus on retrieval quality and the migration tooling; the mobile work moves to Q4.",
			},
			TreePath: record.TreePath{"work", "planning"},
		},
		{
			Variant: record.VariantEpisodic,
			Payload: &record.Episodic{
				OccurredAt: now.Add(-2 * time.Hour),
				Actor:      "ada",
				EventType:  "errand",
				Summary:    "Picked up the weekly groceries",
				Details:    "Oat milk, coffee beans, rye bread and the usual vegetables from the market.",
			},
			TreePath: record.TreePath{"personal", "errands"},
		},
		{
			Variant: record.VariantSemantic,
			Payload: &record.Semantic{
				Name:    "roadmap-owner",
				Summary: "Priya owns the product roadmap",
				Details: "Roadmap changes go through Priya before they reach the planning board.",
				Source:  "onboarding notes",
			},
			TreePath: record.TreePath{"work", "people"},
		},
		{
			Variant: record.VariantProcedural,
			Payload: &record.Procedural{
				EntryType: "runbook",
				Summary:   "Rotate the staging database credentials",
				Steps: []string{
					"Generate a new password in the secrets manager",
					"Update the staging deployment secret",
					"Restart the API pods",
					"Verify connectivity and revoke the old credential",
				},
			},
			TreePath: record.TreePath{"work", "runbooks"},
		},
		{
			Variant: record.VariantResource,
			Payload: &record.Resource{
				Title:        "Grocery staples list",
				Summary:      "The recurring shopping list",
				ResourceType: "note",
				Content:      "Oat milk, coffee beans, rye bread, eggs, seasonal vegetables, olive oil.",
			},
			TreePath: record.TreePath{"personal", "lists"},
		},
		{
			Variant: record.VariantVault,
			Payload: &record.Vault{
				EntryType:   "credential",
				Source:      "staging",
				Sensitivity: "high",
				SecretValue: "demo-password-do-not-use",
				Caption:     "Staging database password",
			},
			TreePath: record.TreePath{"work", "secrets"},
		},
		{
			Variant: record.VariantCore,
			Payload: &record.Core{
				Aspect:  "communication",
				Content: "Prefers short, direct answers; dislikes being asked to confirm obvious steps.",
			},
		},
	}
}
