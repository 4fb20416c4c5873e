package sqlite_test

import (
	"context"
	"time"

	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/mnemohq/mnemo/pkg/record"
	"github.com/mnemohq/mnemo/pkg/store/sqlite"
	"github.com/mnemohq/mnemo/pkg/tenant"
)

// newTestDriver opens an in-memory database with a seeded organization
// and user, returning the driver and the tenant context to operate under.
func newTestDriver(ctx context.Context) (*sqlite.Driver, tenant.Context) {
	driver, err := sqlite.NewDriver(sqlite.Config{DBPath: ":memory:"}, zap.NewNop())
	Expect(err).NotTo(HaveOccurred())

	org, err := driver.CreateOrganization(ctx, "Test Org")
	Expect(err).NotTo(HaveOccurred())

	user, err := driver.CreateUser(ctx, org.ID, "Test User", "UTC")
	Expect(err).NotTo(HaveOccurred())

	return driver, tenant.Context{OrganizationID: org.ID, UserID: user.ID}
}

// newTenant seeds an additional organization and user on an existing
// driver, for cross-tenant scenarios.
func newTenant(ctx context.Context, driver *sqlite.Driver, orgName, userName string) tenant.Context {
	org, err := driver.CreateOrganization(ctx, orgName)
	Expect(err).NotTo(HaveOccurred())

	user, err := driver.CreateUser(ctx, org.ID, userName, "UTC")
	Expect(err).NotTo(HaveOccurred())

	return tenant.Context{OrganizationID: org.ID, UserID: user.ID}
}

func episodicRecord(summary, details string) *record.Record {
	return &record.Record{
		Variant: record.VariantEpisodic,
		Payload: &record.Episodic{
			OccurredAt: time.Now().UTC(),
			Actor:      "tester",
			EventType:  "observation",
			Summary:    summary,
			Details:    details,
		},
	}
}

func vaultRecord(caption, secret string) *record.Record {
	return &record.Record{
		Variant: record.VariantVault,
		Payload: &record.Vault{
			EntryType:   "credential",
			Source:      "test",
			Sensitivity: "high",
			SecretValue: secret,
			Caption:     caption,
		},
	}
}
