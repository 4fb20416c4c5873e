package sqlite_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mnemohq/mnemo/pkg/record"
	"github.com/mnemohq/mnemo/pkg/store"
	"github.com/mnemohq/mnemo/pkg/store/sqlite"
	"github.com/mnemohq/mnemo/pkg/tenant"
)

var _ = Describe("RecordStore", func() {
	var (
		ctx    context.Context
		driver *sqlite.Driver
		tc     tenant.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver, tc = newTestDriver(ctx)
	})

	AfterEach(func() {
		Expect(driver.Close()).To(Succeed())
	})

	Describe("CreateRecord", func() {
		It("assigns id, audit fields and a default tree path", func() {
			created, err := driver.CreateRecord(ctx, tc, episodicRecord("met priya", "discussed roadmap"))
			Expect(err).NotTo(HaveOccurred())

			Expect(created.ID).NotTo(BeEmpty())
			Expect(created.OrganizationID).To(Equal(tc.OrganizationID))
			Expect(created.UserID).To(Equal(tc.UserID))
			Expect(created.TreePath).To(Equal(record.TreePath{"episodic"}))
			Expect(created.CreatedAt).NotTo(BeZero())
			Expect(created.UpdatedAt).To(Equal(created.CreatedAt))
		})

		It("keeps a caller-supplied tree path hint", func() {
			rec := episodicRecord("met priya", "discussed roadmap")
			rec.TreePath = record.TreePath{"work", "meetings"}

			created, err := driver.CreateRecord(ctx, tc, rec)
			Expect(err).NotTo(HaveOccurred())
			Expect(created.TreePath).To(Equal(record.TreePath{"work", "meetings"}))
		})

		It("rejects a payload with missing required fields", func() {
			rec := &record.Record{
				Variant: record.VariantEpisodic,
				Payload: &record.Episodic{Summary: "only a summary"},
			}

			_, err := driver.CreateRecord(ctx, tc, rec)
			Expect(record.IsValidation(err)).To(BeTrue())
		})

		It("rejects an unknown tenant", func() {
			ghost := tenant.Context{OrganizationID: "nope", UserID: "nope"}

			_, err := driver.CreateRecord(ctx, ghost, episodicRecord("a", "b"))
			Expect(errors.Is(err, tenant.ErrTenantNotFound)).To(BeTrue())
		})

		It("replays the original record for a seen idempotency key", func() {
			rec := episodicRecord("met priya", "discussed roadmap")
			rec.IdempotencyKey = "retry-abc"

			first, err := driver.CreateRecord(ctx, tc, rec)
			Expect(err).NotTo(HaveOccurred())

			retry := episodicRecord("different summary", "different details")
			retry.IdempotencyKey = "retry-abc"

			second, err := driver.CreateRecord(ctx, tc, retry)
			Expect(err).NotTo(HaveOccurred())
			Expect(second.ID).To(Equal(first.ID))
			Expect(second.Payload.SearchText()).To(ContainSubstring("met priya"))
		})

		It("does not replay another tenant's idempotency key", func() {
			rec := episodicRecord("met priya", "discussed roadmap")
			rec.IdempotencyKey = "shared-key"

			first, err := driver.CreateRecord(ctx, tc, rec)
			Expect(err).NotTo(HaveOccurred())

			other := newTenant(ctx, driver, "Other Org", "Other User")
			otherRec := episodicRecord("their event", "their details")
			otherRec.IdempotencyKey = "shared-key"

			second, err := driver.CreateRecord(ctx, other, otherRec)
			Expect(err).NotTo(HaveOccurred())
			Expect(second.ID).NotTo(Equal(first.ID))
		})
	})

	Describe("UpdateRecord", func() {
		var created *record.Record

		BeforeEach(func() {
			var err error
			created, err = driver.CreateRecord(ctx, tc, episodicRecord("met priya", "discussed roadmap"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("rejects an update without a revision note", func() {
			_, err := driver.UpdateRecord(ctx, tc, created.ID,
				store.RecordUpdate{Metadata: map[string]any{"k": "v"}},
				record.Revision{Actor: "tester"},
			)
			Expect(errors.Is(err, record.ErrMissingRevisionNote)).To(BeTrue())
		})

		It("appends to the revision history", func() {
			updated, err := driver.UpdateRecord(ctx, tc, created.ID,
				store.RecordUpdate{Metadata: map[string]any{"k": "v"}},
				record.NewRevision("tester", "added metadata"),
			)
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Revisions).To(HaveLen(1))
			Expect(updated.Revisions[0].Note).To(Equal("added metadata"))

			updated, err = driver.UpdateRecord(ctx, tc, created.ID,
				store.RecordUpdate{Metadata: map[string]any{"k": "v2"}},
				record.NewRevision("tester", "changed metadata"),
			)
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Revisions).To(HaveLen(2))
			Expect(updated.LastRevision().Note).To(Equal("changed metadata"))
		})

		It("rejects changing the variant", func() {
			_, err := driver.UpdateRecord(ctx, tc, created.ID,
				store.RecordUpdate{Payload: &record.Core{Aspect: "style", Content: "terse"}},
				record.NewRevision("tester", "switch variant"),
			)
			Expect(record.IsValidation(err)).To(BeTrue())
		})

		It("re-parents without touching identity or history", func() {
			newPath := record.TreePath{"work", "archive"}
			updated, err := driver.UpdateRecord(ctx, tc, created.ID,
				store.RecordUpdate{TreePath: &newPath},
				record.NewRevision("tester", "moved to archive"),
			)
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.ID).To(Equal(created.ID))
			Expect(updated.TreePath).To(Equal(newPath))
			Expect(updated.CreatedAt).To(Equal(created.CreatedAt))
		})
	})

	Describe("GetRecord tenant isolation", func() {
		It("returns the same NotFound shape for missing and cross-tenant ids", func() {
			created, err := driver.CreateRecord(ctx, tc, episodicRecord("met priya", "discussed roadmap"))
			Expect(err).NotTo(HaveOccurred())

			other := newTenant(ctx, driver, "Other Org", "Other User")

			_, missingErr := driver.GetRecord(ctx, other, "no-such-id", store.ReadOptions{})
			_, crossErr := driver.GetRecord(ctx, other, created.ID, store.ReadOptions{})

			Expect(store.IsNotFound(missingErr)).To(BeTrue())
			Expect(store.IsNotFound(crossErr)).To(BeTrue())

			// Identical shape: existence of the foreign row must not leak
			// through the error.
			var missingNF, crossNF store.NotFoundError
			Expect(errors.As(missingErr, &missingNF)).To(BeTrue())
			Expect(errors.As(crossErr, &crossNF)).To(BeTrue())
			Expect(crossNF.Kind).To(Equal(missingNF.Kind))
		})
	})

	Describe("SoftDeleteRecord", func() {
		It("hides the record from default reads but keeps it for audit", func() {
			created, err := driver.CreateRecord(ctx, tc, episodicRecord("met priya", "discussed roadmap"))
			Expect(err).NotTo(HaveOccurred())

			Expect(driver.SoftDeleteRecord(ctx, tc, created.ID)).To(Succeed())

			_, err = driver.GetRecord(ctx, tc, created.ID, store.ReadOptions{})
			Expect(store.IsNotFound(err)).To(BeTrue())

			rec, err := driver.GetRecord(ctx, tc, created.ID, store.ReadOptions{IncludeDeleted: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.IsDeleted).To(BeTrue())
		})

		It("returns NotFound for an already deleted record", func() {
			created, err := driver.CreateRecord(ctx, tc, episodicRecord("met priya", "discussed roadmap"))
			Expect(err).NotTo(HaveOccurred())

			Expect(driver.SoftDeleteRecord(ctx, tc, created.ID)).To(Succeed())
			err = driver.SoftDeleteRecord(ctx, tc, created.ID)
			Expect(store.IsNotFound(err)).To(BeTrue())
		})
	})

	Describe("vault secret masking", func() {
		var created *record.Record

		BeforeEach(func() {
			var err error
			created, err = driver.CreateRecord(ctx, tc, vaultRecord("staging db password", "s3cret"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("masks the secret on default reads", func() {
			rec, err := driver.GetRecord(ctx, tc, created.ID, store.ReadOptions{})
			Expect(err).NotTo(HaveOccurred())

			vault, ok := rec.Payload.(*record.Vault)
			Expect(ok).To(BeTrue())
			Expect(vault.SecretValue).To(Equal(record.MaskedSecret))
			Expect(vault.Caption).To(Equal("staging db password"))
		})

		It("reveals plaintext only with elevated scope", func() {
			rec, err := driver.GetRecord(ctx, tc, created.ID, store.ReadOptions{RevealSecrets: true})
			Expect(err).NotTo(HaveOccurred())

			vault := rec.Payload.(*record.Vault)
			Expect(vault.SecretValue).To(Equal("s3cret"))
		})

		It("masks secrets in listings", func() {
			records, err := driver.ListRecords(ctx, tc, store.ListQuery{Variant: record.VariantVault})
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))

			vault := records[0].Payload.(*record.Vault)
			Expect(vault.SecretValue).To(Equal(record.MaskedSecret))
		})
	})

	Describe("ListRecords", func() {
		BeforeEach(func() {
			work := episodicRecord("met priya", "discussed roadmap")
			work.TreePath = record.TreePath{"work", "meetings"}
			_, err := driver.CreateRecord(ctx, tc, work)
			Expect(err).NotTo(HaveOccurred())

			personal := episodicRecord("bought groceries", "oat milk and coffee")
			personal.TreePath = record.TreePath{"personal", "errands"}
			_, err = driver.CreateRecord(ctx, tc, personal)
			Expect(err).NotTo(HaveOccurred())

			_, err = driver.CreateRecord(ctx, tc, &record.Record{
				Variant: record.VariantCore,
				Payload: &record.Core{Aspect: "style", Content: "prefers brevity"},
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("filters by variant", func() {
			records, err := driver.ListRecords(ctx, tc, store.ListQuery{Variant: record.VariantCore})
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
			Expect(records[0].Variant).To(Equal(record.VariantCore))
		})

		It("restricts to a subtree by path prefix", func() {
			records, err := driver.ListRecords(ctx, tc, store.ListQuery{
				PathPrefix: record.TreePath{"work"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
			Expect(records[0].TreePath.String()).To(Equal("work/meetings"))
		})

		It("never returns another tenant's records", func() {
			other := newTenant(ctx, driver, "Other Org", "Other User")
			records, err := driver.ListRecords(ctx, other, store.ListQuery{})
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(BeEmpty())
		})
	})

	Describe("embedding bookkeeping", func() {
		It("counts records per embedding config", func() {
			cfgA := &record.EmbeddingConfig{Provider: "ollama", Model: "nomic-embed-text", Dimensions: 768}
			cfgB := &record.EmbeddingConfig{Provider: "openai", Model: "text-embedding-3-small", Dimensions: 1536}

			for i, cfg := range []*record.EmbeddingConfig{cfgA, cfgA, cfgB} {
				rec := episodicRecord("event", "details")
				rec.Embeddings = []record.Embedding{{Field: "summary", Vector: []float32{float32(i)}}}
				rec.EmbeddingConfig = cfg
				_, err := driver.CreateRecord(ctx, tc, rec)
				Expect(err).NotTo(HaveOccurred())
			}

			counts, err := driver.EmbeddingConfigCounts(ctx, tc)
			Expect(err).NotTo(HaveOccurred())
			Expect(counts[*cfgA]).To(Equal(2))
			Expect(counts[*cfgB]).To(Equal(1))
		})

		It("lists records persisted without embeddings", func() {
			_, err := driver.CreateRecord(ctx, tc, episodicRecord("unembedded", "no vectors yet"))
			Expect(err).NotTo(HaveOccurred())

			embedded := episodicRecord("embedded", "has vectors")
			embedded.Embeddings = []record.Embedding{{Field: "summary", Vector: []float32{0.1}}}
			embedded.EmbeddingConfig = &record.EmbeddingConfig{Provider: "mock", Model: "m", Dimensions: 1}
			_, err = driver.CreateRecord(ctx, tc, embedded)
			Expect(err).NotTo(HaveOccurred())

			missing, err := driver.ListMissingEmbeddings(ctx, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(missing).To(HaveLen(1))
			Expect(missing[0].Payload.SearchText()).To(ContainSubstring("unembedded"))
		})
	})
})
