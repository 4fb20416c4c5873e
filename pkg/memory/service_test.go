package memory_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/mnemohq/mnemo/pkg/eventstream"
	"github.com/mnemohq/mnemo/pkg/memory"
	"github.com/mnemohq/mnemo/pkg/record"
	"github.com/mnemohq/mnemo/pkg/store"
	"github.com/mnemohq/mnemo/pkg/store/sqlite"
	"github.com/mnemohq/mnemo/pkg/tenant"
	testutils "github.com/mnemohq/mnemo/pkg/utils/test"
)

var _ = Describe("Service", func() {
	var (
		ctx       context.Context
		driver    *sqlite.Driver
		tc        tenant.Context
		vectors   *testutils.MockVectorDriver
		embedder  *testutils.MockEmbedder
		publisher *testutils.MockPublisher
		svc       *memory.Service
	)

	episodic := func(summary, details string) *record.Record {
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

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		driver, err = sqlite.NewDriver(sqlite.Config{DBPath: ":memory:"}, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())

		org, err := driver.CreateOrganization(ctx, "Test Org")
		Expect(err).NotTo(HaveOccurred())
		user, err := driver.CreateUser(ctx, org.ID, "Test User", "UTC")
		Expect(err).NotTo(HaveOccurred())
		tc = tenant.Context{OrganizationID: org.ID, UserID: user.ID}

		vectors = testutils.NewMockVectorDriver()
		embedder = testutils.NewMockEmbedder()
		publisher = testutils.NewMockPublisher()
		svc = memory.NewService(driver, vectors, embedder, publisher, zap.NewNop())
	})

	AfterEach(func() {
		Expect(driver.Close()).To(Succeed())
	})

	Describe("Create", func() {
		It("embeds, persists, indexes and publishes", func() {
			created, err := svc.Create(ctx, tc, episodic("met priya", "discussed roadmap"))
			Expect(err).NotTo(HaveOccurred())

			Expect(created.HasEmbedding()).To(BeTrue())
			Expect(created.EmbeddingConfig.Provider).To(Equal("mock"))

			// One document per embedded field, keyed record_id:field.
			Expect(vectors.Documents).NotTo(BeEmpty())
			for _, doc := range vectors.Documents {
				Expect(doc.RecordID).To(Equal(created.ID))
				Expect(doc.ID).To(HavePrefix(created.ID + ":"))
				Expect(doc.OrganizationID).To(Equal(tc.OrganizationID))
			}

			Expect(publisher.Events).To(HaveLen(1))
			event := publisher.Events[0]
			Expect(event.EventType).To(Equal(eventstream.EventTypeRecordPersisted))
			Expect(event.Record.ID).To(Equal(created.ID))
			Expect(event.Record.Deleted).To(BeFalse())
		})

		It("persists with a null embedding when the embedder is down", func() {
			embedder.FailAll = true

			created, err := svc.Create(ctx, tc, episodic("met priya", "discussed roadmap"))
			Expect(err).NotTo(HaveOccurred())

			Expect(created.HasEmbedding()).To(BeFalse())
			Expect(vectors.Documents).To(BeEmpty())

			// The record is durable and findable lexically.
			missing, err := driver.ListMissingEmbeddings(ctx, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(missing).To(HaveLen(1))
			Expect(missing[0].ID).To(Equal(created.ID))
		})

		It("does not fail the write when indexing fails", func() {
			vectors.FailAdd = true

			created, err := svc.Create(ctx, tc, episodic("met priya", "discussed roadmap"))
			Expect(err).NotTo(HaveOccurred())
			Expect(created.HasEmbedding()).To(BeTrue())
		})

		It("does not fail the write when publishing fails", func() {
			publisher.FailPublish = true

			_, err := svc.Create(ctx, tc, episodic("met priya", "discussed roadmap"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("never publishes vault secret values", func() {
			_, err := svc.Create(ctx, tc, &record.Record{
				Variant: record.VariantVault,
				Payload: &record.Vault{
					EntryType:   "credential",
					Source:      "test",
					Sensitivity: "high",
					SecretValue: "hunter2",
					Caption:     "staging db password",
				},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(publisher.Events).To(HaveLen(1))

			// The event carries identity only, never payload content.
			event := publisher.Events[0]
			Expect(event.Record.Variant).To(Equal(record.VariantVault))
		})
	})

	Describe("Update", func() {
		It("re-embeds a payload change and replaces the index documents", func() {
			created, err := svc.Create(ctx, tc, episodic("met priya", "discussed roadmap"))
			Expect(err).NotTo(HaveOccurred())
			before := len(vectors.Documents)

			updated, err := svc.Update(ctx, tc, created.ID, store.RecordUpdate{
				Payload: &record.Episodic{
					OccurredAt: time.Now().UTC(),
					Actor:      "tester",
					EventType:  "observation",
					Summary:    "met priya and sam",
					Details:    "finalized the roadmap",
				},
			}, record.NewRevision("tester", "added sam"))
			Expect(err).NotTo(HaveOccurred())

			Expect(updated.Revisions).To(HaveLen(1))
			Expect(len(vectors.Documents)).To(Equal(before))
			for _, doc := range vectors.Documents {
				Expect(doc.RecordID).To(Equal(updated.ID))
			}
		})

		It("publishes the revision note with the event", func() {
			created, err := svc.Create(ctx, tc, episodic("met priya", "discussed roadmap"))
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.Update(ctx, tc, created.ID, store.RecordUpdate{
				Metadata: map[string]any{"mood": "good"},
			}, record.NewRevision("tester", "noted the mood"))
			Expect(err).NotTo(HaveOccurred())

			Expect(publisher.Events).To(HaveLen(2))
			Expect(publisher.Events[1].Record.RevisionNote).To(Equal("noted the mood"))
		})
	})

	Describe("Delete", func() {
		It("soft-deletes, prunes vectors and publishes the deletion", func() {
			created, err := svc.Create(ctx, tc, episodic("met priya", "discussed roadmap"))
			Expect(err).NotTo(HaveOccurred())
			Expect(vectors.Documents).NotTo(BeEmpty())

			Expect(svc.Delete(ctx, tc, created.ID)).To(Succeed())

			Expect(vectors.Documents).To(BeEmpty())

			_, err = svc.Get(ctx, tc, created.ID, store.ReadOptions{})
			Expect(store.IsNotFound(err)).To(BeTrue())

			last := publisher.Events[len(publisher.Events)-1]
			Expect(last.Record.Deleted).To(BeTrue())
		})
	})

	Describe("Reindex", func() {
		It("backfills embeddings for a record persisted without them", func() {
			embedder.FailAll = true
			created, err := svc.Create(ctx, tc, episodic("met priya", "discussed roadmap"))
			Expect(err).NotTo(HaveOccurred())
			Expect(created.HasEmbedding()).To(BeFalse())

			embedder.FailAll = false
			Expect(svc.Reindex(ctx, created)).To(Succeed())

			got, err := svc.Get(ctx, tc, created.ID, store.ReadOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(got.HasEmbedding()).To(BeTrue())
			Expect(vectors.Documents).NotTo(BeEmpty())

			missing, err := driver.ListMissingEmbeddings(ctx, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(missing).To(BeEmpty())
		})

		It("fails when the embedder is still unavailable", func() {
			embedder.FailAll = true
			created, err := svc.Create(ctx, tc, episodic("met priya", "discussed roadmap"))
			Expect(err).NotTo(HaveOccurred())

			Expect(svc.Reindex(ctx, created)).NotTo(Succeed())
		})
	})
})
