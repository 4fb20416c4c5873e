package search_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/mnemohq/mnemo/pkg/record"
	"github.com/mnemohq/mnemo/pkg/search"
	"github.com/mnemohq/mnemo/pkg/store/sqlite"
	"github.com/mnemohq/mnemo/pkg/tenant"
	testutils "github.com/mnemohq/mnemo/pkg/utils/test"
	"github.com/mnemohq/mnemo/pkg/vector"
)

var _ = Describe("Engine", func() {
	var (
		ctx      context.Context
		driver   *sqlite.Driver
		tc       tenant.Context
		vectors  *testutils.MockVectorDriver
		embedder *testutils.MockEmbedder
		engine   *search.Engine
	)

	createEpisodic := func(summary, details string) *record.Record {
		created, err := driver.CreateRecord(ctx, tc, &record.Record{
			Variant: record.VariantEpisodic,
			Payload: &record.Episodic{
				OccurredAt: time.Now().UTC(),
				Actor:      "tester",
				EventType:  "observation",
				Summary:    summary,
				Details:    details,
			},
		})
		Expect(err).NotTo(HaveOccurred())
		return created
	}

	vectorResult := func(rec *record.Record, score float32) vector.QueryResult {
		space := embedder.Config()
		return vector.QueryResult{
			Document: vector.Document{
				ID:             rec.ID + ":summary",
				RecordID:       rec.ID,
				OrganizationID: tc.OrganizationID,
				UserID:         tc.UserID,
				Provider:       space.Provider,
				Model:          space.Model,
				Field:          "summary",
			},
			Score: score,
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
		engine = search.NewEngine(driver, vectors, embedder, search.Config{}, zap.NewNop())
	})

	AfterEach(func() {
		Expect(driver.Close()).To(Succeed())
	})

	It("returns nothing for an empty query", func() {
		results, err := engine.Search(ctx, tc, "  ", nil, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(BeEmpty())
	})

	Describe("fusion", func() {
		It("ranks a record present in both sets above single-set records", func() {
			both := createEpisodic("decided the Q3 roadmap", "approved the plan with priya")
			lexOnly := createEpisodic("roadmap printed and pinned", "hallway copy of the roadmap poster for the roadmap review")
			vecOnly := createEpisodic("quarterly planning session", "talked through goals for the quarter")

			vectors.Results = []vector.QueryResult{
				vectorResult(both, 0.95),
				vectorResult(vecOnly, 0.90),
			}

			results, err := engine.Search(ctx, tc, "roadmap", nil, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(3))

			Expect(results[0].Record.ID).To(Equal(both.ID))
			Expect(results[0].LexicalScore).To(BeNumerically(">", 0))
			Expect(results[0].VectorScore).To(BeNumerically(">", 0))

			ids := []string{results[1].Record.ID, results[2].Record.ID}
			Expect(ids).To(ConsistOf(lexOnly.ID, vecOnly.ID))
		})

		It("scores a single-set record by that set alone, unweighted", func() {
			only := createEpisodic("quarterly planning session", "talked through goals")

			vectors.Results = []vector.QueryResult{vectorResult(only, 0.9)}

			results, err := engine.Search(ctx, tc, "planning", nil, 10)
			Expect(err).NotTo(HaveOccurred())

			for _, r := range results {
				if r.Record.ID != only.ID {
					continue
				}
				// A lone member of a set normalizes to 1; membership in a
				// single set must not be halved by the fusion weight.
				Expect(r.Score).To(BeNumerically("~", r.VectorScore+r.LexicalScore, 1e-9))
			}
		})

		It("breaks score ties by recency", func() {
			older := createEpisodic("bought coffee beans", "dark roast")
			newer := createEpisodic("bought coffee filters", "paper cones")

			// Both appear only in the vector set with identical scores, so
			// both normalize to 1 and tie.
			vectors.Results = []vector.QueryResult{
				vectorResult(older, 0.8),
				vectorResult(newer, 0.8),
			}

			results, err := engine.Search(ctx, tc, "espresso", nil, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			Expect(results[0].Record.UpdatedAt).To(BeTemporally(">=", results[1].Record.UpdatedAt))
		})
	})

	Describe("variant filtering", func() {
		It("drops vector candidates outside the requested variants", func() {
			episodic := createEpisodic("roadmap meeting", "with priya")
			semantic, err := driver.CreateRecord(ctx, tc, &record.Record{
				Variant: record.VariantSemantic,
				Payload: &record.Semantic{
					Name: "priya", Summary: "owns the roadmap",
					Details: "principal engineer", Source: "test",
				},
			})
			Expect(err).NotTo(HaveOccurred())

			vectors.Results = []vector.QueryResult{
				vectorResult(episodic, 0.9),
				vectorResult(semantic, 0.8),
			}

			results, err := engine.Search(ctx, tc, "roadmap",
				[]record.Variant{record.VariantSemantic}, 10)
			Expect(err).NotTo(HaveOccurred())

			for _, r := range results {
				Expect(r.Record.Variant).To(Equal(record.VariantSemantic))
			}
		})
	})

	Describe("degraded modes", func() {
		It("searches lexically when the engine has no vector side", func() {
			createEpisodic("decided the Q3 roadmap", "approved the plan")

			lexical := search.NewEngine(driver, nil, nil, search.Config{}, zap.NewNop())
			results, err := lexical.Search(ctx, tc, "roadmap", nil, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].VectorScore).To(BeZero())
		})

		It("skips vector candidates whose records were soft-deleted", func() {
			kept := createEpisodic("roadmap meeting", "with priya")
			deleted := createEpisodic("old roadmap draft", "superseded")
			Expect(driver.SoftDeleteRecord(ctx, tc, deleted.ID)).To(Succeed())

			vectors.Results = []vector.QueryResult{
				vectorResult(kept, 0.9),
				vectorResult(deleted, 0.95),
			}

			results, err := engine.Search(ctx, tc, "roadmap", nil, 10)
			Expect(err).NotTo(HaveOccurred())
			for _, r := range results {
				Expect(r.Record.ID).NotTo(Equal(deleted.ID))
			}
		})
	})

	Describe("tenant isolation", func() {
		It("hydrates nothing across the tenant boundary", func() {
			foreign := createEpisodic("roadmap meeting", "with priya")

			otherOrg, err := driver.CreateOrganization(ctx, "Other Org")
			Expect(err).NotTo(HaveOccurred())
			otherUser, err := driver.CreateUser(ctx, otherOrg.ID, "Other", "UTC")
			Expect(err).NotTo(HaveOccurred())
			other := tenant.Context{OrganizationID: otherOrg.ID, UserID: otherUser.ID}

			// Poisoned index: a foreign record scoped to the other tenant.
			space := embedder.Config()
			vectors.Results = []vector.QueryResult{{
				Document: vector.Document{
					ID:             foreign.ID + ":summary",
					RecordID:       foreign.ID,
					OrganizationID: other.OrganizationID,
					UserID:         other.UserID,
					Provider:       space.Provider,
					Model:          space.Model,
				},
				Score: 0.99,
			}}

			results, err := engine.Search(ctx, other, "roadmap", nil, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(BeEmpty())
		})
	})

	It("bounds results to topK", func() {
		for i := 0; i < 5; i++ {
			createEpisodic("roadmap note", "roadmap detail")
		}

		results, err := engine.Search(ctx, tc, "roadmap", nil, 3)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(3))
	})
})
