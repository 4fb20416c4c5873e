package sqlitevec_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/mnemohq/mnemo/pkg/vector"
	"github.com/mnemohq/mnemo/pkg/vector/sqlitevec"
)

var _ = Describe("SQLiteVecDriver", func() {
	var (
		ctx    context.Context
		driver *sqlitevec.SQLiteVecDriver
	)

	doc := func(id, recordID, org, user string, emb []float32) vector.Document {
		return vector.Document{
			ID:             id,
			RecordID:       recordID,
			OrganizationID: org,
			UserID:         user,
			Provider:       "mock",
			Model:          "mock-embed",
			Field:          "summary",
			Embedding:      emb,
		}
	}

	filter := func(org, user string) vector.Filter {
		return vector.Filter{
			OrganizationID: org,
			UserID:         user,
			Provider:       "mock",
			Model:          "mock-embed",
		}
	}

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		driver, err = sqlitevec.NewSQLiteVecDriver(sqlitevec.Config{
			DBPath:     ":memory:",
			Dimensions: 3,
		}, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(driver.Close()).To(Succeed())
	})

	It("requires configured dimensions", func() {
		_, err := sqlitevec.NewSQLiteVecDriver(sqlitevec.Config{DBPath: ":memory:"}, zap.NewNop())
		Expect(err).To(HaveOccurred())
	})

	Describe("Add and Query", func() {
		BeforeEach(func() {
			Expect(driver.Add(ctx, []vector.Document{
				doc("r1:summary", "r1", "org-a", "user-a", []float32{1, 0, 0}),
				doc("r2:summary", "r2", "org-a", "user-a", []float32{0, 1, 0}),
				doc("r3:summary", "r3", "org-b", "user-b", []float32{1, 0, 0}),
			})).To(Succeed())
		})

		It("ranks nearest neighbors first", func() {
			results, err := driver.Query(ctx, []float32{1, 0, 0}, 2, filter("org-a", "user-a"))
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			Expect(results[0].RecordID).To(Equal("r1"))
			Expect(results[0].Score).To(BeNumerically(">", results[1].Score))
		})

		It("never returns documents outside the filter's tenant", func() {
			results, err := driver.Query(ctx, []float32{1, 0, 0}, 10, filter("org-a", "user-a"))
			Expect(err).NotTo(HaveOccurred())
			for _, r := range results {
				Expect(r.OrganizationID).To(Equal("org-a"))
			}
		})

		It("excludes documents embedded under another provider or model", func() {
			other := doc("r4:summary", "r4", "org-a", "user-a", []float32{1, 0, 0})
			other.Provider = "openai"
			other.Model = "text-embedding-3-small"
			Expect(driver.Add(ctx, []vector.Document{other})).To(Succeed())

			results, err := driver.Query(ctx, []float32{1, 0, 0}, 10, filter("org-a", "user-a"))
			Expect(err).NotTo(HaveOccurred())
			for _, r := range results {
				Expect(r.RecordID).NotTo(Equal("r4"))
			}
		})

		It("rejects incomplete filters", func() {
			_, err := driver.Query(ctx, []float32{1, 0, 0}, 10, vector.Filter{
				OrganizationID: "org-a",
			})
			Expect(err).To(MatchError(vector.ErrFilter))
		})

		It("replaces a document on re-add", func() {
			Expect(driver.Add(ctx, []vector.Document{
				doc("r1:summary", "r1", "org-a", "user-a", []float32{0, 0, 1}),
			})).To(Succeed())

			results, err := driver.Query(ctx, []float32{0, 0, 1}, 1, filter("org-a", "user-a"))
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].RecordID).To(Equal("r1"))
		})
	})

	Describe("Get", func() {
		It("returns documents with their embeddings", func() {
			emb := []float32{0.5, 0.5, 0}
			Expect(driver.Add(ctx, []vector.Document{
				doc("r1:summary", "r1", "org-a", "user-a", emb),
			})).To(Succeed())

			docs, err := driver.Get(ctx, []string{"r1:summary", "missing"})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].Embedding).To(Equal(emb))
		})
	})

	Describe("deletion", func() {
		BeforeEach(func() {
			Expect(driver.Add(ctx, []vector.Document{
				doc("r1:summary", "r1", "org-a", "user-a", []float32{1, 0, 0}),
				doc("r1:details", "r1", "org-a", "user-a", []float32{0, 1, 0}),
				doc("r2:summary", "r2", "org-a", "user-a", []float32{0, 0, 1}),
			})).To(Succeed())
		})

		It("deletes by document id", func() {
			Expect(driver.Delete(ctx, []string{"r1:summary"})).To(Succeed())

			docs, err := driver.Get(ctx, []string{"r1:summary", "r1:details"})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].ID).To(Equal("r1:details"))
		})

		It("deletes every document of a record", func() {
			Expect(driver.DeleteByRecord(ctx, []string{"r1"})).To(Succeed())

			results, err := driver.Query(ctx, []float32{1, 0, 0}, 10, filter("org-a", "user-a"))
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].RecordID).To(Equal("r2"))
		})
	})
})
