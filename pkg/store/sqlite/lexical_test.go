package sqlite_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mnemohq/mnemo/pkg/record"
	"github.com/mnemohq/mnemo/pkg/store/sqlite"
	"github.com/mnemohq/mnemo/pkg/tenant"
)

var _ = Describe("SearchLexical", func() {
	var (
		ctx    context.Context
		driver *sqlite.Driver
		tc     tenant.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver, tc = newTestDriver(ctx)

		_, err := driver.CreateRecord(ctx, tc, episodicRecord(
			"decided the Q3 roadmap", "approved the plan with priya over coffee"))
		Expect(err).NotTo(HaveOccurred())

		_, err = driver.CreateRecord(ctx, tc, episodicRecord(
			"bought groceries", "oat milk, coffee beans and bread"))
		Expect(err).NotTo(HaveOccurred())

		_, err = driver.CreateRecord(ctx, tc, &record.Record{
			Variant: record.VariantSemantic,
			Payload: &record.Semantic{
				Name:    "priya",
				Summary: "owns the roadmap",
				Details: "principal engineer on the platform team",
				Source:  "test",
			},
		})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(driver.Close()).To(Succeed())
	})

	It("ranks term-dense matches first", func() {
		hits, err := driver.SearchLexical(ctx, tc, "roadmap", nil, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(hits).To(HaveLen(2))
		Expect(hits[0].Score).To(BeNumerically(">=", hits[1].Score))
		for _, hit := range hits {
			Expect(hit.Record.Payload.SearchText()).To(ContainSubstring("roadmap"))
		}
	})

	It("returns nothing for an empty query", func() {
		hits, err := driver.SearchLexical(ctx, tc, "   ", nil, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(hits).To(BeNil())
	})

	It("filters by variant", func() {
		hits, err := driver.SearchLexical(ctx, tc, "roadmap",
			[]record.Variant{record.VariantSemantic}, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(hits).To(HaveLen(1))
		Expect(hits[0].Record.Variant).To(Equal(record.VariantSemantic))
	})

	It("excludes soft-deleted records", func() {
		hits, err := driver.SearchLexical(ctx, tc, "groceries", nil, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(hits).To(HaveLen(1))

		Expect(driver.SoftDeleteRecord(ctx, tc, hits[0].Record.ID)).To(Succeed())

		hits, err = driver.SearchLexical(ctx, tc, "groceries", nil, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(hits).To(BeEmpty())
	})

	It("never crosses the tenant boundary", func() {
		other := newTenant(ctx, driver, "Other Org", "Other User")
		hits, err := driver.SearchLexical(ctx, other, "roadmap", nil, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(hits).To(BeEmpty())
	})

	Describe("vault entries", func() {
		BeforeEach(func() {
			_, err := driver.CreateRecord(ctx, tc, vaultRecord("staging db password", "hunter2"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("matches on the caption with the secret masked", func() {
			hits, err := driver.SearchLexical(ctx, tc, "staging password", nil, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(hits).To(HaveLen(1))

			vault := hits[0].Record.Payload.(*record.Vault)
			Expect(vault.SecretValue).To(Equal(record.MaskedSecret))
		})

		It("never matches on the secret value itself", func() {
			hits, err := driver.SearchLexical(ctx, tc, "hunter2", nil, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(hits).To(BeEmpty())
		})
	})
})
