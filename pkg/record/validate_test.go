package record_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mnemohq/mnemo/pkg/record"
)

var _ = Describe("Validate", func() {
	It("accepts a complete record", func() {
		err := record.Validate(&record.Record{
			Variant: record.VariantEpisodic,
			Payload: &record.Episodic{
				OccurredAt: time.Now().UTC(),
				Actor:      "tester",
				EventType:  "observation",
				Summary:    "met priya",
				Details:    "discussed roadmap",
			},
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("names every missing required field", func() {
		err := record.Validate(&record.Record{
			Variant: record.VariantSemantic,
			Payload: &record.Semantic{Name: "priya"},
		})
		Expect(record.IsValidation(err)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("summary"))
		Expect(err.Error()).To(ContainSubstring("details"))
		Expect(err.Error()).To(ContainSubstring("source"))
	})

	It("rejects an unknown variant", func() {
		err := record.Validate(&record.Record{Variant: "dreams"})
		Expect(record.IsValidation(err)).To(BeTrue())
	})

	It("rejects a payload whose variant disagrees with the record", func() {
		err := record.Validate(&record.Record{
			Variant: record.VariantEpisodic,
			Payload: &record.Core{Aspect: "style", Content: "terse"},
		})
		Expect(record.IsValidation(err)).To(BeTrue())
	})

	It("requires a revision note on every update", func() {
		Expect(record.ValidateRevision(record.Revision{Actor: "tester"})).
			To(MatchError(record.ErrMissingRevisionNote))
		Expect(record.ValidateRevision(record.NewRevision("tester", "why"))).
			To(Succeed())
	})
})

var _ = Describe("Vault payload", func() {
	vault := &record.Vault{
		EntryType:   "credential",
		Source:      "test",
		Sensitivity: "high",
		SecretValue: "s3cret",
		Caption:     "staging db password",
	}

	It("masks the secret without touching the original", func() {
		masked := vault.Mask()
		Expect(masked.SecretValue).To(Equal(record.MaskedSecret))
		Expect(vault.SecretValue).To(Equal("s3cret"))
		Expect(masked.Caption).To(Equal(vault.Caption))
	})

	It("keeps the secret out of search text and embed fields", func() {
		Expect(vault.SearchText()).NotTo(ContainSubstring("s3cret"))
		for _, text := range vault.EmbedFields() {
			Expect(text).NotTo(ContainSubstring("s3cret"))
		}
	})
})

var _ = Describe("tagged union decoding", func() {
	It("selects the payload type from the variant discriminant", func() {
		encoded, err := json.Marshal(&record.Record{
			ID:      "r1",
			Variant: record.VariantProcedural,
			Payload: &record.Procedural{
				EntryType: "runbook",
				Summary:   "rotate credentials",
				Steps:     []string{"revoke old key", "issue new key"},
			},
		})
		Expect(err).NotTo(HaveOccurred())

		var decoded record.Record
		Expect(json.Unmarshal(encoded, &decoded)).To(Succeed())

		proc, ok := decoded.Payload.(*record.Procedural)
		Expect(ok).To(BeTrue())
		Expect(proc.Steps).To(HaveLen(2))
	})

	It("fails on an unknown variant discriminant", func() {
		var decoded record.Record
		err := json.Unmarshal([]byte(`{"variant":"dreams","payload":{"x":1}}`), &decoded)
		Expect(err).To(HaveOccurred())
	})
})
