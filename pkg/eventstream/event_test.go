package eventstream_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mnemohq/mnemo/pkg/eventstream"
	"github.com/mnemohq/mnemo/pkg/record"
)

var _ = Describe("NewRecordPersistedEvent", func() {
	rec := &record.Record{
		ID:             "r1",
		OrganizationID: "org-1",
		UserID:         "user-1",
		Variant:        record.VariantVault,
		TreePath:       record.TreePath{"work", "secrets"},
		Payload: &record.Vault{
			EntryType:   "credential",
			Source:      "test",
			Sensitivity: "high",
			SecretValue: "hunter2",
			Caption:     "staging db password",
		},
	}

	It("stamps schema version, type and a unique event id", func() {
		a := eventstream.NewRecordPersistedEvent(rec, "", false)
		b := eventstream.NewRecordPersistedEvent(rec, "", false)

		Expect(a.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
		Expect(a.EventType).To(Equal(eventstream.EventTypeRecordPersisted))
		Expect(a.EventID).NotTo(BeEmpty())
		Expect(a.EventID).NotTo(Equal(b.EventID))
		Expect(a.EmittedAt).NotTo(BeZero())
	})

	It("carries tenant scope and record identity", func() {
		event := eventstream.NewRecordPersistedEvent(rec, "rotated", true)

		Expect(event.Source.OrganizationID).To(Equal("org-1"))
		Expect(event.Source.UserID).To(Equal("user-1"))
		Expect(event.Record.ID).To(Equal("r1"))
		Expect(event.Record.Variant).To(Equal(record.VariantVault))
		Expect(event.Record.TreePath).To(Equal("work/secrets"))
		Expect(event.Record.RevisionNote).To(Equal("rotated"))
		Expect(event.Record.Deleted).To(BeTrue())
	})

	It("never serializes payload content, secrets included", func() {
		event := eventstream.NewRecordPersistedEvent(rec, "", false)

		encoded, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(encoded)).NotTo(ContainSubstring("hunter2"))
		Expect(string(encoded)).NotTo(ContainSubstring("staging db password"))
	})
})
