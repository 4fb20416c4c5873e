package record_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mnemohq/mnemo/pkg/record"
)

var _ = Describe("TreePath", func() {
	Describe("ParseTreePath", func() {
		It("parses segments and trims surrounding separators", func() {
			path, err := record.ParseTreePath("/work/meetings/")
			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(Equal(record.TreePath{"work", "meetings"}))
		})

		It("yields a nil path for empty input", func() {
			path, err := record.ParseTreePath("")
			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(BeNil())
		})

		It("rejects empty segments", func() {
			_, err := record.ParseTreePath("work//meetings")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("HasPrefix", func() {
		path := record.TreePath{"work", "meetings", "standup"}

		It("matches itself and every ancestor", func() {
			Expect(path.HasPrefix(nil)).To(BeTrue())
			Expect(path.HasPrefix(record.TreePath{"work"})).To(BeTrue())
			Expect(path.HasPrefix(record.TreePath{"work", "meetings"})).To(BeTrue())
			Expect(path.HasPrefix(path)).To(BeTrue())
		})

		It("rejects siblings and longer paths", func() {
			Expect(path.HasPrefix(record.TreePath{"personal"})).To(BeFalse())
			Expect(path.HasPrefix(append(path.Clone(), "notes"))).To(BeFalse())
		})
	})

	Describe("AssignPath", func() {
		It("keeps a caller hint as-is", func() {
			hint := record.TreePath{"work", "planning"}
			Expect(record.AssignPath(record.VariantEpisodic, hint)).To(Equal(hint))
		})

		It("defaults to the variant's top-level category", func() {
			Expect(record.AssignPath(record.VariantVault, nil)).
				To(Equal(record.TreePath{"vault"}))
		})

		It("clones the hint so later mutation does not leak", func() {
			hint := record.TreePath{"work"}
			assigned := record.AssignPath(record.VariantCore, hint)
			hint[0] = "mutated"
			Expect(assigned).To(Equal(record.TreePath{"work"}))
		})
	})
})
