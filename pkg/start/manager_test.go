package start_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mnemohq/mnemo/pkg/start"
)

var _ = Describe("Manager", func() {
	var manager *start.Manager

	BeforeEach(func() {
		var err error
		manager, err = start.NewManager(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("state file", func() {
		It("returns nil when no state exists", func() {
			state, err := manager.LoadState()
			Expect(err).NotTo(HaveOccurred())
			Expect(state).To(BeNil())
		})

		It("round-trips state with the version stamped in", func() {
			Expect(manager.SaveState(&start.State{
				PID:             os.Getpid(),
				SQLitePath:      "/data/mnemo.db",
				IntervalSeconds: 60,
			})).To(Succeed())

			state, err := manager.LoadState()
			Expect(err).NotTo(HaveOccurred())
			Expect(state.Version).To(Equal(1))
			Expect(state.PID).To(Equal(os.Getpid()))
			Expect(state.SQLitePath).To(Equal("/data/mnemo.db"))
			Expect(state.UpdatedAt).NotTo(BeZero())
		})

		It("writes the state file with owner-only permissions", func() {
			Expect(manager.SaveState(&start.State{PID: 1})).To(Succeed())

			info, err := os.Stat(filepath.Join(manager.Dir, "reconcile.json"))
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))
		})

		It("clears state idempotently", func() {
			Expect(manager.SaveState(&start.State{PID: 1})).To(Succeed())
			Expect(manager.ClearState()).To(Succeed())
			Expect(manager.ClearState()).To(Succeed())

			state, err := manager.LoadState()
			Expect(err).NotTo(HaveOccurred())
			Expect(state).To(BeNil())
		})

		It("rejects nil state", func() {
			Expect(manager.SaveState(nil)).NotTo(Succeed())
		})
	})

	Describe("lock", func() {
		It("admits one holder at a time per directory", func() {
			lock, err := manager.Lock()
			Expect(err).NotTo(HaveOccurred())

			other, err := start.NewManager(manager.Dir)
			Expect(err).NotTo(HaveOccurred())
			_, err = other.Lock()
			Expect(err).To(HaveOccurred())

			Expect(lock.Release()).To(Succeed())

			reacquired, err := other.Lock()
			Expect(err).NotTo(HaveOccurred())
			Expect(reacquired.Release()).To(Succeed())
		})

		It("does not contend across directories", func() {
			lock, err := manager.Lock()
			Expect(err).NotTo(HaveOccurred())
			defer lock.Release()

			elsewhere, err := start.NewManager(GinkgoT().TempDir())
			Expect(err).NotTo(HaveOccurred())
			otherLock, err := elsewhere.Lock()
			Expect(err).NotTo(HaveOccurred())
			Expect(otherLock.Release()).To(Succeed())
		})
	})
})
