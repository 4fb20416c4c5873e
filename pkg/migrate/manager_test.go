package migrate_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/mnemohq/mnemo/pkg/migrate"
	"github.com/mnemohq/mnemo/pkg/record"
	"github.com/mnemohq/mnemo/pkg/store/sqlite"
	"github.com/mnemohq/mnemo/pkg/tenant"
)

// A re-entrant structural change: safe to run against an already-migrated
// schema.
const addArchiveColumn = `
ALTER TABLE memory_records ADD COLUMN archive_hint TEXT;
`

const reentrantScript = `
CREATE TABLE IF NOT EXISTS migration_notes (
	id TEXT PRIMARY KEY,
	note TEXT
);
`

var _ = Describe("Manager", func() {
	var (
		ctx       context.Context
		dbPath    string
		backupDir string
		tc        tenant.Context
	)

	// seedDatabase creates a populated store on disk and closes it, leaving
	// the file for the migration target to open.
	seedDatabase := func() {
		driver, err := sqlite.NewDriver(sqlite.Config{DBPath: dbPath}, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())

		org, err := driver.CreateOrganization(ctx, "Test Org")
		Expect(err).NotTo(HaveOccurred())
		user, err := driver.CreateUser(ctx, org.ID, "Test User", "UTC")
		Expect(err).NotTo(HaveOccurred())
		tc = tenant.Context{OrganizationID: org.ID, UserID: user.ID}

		for _, summary := range []string{"first", "second", "third"} {
			_, err = driver.CreateRecord(ctx, tc, &record.Record{
				Variant: record.VariantEpisodic,
				Payload: &record.Episodic{
					OccurredAt: time.Now().UTC(),
					Actor:      "tester",
					EventType:  "observation",
					Summary:    summary,
					Details:    "details",
				},
			})
			Expect(err).NotTo(HaveOccurred())
		}

		Expect(driver.Close()).To(Succeed())
	}

	newManager := func(cfg migrate.Config) (*migrate.Manager, *migrate.SQLiteTarget) {
		target, err := migrate.NewSQLiteTarget(dbPath, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() {
			Expect(target.Close()).To(Succeed())
		})

		if cfg.BackupDir == "" {
			cfg.BackupDir = backupDir
		}
		return migrate.NewManager(target, cfg, zap.NewNop()), target
	}

	BeforeEach(func() {
		ctx = context.Background()
		dir := GinkgoT().TempDir()
		dbPath = filepath.Join(dir, "mnemo.db")
		backupDir = filepath.Join(dir, "backups")
		seedDatabase()
	})

	It("rejects an empty script", func() {
		manager, _ := newManager(migrate.Config{})
		_, err := manager.Run(ctx, "   ")
		Expect(err).To(HaveOccurred())
	})

	Describe("a successful run", func() {
		It("walks the state machine to Committed and keeps the backup file", func() {
			manager, _ := newManager(migrate.Config{})

			report, err := manager.Run(ctx, addArchiveColumn)
			Expect(err).NotTo(HaveOccurred())

			Expect(report.FinalState).To(Equal(migrate.StateCommitted))
			Expect(manager.State()).To(Equal(migrate.StateCommitted))

			// The backup stays on disk after commit; only the retention
			// pointer is released.
			Expect(report.BackupPath).NotTo(BeEmpty())
			Expect(report.BackupPath).To(BeAnExistingFile())
			Expect(manager.Snapshot().Retained()).To(BeFalse())

			Expect(report.Verify).NotTo(BeNil())
			Expect(report.Verify.Live["memory_records"]).To(Equal(3))
			Expect(report.Verify.OrphansDropped).To(BeEmpty())
		})

		It("is re-entrant when the script carries its own guards", func() {
			first, _ := newManager(migrate.Config{})
			report, err := first.Run(ctx, reentrantScript)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.FinalState).To(Equal(migrate.StateCommitted))

			second, _ := newManager(migrate.Config{})
			report, err = second.Run(ctx, reentrantScript)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.FinalState).To(Equal(migrate.StateCommitted))
		})
	})

	Describe("backup failures", func() {
		It("refuses to continue when the backup cannot be written", func() {
			// A file where the backup directory should be.
			blocked := filepath.Join(GinkgoT().TempDir(), "not-a-dir")
			Expect(os.WriteFile(blocked, []byte("x"), 0o600)).To(Succeed())

			manager, _ := newManager(migrate.Config{BackupDir: blocked})

			_, err := manager.Run(ctx, addArchiveColumn)
			Expect(errors.Is(err, migrate.ErrNoBackup)).To(BeTrue())
			Expect(manager.State()).NotTo(Equal(migrate.StateCommitted))
		})

		It("continues without a backup only on operator override", func() {
			blocked := filepath.Join(GinkgoT().TempDir(), "not-a-dir")
			Expect(os.WriteFile(blocked, []byte("x"), 0o600)).To(Succeed())

			manager, _ := newManager(migrate.Config{
				BackupDir:          blocked,
				ForceWithoutBackup: true,
			})

			report, err := manager.Run(ctx, addArchiveColumn)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.FinalState).To(Equal(migrate.StateCommitted))
			Expect(report.BackupPath).To(BeEmpty())
		})
	})

	Describe("aborts", func() {
		It("aborts on a failing transform, preserving the backup", func() {
			manager, _ := newManager(migrate.Config{})

			_, err := manager.Run(ctx, `THIS IS NOT SQL;`)
			Expect(migrate.IsAborted(err)).To(BeTrue())

			var aborted migrate.AbortedError
			Expect(errors.As(err, &aborted)).To(BeTrue())
			Expect(aborted.FailedAt).To(Equal(migrate.StateTransformed))
			Expect(aborted.BackupPath).NotTo(BeEmpty())
			Expect(aborted.BackupPath).To(BeAnExistingFile())

			Expect(manager.State()).To(Equal(migrate.StateAborted))
			Expect(manager.Snapshot().Retained()).To(BeTrue())
		})

		It("aborts when the row count cross-check fails, never restoring", func() {
			manager, _ := newManager(migrate.Config{})

			// A transform that silently loses rows: the verify cross-check
			// against the backup counts must catch it.
			_, err := manager.Run(ctx, `DELETE FROM memory_records;`)
			Expect(migrate.IsAborted(err)).To(BeTrue())

			var aborted migrate.AbortedError
			Expect(errors.As(err, &aborted)).To(BeTrue())
			Expect(aborted.FailedAt).To(Equal(migrate.StateVerified))
			Expect(aborted.BackupPath).To(BeAnExistingFile())

			// The live database keeps its partially applied state; the
			// manager leaves restoration to the operator.
			db, err := sql.Open("sqlite3", dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer db.Close()

			var n int
			Expect(db.QueryRow(`SELECT COUNT(*) FROM memory_records`).Scan(&n)).To(Succeed())
			Expect(n).To(BeZero())
		})
	})

	Describe("orphan dropping", func() {
		It("drops rows whose tenant is gone and accounts for them in the cross-check", func() {
			// An orphan planted outside the store's guard.
			db, err := sql.Open("sqlite3", dbPath)
			Expect(err).NotTo(HaveOccurred())
			_, err = db.Exec(
				`INSERT INTO memory_records
					(id, organization_id, user_id, variant, tree_path, payload,
					 created_at, updated_at, is_deleted)
				 VALUES ('orphan-1', 'gone-org', 'gone-user', 'episodic', 'episodic', '{}',
					 '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z', 0)`,
			)
			Expect(err).NotTo(HaveOccurred())
			Expect(db.Close()).To(Succeed())

			manager, _ := newManager(migrate.Config{})

			report, err := manager.Run(ctx, addArchiveColumn)
			Expect(err).NotTo(HaveOccurred())

			Expect(report.FinalState).To(Equal(migrate.StateCommitted))
			Expect(report.Verify.OrphansDropped["memory_records"]).To(Equal(1))
			Expect(report.Verify.Live["memory_records"]).To(Equal(3))
		})
	})

	Describe("verify defaults", func() {
		It("backfills missing model identifiers from configuration", func() {
			// A settings row migrated without models.
			db, err := sql.Open("sqlite3", dbPath)
			Expect(err).NotTo(HaveOccurred())
			_, err = db.Exec(
				`INSERT INTO user_settings (user_id, chat_model, memory_model, updated_at)
				 VALUES (?, '', '', '2026-01-01T00:00:00Z')`, tc.UserID,
			)
			Expect(err).NotTo(HaveOccurred())
			Expect(db.Close()).To(Succeed())

			manager, _ := newManager(migrate.Config{
				Defaults: migrate.Defaults{
					ChatModel:   "claude-sonnet",
					MemoryModel: "claude-haiku",
				},
			})

			report, err := manager.Run(ctx, addArchiveColumn)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.FinalState).To(Equal(migrate.StateCommitted))

			db, err = sql.Open("sqlite3", dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer db.Close()

			var chat, mem string
			Expect(db.QueryRow(
				`SELECT chat_model, memory_model FROM user_settings WHERE user_id = ?`, tc.UserID,
			).Scan(&chat, &mem)).To(Succeed())
			Expect(chat).To(Equal("claude-sonnet"))
			Expect(mem).To(Equal("claude-haiku"))
		})
	})
})

var _ = Describe("State", func() {
	It("moves forward one step at a time", func() {
		Expect(migrate.StatePrepared.CanAdvance(migrate.StateBackedUp)).To(BeTrue())
		Expect(migrate.StatePrepared.CanAdvance(migrate.StateTransformed)).To(BeFalse())
		Expect(migrate.StateVerified.CanAdvance(migrate.StateCommitted)).To(BeTrue())
		Expect(migrate.StateCommitted.CanAdvance(migrate.StateAborted)).To(BeFalse())
	})

	It("reaches Aborted from every non-terminal state", func() {
		for _, s := range []migrate.State{
			migrate.StatePrepared,
			migrate.StateBackedUp,
			migrate.StateTransformed,
			migrate.StateVerified,
		} {
			Expect(s.CanAbort()).To(BeTrue())
		}
		Expect(migrate.StateCommitted.CanAbort()).To(BeFalse())
		Expect(migrate.StateAborted.CanAbort()).To(BeFalse())
	})
})
