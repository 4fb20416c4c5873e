// Package migratecmder provides the migrate command: schema changes with
// a backup, transform, verify, commit-or-abort discipline.
package migratecmder

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mnemohq/mnemo/pkg/cliui"
	"github.com/mnemohq/mnemo/pkg/config"
	"github.com/mnemohq/mnemo/pkg/logger"
	"github.com/mnemohq/mnemo/pkg/migrate"
)

type migrateCommander struct {
	scriptPath string

	sqlitePath         string
	backupDir          string
	forceWithoutBackup bool

	configDir string
	debug     bool

	logger *zap.Logger
}

const migrateLongDesc string = `Run a schema migration script against a mnemo database.

The migration runs as a state machine: a backup snapshot is taken before
anything changes, the script applies in one transaction, and a verify
step drops rows orphaned by deleted tenants and cross-checks row counts
against the backup. Any failure after the backup aborts the run and
preserves the backup for manual inspection; the database is never
restored automatically.

The backup location is always printed, on success and on abort.

The target is Postgres by default, configured through environment
variables:
  MNEMO_PG_HOST, MNEMO_PG_PORT, MNEMO_PG_DATABASE,
  MNEMO_PG_USER, MNEMO_PG_PASSWORD

Pass --sqlite to migrate a local SQLite database instead.

Exit status is 0 when the migration commits and non-zero otherwise.

Examples:
  MNEMO_PG_HOST=db.internal MNEMO_PG_DATABASE=mnemo MNEMO_PG_USER=ops \
    mnemo migrate 0042_add_settings.sql
  mnemo migrate 0042_add_settings.sql --sqlite ./mnemo.db
  mnemo migrate 0042_add_settings.sql --sqlite ./mnemo.db --backup-dir /var/backups`

const migrateShortDesc string = "Run a schema migration with backup"

func NewMigrateCmd() *cobra.Command {
	cmder := &migrateCommander{}

	cmd := &cobra.Command{
		Use:   "migrate <file.sql>",
		Short: migrateShortDesc,
		Long:  migrateLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.scriptPath = args[0]

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Migrate a local SQLite database instead of Postgres")
	cmd.Flags().StringVar(&cmder.backupDir, "backup-dir", "", "Directory for the backup snapshot (default from config)")
	cmd.Flags().BoolVar(&cmder.forceWithoutBackup, "force-without-backup", false, "Continue even if the backup step fails")

	return cmd
}

func (c *migrateCommander) run(ctx context.Context) error {
	c.logger = logger.NewZap(c.debug)
	defer func() { _ = c.logger.Sync() }()

	script, err := os.ReadFile(c.scriptPath)
	if err != nil {
		return fmt.Errorf("reading migration script: %w", err)
	}

	cfger, err := config.NewConfiger(c.configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg, err := cfger.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	backupDir := c.backupDir
	if backupDir == "" {
		backupDir = cfg.Migration.BackupDir
	}

	target, err := c.newTarget()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := target.Close(); cerr != nil {
			c.logger.Warn("closing migration target", zap.Error(cerr))
		}
	}()

	manager := migrate.NewManager(target, migrate.Config{
		BackupDir: backupDir,
		Defaults: migrate.Defaults{
			ChatModel:   cfg.Migration.DefaultChatModel,
			MemoryModel: cfg.Migration.DefaultMemoryModel,
		},
		ForceWithoutBackup: c.forceWithoutBackup,
	}, c.logger)

	report, runErr := manager.Run(ctx, string(script))

	// The backup location is printed on every path that produced one.
	if report != nil && report.BackupPath != "" {
		fmt.Printf("Backup: %s\n", report.BackupPath)
	}

	if runErr != nil {
		return runErr
	}

	fmt.Printf("\n  %s Migration committed on %s\n", cliui.SuccessMark, target.Name())
	if report.Verify != nil {
		total := 0
		for table, dropped := range report.Verify.OrphansDropped {
			if dropped > 0 {
				fmt.Printf("    dropped %d orphaned rows from %s\n", dropped, table)
			}
			total += dropped
		}
		if total == 0 {
			fmt.Println("    no orphaned rows")
		}
	}
	fmt.Println()

	return nil
}

func (c *migrateCommander) newTarget() (migrate.Target, error) {
	if c.sqlitePath != "" {
		return migrate.NewSQLiteTarget(c.sqlitePath, c.logger)
	}

	pgCfg := migrate.PostgresConfig{
		Host:     strings.TrimSpace(os.Getenv("MNEMO_PG_HOST")),
		Port:     strings.TrimSpace(os.Getenv("MNEMO_PG_PORT")),
		Database: strings.TrimSpace(os.Getenv("MNEMO_PG_DATABASE")),
		User:     strings.TrimSpace(os.Getenv("MNEMO_PG_USER")),
		Password: os.Getenv("MNEMO_PG_PASSWORD"),
	}

	if pgCfg.Host == "" && pgCfg.Database == "" {
		return nil, fmt.Errorf("no target: set MNEMO_PG_HOST and MNEMO_PG_DATABASE, or pass --sqlite")
	}

	return migrate.NewPostgresTarget(pgCfg, c.logger)
}
