// Package seedcmder provides the seed command for populating a demo corpus.
package seedcmder

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mnemohq/mnemo/cmd/mnemo/sqlitepath"
	"github.com/mnemohq/mnemo/pkg/cliui"
	"github.com/mnemohq/mnemo/pkg/logger"
	"github.com/mnemohq/mnemo/pkg/seed"
)

const seedLongDesc string = `Seed demo data into a SQLite database.

Creates a demo organization and user plus a spread of memory records
across all six variants. Records are seeded without embeddings; run
"mnemo reconcile" against a live embedder to fill them in.

Examples:
  mnemo seed
  mnemo seed --demo
  mnemo seed --sqlite ./mnemo.db
  mnemo seed --overwrite`

const seedShortDesc string = "Seed demo memory records"

type seedCommander struct {
	sqlitePath string
	demo       bool
	overwrite  bool
	debug      bool

	logger *zap.Logger
}

func NewSeedCmd() *cobra.Command {
	cmder := &seedCommander{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: seedShortDesc,
		Long:  seedLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Path to SQLite database")
	cmd.Flags().BoolVarP(&cmder.demo, "demo", "m", false, "Seed into the demo database path")
	cmd.Flags().BoolVarP(&cmder.overwrite, "overwrite", "f", false, "Overwrite database before seeding")

	return cmd
}

func (c *seedCommander) run(ctx context.Context) error {
	c.logger = logger.NewZap(c.debug)
	defer func() { _ = c.logger.Sync() }()

	sqlitePath := c.resolveSQLitePath()

	var result *seed.Result
	if err := cliui.Step(os.Stdout, "Seeding demo data", func() error {
		var seedErr error
		result, seedErr = seed.SeedDemo(ctx, sqlitePath, c.overwrite, c.logger)
		return seedErr
	}); err != nil {
		return err
	}

	fmt.Printf("\n  %s Seeded %s records into %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(strconv.Itoa(result.Records)),
		cliui.DimStyle.Render(sqlitePath),
	)
	fmt.Printf("  Select the demo tenant with:\n    mnemo use %s %s\n\n",
		result.OrganizationID, result.UserID)
	return nil
}

func (c *seedCommander) resolveSQLitePath() string {
	if strings.TrimSpace(c.sqlitePath) != "" {
		return c.sqlitePath
	}

	if c.demo {
		return seed.DemoSQLitePath
	}

	path, err := sqlitepath.ResolveSQLitePath("")
	if err == nil {
		return path
	}

	return "mnemo.db"
}
