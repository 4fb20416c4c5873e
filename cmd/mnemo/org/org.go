// Package orgcmder provides organization management commands.
package orgcmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mnemohq/mnemo/cmd/mnemo/sqlitepath"
	"github.com/mnemohq/mnemo/pkg/cliui"
	"github.com/mnemohq/mnemo/pkg/logger"
	"github.com/mnemohq/mnemo/pkg/store/sqlite"
)

const orgLongDesc string = `Manage organizations.

An organization is the isolation boundary for all stored data. Records,
users, agents and files always belong to exactly one organization and are
invisible outside of it.

Examples:
  mnemo org create "Acme"
  mnemo org get 01J8ME9HYDQ5RT2W6KNF3XVBCA
  mnemo org delete 01J8ME9HYDQ5RT2W6KNF3XVBCA`

const orgShortDesc string = "Manage organizations"

func NewOrgCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "org",
		Short: orgShortDesc,
		Long:  orgLongDesc,
	}

	cmd.AddCommand(newCreateCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newDeleteCmd())

	return cmd
}

type orgCommander struct {
	sqlitePath string
	debug      bool

	logger *zap.Logger
}

func (c *orgCommander) open(cmd *cobra.Command) (*sqlite.Driver, error) {
	var err error
	c.debug, err = cmd.Flags().GetBool("debug")
	if err != nil {
		return nil, fmt.Errorf("could not get debug flag: %w", err)
	}

	c.logger = logger.NewZap(c.debug)

	dbPath, err := sqlitepath.ResolveSQLitePath(c.sqlitePath)
	if err != nil {
		return nil, err
	}

	st, err := sqlite.NewDriver(sqlite.Config{DBPath: dbPath}, c.logger)
	if err != nil {
		return nil, fmt.Errorf("opening record store: %w", err)
	}

	return st, nil
}

func (c *orgCommander) close(st *sqlite.Driver) {
	if err := st.Close(); err != nil {
		c.logger.Warn("closing record store", zap.Error(err))
	}
	_ = c.logger.Sync()
}

func newCreateCmd() *cobra.Command {
	cmder := &orgCommander{}

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an organization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.runCreate(cmd, args[0])
		},
	}

	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Path to SQLite database")

	return cmd
}

func (c *orgCommander) runCreate(cmd *cobra.Command, name string) error {
	st, err := c.open(cmd)
	if err != nil {
		return err
	}
	defer c.close(st)

	org, err := st.CreateOrganization(cmd.Context(), name)
	if err != nil {
		return fmt.Errorf("creating organization: %w", err)
	}

	fmt.Printf("\n  %s Created organization %s %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(org.Name),
		cliui.DimStyle.Render(org.ID),
	)
	return nil
}

func newGetCmd() *cobra.Command {
	cmder := &orgCommander{}

	cmd := &cobra.Command{
		Use:   "get <org-id>",
		Short: "Show an organization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.runGet(cmd.Context(), cmd, args[0])
		},
	}

	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Path to SQLite database")

	return cmd
}

func (c *orgCommander) runGet(ctx context.Context, cmd *cobra.Command, id string) error {
	st, err := c.open(cmd)
	if err != nil {
		return err
	}
	defer c.close(st)

	org, err := st.GetOrganization(ctx, id)
	if err != nil {
		return err
	}

	fmt.Printf("\n  %s  %s\n", cliui.KeyStyle.Render("ID:"), org.ID)
	fmt.Printf("  %s  %s\n", cliui.KeyStyle.Render("Name:"), org.Name)
	fmt.Printf("  %s  %s\n\n", cliui.KeyStyle.Render("Created:"), org.CreatedAt.Format("2006-01-02 15:04:05"))
	return nil
}

func newDeleteCmd() *cobra.Command {
	cmder := &orgCommander{}

	cmd := &cobra.Command{
		Use:   "delete <org-id>",
		Short: "Soft-delete an organization",
		Long: `Soft-delete an organization.

The organization and everything under it become invisible to reads but no
rows are removed. There is no hard delete for organizations.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.runDelete(cmd.Context(), cmd, args[0])
		},
	}

	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Path to SQLite database")

	return cmd
}

func (c *orgCommander) runDelete(ctx context.Context, cmd *cobra.Command, id string) error {
	st, err := c.open(cmd)
	if err != nil {
		return err
	}
	defer c.close(st)

	if err := st.SoftDeleteOrganization(ctx, id); err != nil {
		return err
	}

	fmt.Printf("\n  %s Deleted organization %s\n\n", cliui.SuccessMark, cliui.DimStyle.Render(id))
	return nil
}
