// Package usecmder provides the use subcommand for selecting the tenant
// scope later commands operate under.
package usecmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mnemohq/mnemo/cmd/mnemo/sqlitepath"
	"github.com/mnemohq/mnemo/pkg/dotdir"
	"github.com/mnemohq/mnemo/pkg/logger"
	"github.com/mnemohq/mnemo/pkg/store/sqlite"
	"github.com/mnemohq/mnemo/pkg/tenant"
)

type useCommander struct {
	orgID  string
	userID string

	sqlitePath string
	configDir  string
	debug      bool

	logger *zap.Logger
}

const useLongDesc string = `Select the organization (and optionally user) that
tenant-scoped commands operate under.

The selection is verified against the record store and persisted as
context.json in the .mnemo/ directory. Running without arguments clears
the current selection.

Examples:
  mnemo use 01J8ME9HYDQ5RT2W6KNF3XVBCA                Operate as an organization
  mnemo use 01J8ME9HYDQ5RT2W6KNF3XVBCA 01J8MEB2...    Operate as a user within it
  mnemo use                                           Clear the selection`

const useShortDesc string = "Select the active tenant scope"

func NewUseCmd() *cobra.Command {
	cmder := &useCommander{}

	cmd := &cobra.Command{
		Use:   "use [org-id] [user-id]",
		Short: useShortDesc,
		Long:  useLongDesc,
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				cmder.orgID = args[0]
			}
			if len(args) > 1 {
				cmder.userID = args[1]
			}

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Path to SQLite database")

	return cmd
}

func (c *useCommander) run(ctx context.Context) error {
	dotdirManager := dotdir.NewManager()
	c.logger = logger.NewZap(c.debug)
	defer func() { _ = c.logger.Sync() }()

	// No arguments clears the selection
	if c.orgID == "" {
		if err := dotdirManager.ClearContext(c.configDir); err != nil {
			return fmt.Errorf("clearing tenant context: %w", err)
		}
		fmt.Println("Tenant context cleared.")
		return nil
	}

	dbPath, err := sqlitepath.ResolveSQLitePath(c.sqlitePath)
	if err != nil {
		return err
	}

	st, err := sqlite.NewDriver(sqlite.Config{DBPath: dbPath}, c.logger)
	if err != nil {
		return fmt.Errorf("opening record store: %w", err)
	}
	defer func() { _ = st.Close() }()

	tc := tenant.Context{OrganizationID: c.orgID, UserID: c.userID}
	if err := st.ResolveTenant(ctx, tc); err != nil {
		return fmt.Errorf("verifying tenant: %w", err)
	}

	state := &dotdir.ContextState{
		OrganizationID: c.orgID,
		UserID:         c.userID,
	}
	if err := dotdirManager.SaveContext(state, c.configDir); err != nil {
		return fmt.Errorf("saving tenant context: %w", err)
	}

	if c.userID != "" {
		fmt.Printf("Using organization %s as user %s\n", c.orgID, c.userID)
	} else {
		fmt.Printf("Using organization %s\n", c.orgID)
	}

	return nil
}

// LoadTenantContext reads the persisted selection for tenant-scoped
// commands. Returns an error when no selection has been made yet.
func LoadTenantContext(configDir string) (tenant.Context, error) {
	state, err := dotdir.NewManager().LoadContextState(configDir)
	if err != nil {
		return tenant.Context{}, fmt.Errorf("loading tenant context: %w", err)
	}
	if state == nil || state.OrganizationID == "" {
		return tenant.Context{}, fmt.Errorf("no tenant selected; run mnemo use <org-id> [user-id] first")
	}
	return tenant.Context{
		OrganizationID: state.OrganizationID,
		UserID:         state.UserID,
	}, nil
}
