// Package usercmder provides user management commands.
package usercmder

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mnemohq/mnemo/cmd/mnemo/sqlitepath"
	usecmder "github.com/mnemohq/mnemo/cmd/mnemo/use"
	"github.com/mnemohq/mnemo/pkg/cliui"
	"github.com/mnemohq/mnemo/pkg/logger"
	"github.com/mnemohq/mnemo/pkg/store"
	"github.com/mnemohq/mnemo/pkg/store/sqlite"
	"github.com/mnemohq/mnemo/pkg/tenant"
)

const userLongDesc string = `Manage users within the selected organization.

Users belong to exactly one organization. Select the organization first
with "mnemo use <org-id>".

Examples:
  mnemo user create "Ada" --timezone Europe/London
  mnemo user show
  mnemo user profile --chat-model gpt-4o --persona "terse and precise"`

const userShortDesc string = "Manage users"

func NewUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: userShortDesc,
		Long:  userLongDesc,
	}

	cmd.AddCommand(newCreateCmd())
	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newProfileCmd())

	return cmd
}

type userCommander struct {
	sqlitePath string
	timezone   string

	chatModel   string
	memoryModel string
	persona     string

	debug  bool
	logger *zap.Logger
}

func (c *userCommander) open(cmd *cobra.Command) (*sqlite.Driver, tenant.Context, error) {
	var err error
	c.debug, err = cmd.Flags().GetBool("debug")
	if err != nil {
		return nil, tenant.Context{}, fmt.Errorf("could not get debug flag: %w", err)
	}

	configDir, _ := cmd.Flags().GetString("config-dir")

	c.logger = logger.NewZap(c.debug)

	tc, err := usecmder.LoadTenantContext(configDir)
	if err != nil {
		return nil, tenant.Context{}, err
	}

	dbPath, err := sqlitepath.ResolveSQLitePath(c.sqlitePath)
	if err != nil {
		return nil, tenant.Context{}, err
	}

	st, err := sqlite.NewDriver(sqlite.Config{DBPath: dbPath}, c.logger)
	if err != nil {
		return nil, tenant.Context{}, fmt.Errorf("opening record store: %w", err)
	}

	return st, tc, nil
}

func (c *userCommander) close(st *sqlite.Driver) {
	if err := st.Close(); err != nil {
		c.logger.Warn("closing record store", zap.Error(err))
	}
	_ = c.logger.Sync()
}

func newCreateCmd() *cobra.Command {
	cmder := &userCommander{}

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a user in the selected organization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, tc, err := cmder.open(cmd)
			if err != nil {
				return err
			}
			defer cmder.close(st)

			user, err := st.CreateUser(cmd.Context(), tc.OrganizationID, args[0], cmder.timezone)
			if err != nil {
				return fmt.Errorf("creating user: %w", err)
			}

			fmt.Printf("\n  %s Created user %s %s\n\n",
				cliui.SuccessMark,
				cliui.NameStyle.Render(user.Name),
				cliui.DimStyle.Render(user.ID),
			)
			return nil
		},
	}

	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Path to SQLite database")
	cmd.Flags().StringVar(&cmder.timezone, "timezone", "", "IANA timezone for the user")

	return cmd
}

func newShowCmd() *cobra.Command {
	cmder := &userCommander{}

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the selected user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, tc, err := cmder.open(cmd)
			if err != nil {
				return err
			}
			defer cmder.close(st)

			if !tc.UserScoped() {
				return fmt.Errorf("no user selected; run mnemo use <org-id> <user-id> first")
			}

			user, err := st.GetUser(cmd.Context(), tc)
			if err != nil {
				return err
			}

			fmt.Printf("\n  %s  %s\n", cliui.KeyStyle.Render("ID:"), user.ID)
			fmt.Printf("  %s  %s\n", cliui.KeyStyle.Render("Name:"), user.Name)
			fmt.Printf("  %s  %s\n", cliui.KeyStyle.Render("Status:"), string(user.Status))
			if user.Timezone != "" {
				fmt.Printf("  %s  %s\n", cliui.KeyStyle.Render("Timezone:"), user.Timezone)
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Path to SQLite database")

	return cmd
}

func newProfileCmd() *cobra.Command {
	cmder := &userCommander{}

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or update the selected user's profile settings",
		Long: `Show or update the selected user's profile settings.

Without flags, prints the current profile. With flags, updates the named
fields and prints the result.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.runProfile(cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Path to SQLite database")
	cmd.Flags().StringVar(&cmder.chatModel, "chat-model", "", "Model used for chat")
	cmd.Flags().StringVar(&cmder.memoryModel, "memory-model", "", "Model used for memory extraction")
	cmd.Flags().StringVar(&cmder.persona, "persona", "", "Assistant persona description")
	cmd.Flags().StringVar(&cmder.timezone, "timezone", "", "IANA timezone")

	return cmd
}

func (c *userCommander) runProfile(cmd *cobra.Command) error {
	st, tc, err := c.open(cmd)
	if err != nil {
		return err
	}
	defer c.close(st)

	if !tc.UserScoped() {
		return fmt.Errorf("no user selected; run mnemo use <org-id> <user-id> first")
	}

	ctx := cmd.Context()

	changed := c.chatModel != "" || c.memoryModel != "" || c.persona != "" || c.timezone != ""
	if changed {
		settings, err := st.GetProfileSettings(ctx, tc)
		if store.IsNotFound(err) {
			settings = &tenant.ProfileSettings{UserID: tc.UserID}
		} else if err != nil {
			return err
		}

		if c.chatModel != "" {
			settings.ChatModel = c.chatModel
		}
		if c.memoryModel != "" {
			settings.MemoryModel = c.memoryModel
		}
		if c.persona != "" {
			settings.Persona = c.persona
		}
		if c.timezone != "" {
			settings.Timezone = c.timezone
		}

		if err := st.PutProfileSettings(ctx, tc, settings); err != nil {
			return fmt.Errorf("saving profile settings: %w", err)
		}
	}

	settings, err := st.GetProfileSettings(ctx, tc)
	if store.IsNotFound(err) {
		settings = &tenant.ProfileSettings{UserID: tc.UserID}
	} else if err != nil {
		return err
	}

	fmt.Printf("\n  %s  %s\n", cliui.KeyStyle.Render("Chat model:"), orUnset(settings.ChatModel))
	fmt.Printf("  %s  %s\n", cliui.KeyStyle.Render("Memory model:"), orUnset(settings.MemoryModel))
	fmt.Printf("  %s  %s\n", cliui.KeyStyle.Render("Timezone:"), orUnset(settings.Timezone))
	fmt.Printf("  %s  %s\n\n", cliui.KeyStyle.Render("Persona:"), orUnset(settings.Persona))
	return nil
}

func orUnset(s string) string {
	if s == "" {
		return cliui.DimStyle.Render("<not set>")
	}
	return s
}
