// Package mnemocmder
package mnemocmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/mnemohq/mnemo/cmd/mnemo/config"
	initcmder "github.com/mnemohq/mnemo/cmd/mnemo/init"
	migratecmder "github.com/mnemohq/mnemo/cmd/mnemo/migrate"
	orgcmder "github.com/mnemohq/mnemo/cmd/mnemo/org"
	reconcilecmder "github.com/mnemohq/mnemo/cmd/mnemo/reconcile"
	remembercmder "github.com/mnemohq/mnemo/cmd/mnemo/remember"
	searchcmder "github.com/mnemohq/mnemo/cmd/mnemo/search"
	seedcmder "github.com/mnemohq/mnemo/cmd/mnemo/seed"
	usecmder "github.com/mnemohq/mnemo/cmd/mnemo/use"
	usercmder "github.com/mnemohq/mnemo/cmd/mnemo/user"
	versioncmder "github.com/mnemohq/mnemo/cmd/version"
)

const mnemoLongDesc string = `Mnemo is the long-term memory store for your agents.

Records live in SQLite with full-text and vector indexes; retrieval fuses
both into one ranked result set, scoped to the organization and user you
are operating as.

Common workflows:
  mnemo org create "Acme"         Create an organization
  mnemo use <org-id> [user-id]    Set the tenant scope for later commands
  mnemo remember "..."            Store a memory record
  mnemo search "..."              Hybrid search over stored records
  mnemo migrate schema.sql        Run a schema migration with backup`

const mnemoShortDesc string = "Mnemo - Agent Memory"

func NewMnemoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mnemo",
		Short: mnemoShortDesc,
		Long:  mnemoLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .mnemo/ directory location")

	// Add subcommands
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(orgcmder.NewOrgCmd())
	cmd.AddCommand(usercmder.NewUserCmd())
	cmd.AddCommand(usecmder.NewUseCmd())
	cmd.AddCommand(remembercmder.NewRememberCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(seedcmder.NewSeedCmd())
	cmd.AddCommand(reconcilecmder.NewReconcileCmd())
	cmd.AddCommand(migratecmder.NewMigrateCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
