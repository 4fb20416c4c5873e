// Package remembercmder provides the remember command for storing memory
// records from the command line.
package remembercmder

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mnemohq/mnemo/cmd/mnemo/stack"
	usecmder "github.com/mnemohq/mnemo/cmd/mnemo/use"
	"github.com/mnemohq/mnemo/pkg/cliui"
	"github.com/mnemohq/mnemo/pkg/config"
	"github.com/mnemohq/mnemo/pkg/logger"
	"github.com/mnemohq/mnemo/pkg/record"
)

type rememberCommander struct {
	summary string

	variant        string
	details        string
	name           string
	source         string
	actor          string
	eventType      string
	path           string
	idempotencyKey string
	sqlitePath     string

	configDir string
	debug     bool

	logger *zap.Logger
}

const rememberLongDesc string = `Store a memory record under the selected tenant.

The record is written to the store, embedded for vector search when an
embedder is configured, and indexed for full-text search. When embedding
is unavailable the record still persists and is picked up later by
"mnemo reconcile".

Supported variants here are episodic (something that happened) and
semantic (a piece of knowledge). The remaining variants carry structured
fields beyond what flags express comfortably and are created through the
library API.

Examples:
  mnemo remember "Shipped the Q3 roadmap" --details "Published to the wiki"
  mnemo remember "Ada prefers dark mode" --variant semantic --name ada-ui-preference --details "Stated during onboarding"
  mnemo remember "Standup moved to 9:30" --path work/meetings --actor calendar --event-type schedule_change --details "Effective next week"`

const rememberShortDesc string = "Store a memory record"

func NewRememberCmd() *cobra.Command {
	cmder := &rememberCommander{}

	cmd := &cobra.Command{
		Use:   "remember <summary>",
		Short: rememberShortDesc,
		Long:  rememberLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.summary = args[0]

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			return cmder.run(cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.variant, "variant", "v", "episodic", "Record variant: episodic or semantic")
	cmd.Flags().StringVar(&cmder.details, "details", "", "Longer free-text body of the record")
	cmd.Flags().StringVar(&cmder.name, "name", "", "Name of the knowledge item (semantic only)")
	cmd.Flags().StringVar(&cmder.source, "source", "cli", "Where the knowledge came from (semantic only)")
	cmd.Flags().StringVar(&cmder.actor, "actor", "cli", "Who or what the event is attributed to (episodic only)")
	cmd.Flags().StringVar(&cmder.eventType, "event-type", "observation", "Event category (episodic only)")
	cmd.Flags().StringVarP(&cmder.path, "path", "p", "", "Tree path hint, e.g. work/meetings")
	cmd.Flags().StringVar(&cmder.idempotencyKey, "idempotency-key", "", "Caller-supplied key making retried creates idempotent")
	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Path to SQLite database")

	return cmd
}

func (c *rememberCommander) run(cmd *cobra.Command) error {
	c.logger = logger.NewZap(c.debug)
	defer func() { _ = c.logger.Sync() }()

	tc, err := usecmder.LoadTenantContext(c.configDir)
	if err != nil {
		return err
	}

	cfger, err := config.NewConfiger(c.configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg, err := cfger.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	rec, err := c.buildRecord()
	if err != nil {
		return err
	}

	s, err := stack.Open(cfg, stack.Options{SQLitePath: c.sqlitePath}, c.logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			c.logger.Warn("closing stack", zap.Error(cerr))
		}
	}()

	created, err := s.Service.Create(cmd.Context(), tc, rec)
	if err != nil {
		return err
	}

	embedded := "embedded"
	if !created.HasEmbedding() {
		embedded = "pending embedding"
	}

	fmt.Printf("\n  %s Remembered %s %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(created.ID),
		cliui.DimStyle.Render(fmt.Sprintf("(%s, %s, %s)", created.Variant, created.TreePath.String(), embedded)),
	)
	return nil
}

func (c *rememberCommander) buildRecord() (*record.Record, error) {
	var payload record.Payload

	switch record.Variant(c.variant) {
	case record.VariantEpisodic:
		payload = &record.Episodic{
			OccurredAt: time.Now().UTC(),
			Actor:      c.actor,
			EventType:  c.eventType,
			Summary:    c.summary,
			Details:    c.details,
		}
	case record.VariantSemantic:
		payload = &record.Semantic{
			Name:    c.name,
			Summary: c.summary,
			Details: c.details,
			Source:  c.source,
		}
	default:
		return nil, fmt.Errorf("unsupported variant %q: use episodic or semantic", c.variant)
	}

	rec := &record.Record{
		Variant:        payload.Variant(),
		Payload:        payload,
		IdempotencyKey: c.idempotencyKey,
	}

	if c.path != "" {
		path, err := record.ParseTreePath(c.path)
		if err != nil {
			return nil, err
		}
		rec.TreePath = path
	}

	return rec, nil
}
