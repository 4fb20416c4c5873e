// Package reconcilecmder provides the reconcile command: re-embedding
// records that were persisted with a null embedding.
package reconcilecmder

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mnemohq/mnemo/cmd/mnemo/stack"
	"github.com/mnemohq/mnemo/pkg/config"
	"github.com/mnemohq/mnemo/pkg/dotdir"
	"github.com/mnemohq/mnemo/pkg/logger"
	"github.com/mnemohq/mnemo/pkg/start"
	"github.com/mnemohq/mnemo/pkg/worker"
)

type reconcileCommander struct {
	sqlitePath string
	watch      bool
	interval   time.Duration

	configDir string
	debug     bool

	logger *zap.Logger
}

const reconcileLongDesc string = `Re-embed records that were stored without embeddings.

When a record is written while the embedder is unreachable it persists
with a null embedding and drops out of the vector side of search. This
command sweeps for such records, re-embeds them, and adds them back to
the vector index.

By default one sweep runs and the command exits. With --watch it keeps
sweeping on an interval until interrupted; a lock file in the .mnemo/
directory prevents two watchers from running at once.

Examples:
  mnemo reconcile
  mnemo reconcile --watch
  mnemo reconcile --watch --interval 30s`

const reconcileShortDesc string = "Re-embed records missing embeddings"

func NewReconcileCmd() *cobra.Command {
	cmder := &reconcileCommander{}

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: reconcileShortDesc,
		Long:  reconcileLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			return cmder.run(cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Path to SQLite database")
	cmd.Flags().BoolVarP(&cmder.watch, "watch", "w", false, "Keep sweeping on an interval until interrupted")
	cmd.Flags().DurationVar(&cmder.interval, "interval", 0, "Sweep interval for --watch (default from config)")

	return cmd
}

func (c *reconcileCommander) run(cmd *cobra.Command) error {
	c.logger = logger.NewZap(c.debug)
	defer func() { _ = c.logger.Sync() }()

	cfger, err := config.NewConfiger(c.configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg, err := cfger.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
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

	if s.Embedder == nil {
		return fmt.Errorf("reconcile needs a reachable embedder; check embedding.provider and embedding.target")
	}

	pool, err := worker.NewPool(&worker.Config{
		Service:    s.Service,
		Records:    s.Store,
		NumWorkers: cfg.Worker.NumWorkers,
		QueueSize:  cfg.Worker.QueueSize,
		BatchSize:  cfg.Worker.BatchSize,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}
	defer pool.Close()

	ctx := cmd.Context()

	if !c.watch {
		enqueued, err := pool.ReconcileOnce(ctx)
		if err != nil {
			return err
		}
		// Close drains the queue before returning, so the count is
		// accurate by the time the deferred Close runs.
		fmt.Printf("Enqueued %d records for re-embedding.\n", enqueued)
		return nil
	}

	interval := c.interval
	if interval == 0 {
		interval = time.Duration(cfg.Worker.IntervalSeconds) * time.Second
	}

	dir, err := dotdir.NewManager().Target(c.configDir)
	if err != nil {
		return fmt.Errorf("resolving .mnemo directory: %w", err)
	}
	mgr, err := start.NewManager(dir)
	if err != nil {
		return err
	}

	lock, err := mgr.Lock()
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	state := &start.State{
		PID:             os.Getpid(),
		SQLitePath:      cfg.Storage.SQLitePath,
		IntervalSeconds: int(interval / time.Second),
		StartedAt:       time.Now(),
	}
	if err := mgr.SaveState(state); err != nil {
		return err
	}
	defer func() { _ = mgr.ClearState() }()

	c.logger.Info("reconcile daemon started",
		zap.Duration("interval", interval),
		zap.Int("pid", state.PID),
	)

	// Sweep immediately, then on the ticker until interrupted.
	if _, err := pool.ReconcileOnce(ctx); err != nil {
		c.logger.Error("reconciliation sweep failed", zap.Error(err))
	}
	pool.Run(ctx, interval)

	return nil
}
