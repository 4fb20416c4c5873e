// Package worker provides the asynchronous reconciliation pool that
// backfills embeddings for records persisted while the embedder was
// unavailable.
//
// The pool decouples embedding work from the write hot path: writes
// degrade to a null embedding and the pool re-embeds and re-indexes those
// records in the background.
package worker

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mnemohq/mnemo/pkg/memory"
	"github.com/mnemohq/mnemo/pkg/record"
	"github.com/mnemohq/mnemo/pkg/store"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
	defaultBatchSize         = 100
)

// Job is a unit of reconciliation work: one record to re-embed.
type Job struct {
	Record *record.Record
}

// Config is the configuration options for the reconciliation pool.
type Config struct {
	// Service performs the re-embed and re-index for each record.
	Service *memory.Service

	// Records lists records persisted with null embeddings.
	Records store.RecordStore

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// BatchSize bounds how many records one reconciliation sweep picks up.
	BatchSize int

	// Logger is the provided zap logger
	Logger *zap.Logger
}

// Pool processes reconciliation jobs asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *zap.Logger
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Service == nil || c.Records == nil {
		return nil, fmt.Errorf("service and record store are required")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	p := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	p.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go p.worker(i)
	}

	return p, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full; a dropped job is
// picked up again by the next reconciliation sweep.
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		p.logger.Debug("reconcile job queued",
			zap.String("record_id", job.Record.ID),
		)
		return true
	default:
		p.logger.Warn("reconcile job dropped, queue full",
			zap.String("record_id", job.Record.ID),
		)
		return false
	}
}

// ReconcileOnce sweeps for records missing embeddings and enqueues them.
// Returns how many records were enqueued.
func (p *Pool) ReconcileOnce(ctx context.Context) (int, error) {
	records, err := p.config.Records.ListMissingEmbeddings(ctx, p.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("listing records missing embeddings: %w", err)
	}

	enqueued := 0
	for _, rec := range records {
		if p.Enqueue(Job{Record: rec}) {
			enqueued++
		}
	}

	if enqueued > 0 {
		p.logger.Info("reconciliation sweep enqueued records",
			zap.Int("count", enqueued),
		)
	}

	return enqueued, nil
}

// Run sweeps on the given interval until the context is cancelled.
func (p *Pool) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.ReconcileOnce(ctx); err != nil {
				p.logger.Error("reconciliation sweep failed", zap.Error(err))
			}
		}
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
func (p *Pool) Close() {
	close(p.queue)
	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", zap.Uint("worker_id", id))

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("reconcile worker stopped", zap.Uint("worker_id", id))
}

// processJob re-embeds and re-indexes one record. Errors are logged, not
// returned; the record stays null-embedded and the next sweep retries it.
func (p *Pool) processJob(job Job) {
	ctx := context.Background()

	if err := p.config.Service.Reindex(ctx, job.Record); err != nil {
		p.logger.Warn("reconciling record failed",
			zap.String("record_id", job.Record.ID),
			zap.Error(err),
		)
		return
	}

	p.logger.Info("record embeddings reconciled",
		zap.String("record_id", job.Record.ID),
	)
}
