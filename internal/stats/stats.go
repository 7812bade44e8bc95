// Package stats periodically logs a snapshot of the task queue and the
// worker pool.
package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/lambda-feedback/wrangler/internal/taskstore"
)

// DefaultInterval is the default pause between snapshots.
const DefaultInterval = time.Minute

// reportTimeout bounds the store reads of a single snapshot.
const reportTimeout = 10 * time.Second

type Config struct {
	// Interval is the pause between snapshots.
	Interval time.Duration `conf:"interval"`
}

// Pool is the part of the worker manager the reporter reads.
type Pool interface {
	Running() bool
	PoolSize() int
	Pids() []int
}

// Store is the part of the task store the reporter reads.
type Store interface {
	CountByStatus(ctx context.Context) (map[taskstore.Status]int, error)
}

type Reporter struct {
	store     Store
	pool      Pool
	scheduler gocron.Scheduler
	log       *zap.Logger
}

func New(config Config, store Store, pool Pool, log *zap.Logger) (*Reporter, error) {
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("error creating stats scheduler: %w", err)
	}

	reporter := &Reporter{
		store:     store,
		pool:      pool,
		scheduler: scheduler,
		log:       log.Named("stats"),
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(config.Interval),
		gocron.NewTask(func() {
			reporter.Report(context.Background())
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("error creating stats job: %w", err)
	}

	return reporter, nil
}

// Start begins periodic reporting.
func (r *Reporter) Start() {
	r.scheduler.Start()
}

// Stop shuts the scheduler down, waiting for a running snapshot to finish.
func (r *Reporter) Stop() error {
	return r.scheduler.Shutdown()
}

// Report logs one snapshot of the queue and the worker pool.
func (r *Reporter) Report(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, reportTimeout)
	defer cancel()

	counts, err := r.store.CountByStatus(ctx)
	if err != nil {
		r.log.Error("error reading queue stats", zap.Error(err))
		return
	}

	r.log.Info("queue stats",
		zap.Int("queued", counts[taskstore.StatusQueued]),
		zap.Int("active", counts[taskstore.StatusActive]),
		zap.Int("completed", counts[taskstore.StatusCompleted]),
		zap.Int("failed", counts[taskstore.StatusFailed]),
		zap.Int("pool_size", r.pool.PoolSize()),
		zap.Ints("pids", r.pool.Pids()),
		zap.Bool("manager_running", r.pool.Running()))
}
