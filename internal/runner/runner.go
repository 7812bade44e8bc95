// Package runner implements the worker-side task loop: claim one task from
// the queue, execute it, record the outcome, repeat.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/lambda-feedback/wrangler/internal/tasks"
	"github.com/lambda-feedback/wrangler/internal/taskstore"
)

// DefaultIdleDelay is how long the runner waits before polling the queue
// again after finding it empty.
const DefaultIdleDelay = time.Second

type Config struct {
	// IdleDelay is the pause between queue polls when no task is queued.
	IdleDelay time.Duration `conf:"idle_delay"`
}

// TaskStore is the part of the task store the runner consumes.
type TaskStore interface {
	Claim(ctx context.Context, pid int) (*taskstore.Task, error)
	Complete(ctx context.Context, id string) error
	Fail(ctx context.Context, id string, msg string) error
}

type Runner struct {
	config   Config
	store    TaskStore
	registry *tasks.Registry
	pid      int
	log      *zap.Logger
}

func New(config Config, store TaskStore, registry *tasks.Registry, log *zap.Logger) *Runner {
	if config.IdleDelay <= 0 {
		config.IdleDelay = DefaultIdleDelay
	}

	return &Runner{
		config:   config,
		store:    store,
		registry: registry,
		pid:      os.Getpid(),
		log:      log.Named("runner"),
	}
}

// Run claims and executes tasks one at a time until ctx is cancelled.
// Cancellation stops new claims; a task already in flight is finished and
// its outcome recorded before Run returns.
func (r *Runner) Run(ctx context.Context) error {
	r.log.Info("task runner started", zap.Int("pid", r.pid))

	for {
		if ctx.Err() != nil {
			r.log.Info("task runner stopped")
			return nil
		}

		task, err := r.store.Claim(ctx, r.pid)
		if errors.Is(err, taskstore.ErrNoTask) {
			r.idle(ctx)
			continue
		}
		if err != nil {
			if ctx.Err() == nil {
				r.log.Error("error claiming task", zap.Error(err))
			}

			r.idle(ctx)
			continue
		}

		r.execute(ctx, task)
	}
}

// execute runs one claimed task and records its terminal state. The store
// writes and the handler run on a context detached from the claim loop's,
// so a shutdown mid-task still leaves a recorded outcome; a worker killed
// outright leaves the task active for the supervisor's orphan reset.
func (r *Runner) execute(ctx context.Context, task *taskstore.Task) {
	ctx = context.WithoutCancel(ctx)

	log := r.log.With(
		zap.String("task_id", task.ID),
		zap.String("kind", task.Kind),
	)

	log.Info("executing task")

	start := time.Now()

	if err := r.runHandler(ctx, task, log); err != nil {
		log.Info("task failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))

		if err := r.store.Fail(ctx, task.ID, err.Error()); err != nil {
			log.Error("error marking task as failed", zap.Error(err))
		}

		return
	}

	log.Info("task completed", zap.Duration("elapsed", time.Since(start)))

	if err := r.store.Complete(ctx, task.ID); err != nil {
		log.Error("error marking task as completed", zap.Error(err))
	}
}

func (r *Runner) runHandler(ctx context.Context, task *taskstore.Task, log *zap.Logger) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("task handler panicked",
				zap.Any("panic", rec),
				zap.Stack("stack"))

			err = fmt.Errorf("task handler panicked: %v", rec)
		}
	}()

	handler, err := r.registry.Get(task.Kind)
	if err != nil {
		return err
	}

	if err := r.registry.Validate(task.Kind, task.Args); err != nil {
		return err
	}

	return handler.Run(ctx, task.Args, log)
}

// idle waits out the configured idle delay, or less if ctx ends first.
func (r *Runner) idle(ctx context.Context) {
	timer := time.NewTimer(r.config.IdleDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
