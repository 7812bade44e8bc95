// Package pool keeps a target number of worker subprocesses alive and
// reconciles the task store against the OS process table.
//
// Once per check interval the manager probes every tracked worker,
// fails and terminates workers whose active task exceeded its time
// budget, purges dead handles, tops the pool back up to its minimum
// size and re-queues tasks left ACTIVE under pids it does not own.
package pool

import (
	"context"
	"os"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/lambda-feedback/wrangler/internal/procs"
	"github.com/lambda-feedback/wrangler/internal/taskstore"
)

const errorBackoff = time.Second

// Worker is the manager's view of one tracked subprocess.
type Worker interface {
	Pid() int
	StartedAt() time.Time
	Running() bool
	Terminate() error
	Kill() error
	AwaitExit(timeout time.Duration) error
}

// TaskStore is the slice of the task store the manager depends on.
type TaskStore interface {
	FailIfOverdue(ctx context.Context, pid int, limit time.Duration) (*taskstore.Task, bool, error)
	Orphans(ctx context.Context, pids []int) ([]taskstore.Orphan, error)
	ResetOrphans(ctx context.Context, pids []int) (int64, error)
}

// Manager owns the worker pool. The pool map is mutated only by the
// manager itself; reconciliation cycles run strictly sequentially on
// the monitor goroutine.
type Manager struct {
	config   Config
	store    TaskStore
	launcher Launcher
	probe    func(pid int) procs.Status
	limiter  *rate.Limiter
	log      *zap.Logger

	mu      sync.Mutex
	workers map[int]Worker
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func New(config Config, store TaskStore, launcher Launcher, log *zap.Logger) *Manager {
	config = config.withDefaults()

	return &Manager{
		config:   config,
		store:    store,
		launcher: launcher,
		probe:    procs.Probe,
		limiter:  rate.NewLimiter(rate.Every(config.SpawnBackoff), 1),
		log:      log.Named("manager"),
		workers:  make(map[int]Worker),
	}
}

// Start spawns the initial pool and launches the reconciliation loop.
// It is idempotent; calling it on a running manager is a no-op. Spawn
// failures do not abort startup, the pool is topped up by the next
// reconciliation cycle.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		m.log.Debug("worker manager already running")
		return nil
	}
	m.running = true

	// the monitor must outlive the caller's startup deadline
	monCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.cancel = cancel
	m.done = make(chan struct{})
	m.mu.Unlock()

	cwd, _ := os.Getwd()
	m.log.Info("starting worker manager",
		zap.String("cwd", cwd),
		zap.Int("min_workers", m.config.MinWorkers),
		zap.Int("max_workers", m.config.MaxWorkers),
	)

	for i := 0; i < m.config.MinWorkers; i++ {
		_ = m.SpawnWorker(ctx)
	}

	go m.monitor(monCtx)

	return nil
}

// Stop cancels the reconciliation loop, awaits it, terminates every
// tracked worker with a grace period and force kill, and clears the
// pool unconditionally. Idempotent.
func (m *Manager) Stop(context.Context) error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	cancel, done := m.cancel, m.done
	m.mu.Unlock()

	m.log.Info("stopping worker manager")

	cancel()
	<-done

	m.stopAllWorkers()

	return nil
}

// Running reports whether the manager has been started and not yet
// stopped.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// PoolSize returns the number of currently tracked workers.
func (m *Manager) PoolSize() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.workers)
}

// Pids returns the pids of all tracked workers in ascending order.
func (m *Manager) Pids() []int {
	m.mu.Lock()
	defer m.mu.Unlock()

	pids := make([]int, 0, len(m.workers))
	for pid := range m.workers {
		pids = append(pids, pid)
	}
	sort.Ints(pids)

	return pids
}

// SpawnWorker launches one worker and registers it in the pool. It is
// a no-op when the pool is already at its maximum size; the size is
// checked again once the launch completes, and a worker that no longer
// fits is terminated instead of registered. Launch errors are logged
// and returned; callers are expected to absorb them.
func (m *Manager) SpawnWorker(ctx context.Context) error {
	m.mu.Lock()
	if len(m.workers) >= m.config.MaxWorkers {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	w, err := m.launcher.Launch(ctx)
	if err != nil {
		m.log.Error("error spawning worker", zap.Error(err))
		return err
	}

	m.mu.Lock()
	if len(m.workers) >= m.config.MaxWorkers {
		// a concurrent spawn filled the pool while the launch was in
		// flight
		m.mu.Unlock()

		m.log.Info("pool full, stopping excess worker", zap.Int("pid", w.Pid()))
		if err := w.Terminate(); err != nil {
			m.log.Error("error stopping excess worker", zap.Int("pid", w.Pid()), zap.Error(err))
		}

		return nil
	}
	m.workers[w.Pid()] = w
	m.mu.Unlock()

	m.log.Info("started worker process", zap.Int("pid", w.Pid()))

	return nil
}

func (m *Manager) monitor(ctx context.Context) {
	defer close(m.done)

	m.log.Debug("worker monitor started")

	for {
		if err := m.CheckWorkers(ctx); err != nil {
			if ctx.Err() != nil {
				// cancellation is a clean exit, not an error
				return
			}

			m.log.Error("error in worker monitor", zap.Error(err))

			if !sleep(ctx, errorBackoff) {
				return
			}
			continue
		}

		if !sleep(ctx, m.config.CheckInterval) {
			return
		}
	}
}

// CheckWorkers runs one reconciliation cycle. The order of the steps
// matters: dead workers must be purged before the top-up so that the
// max worker accounting does not overcount, and the orphan reset must
// see the final post-top-up pool membership.
func (m *Manager) CheckWorkers(ctx context.Context) error {
	var exited []int
	for pid, w := range m.snapshot() {
		if !w.Running() {
			m.log.Info("worker has exited", zap.Int("pid", pid))
			exited = append(exited, pid)
			continue
		}

		overdue, err := m.checkTaskDuration(ctx, pid, w)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// keep the worker; the next cycle retries the check
			m.log.Error("error checking task duration", zap.Int("pid", pid), zap.Error(err))
			continue
		}
		if overdue {
			exited = append(exited, pid)
		}
	}

	m.mu.Lock()
	for _, pid := range exited {
		delete(m.workers, pid)
	}
	m.mu.Unlock()

	if err := m.maintainWorkerPool(ctx); err != nil {
		return err
	}

	m.resetBrokenTasks(ctx)

	return ctx.Err()
}

// checkTaskDuration fails the worker's active task if it has exceeded
// the time budget, then signals the worker. The task record update and
// the signal are independent; a failed signal never undoes the record.
func (m *Manager) checkTaskDuration(ctx context.Context, pid int, w Worker) (bool, error) {
	task, failed, err := m.store.FailIfOverdue(ctx, pid, m.config.MaxTaskDuration)
	if err != nil {
		return false, err
	}
	if !failed {
		return false, nil
	}

	m.log.Info("worker terminated after exceeding task time limit",
		zap.Int("pid", pid),
		zap.String("task_id", task.ID),
		zap.Duration("limit", m.config.MaxTaskDuration),
	)

	if err := w.Terminate(); err != nil {
		m.log.Error("error stopping long-running worker", zap.Int("pid", pid), zap.Error(err))
	}

	return true, nil
}

// maintainWorkerPool tops the pool back up to its minimum size, with
// at most one spawn attempt per missing slot per cycle. Failed spawns
// are retried on the next cycle instead of looping here forever.
func (m *Manager) maintainWorkerPool(ctx context.Context) error {
	need := m.config.MinWorkers - m.PoolSize()
	if need <= 0 {
		return nil
	}

	m.log.Info("worker pool below minimum, spawning new workers",
		zap.Int("current", m.config.MinWorkers-need),
		zap.Int("min", m.config.MinWorkers),
	)

	for i := 0; i < need; i++ {
		if err := m.limiter.Wait(ctx); err != nil {
			return err
		}
		_ = m.SpawnWorker(ctx)
	}

	if size := m.PoolSize(); size >= m.config.MinWorkers {
		m.log.Info("worker pool restored", zap.Int("workers", size))
	}

	return nil
}

// resetBrokenTasks re-queues tasks left ACTIVE under pids outside the
// pool. Diagnostics and reset failures are logged and absorbed; a bad
// store never takes down the monitor.
func (m *Manager) resetBrokenTasks(ctx context.Context) {
	pids := m.Pids()

	m.logUnmanagedTaskHolders(ctx, pids)

	count, err := m.store.ResetOrphans(ctx, pids)
	if err != nil {
		m.log.Error("error resetting broken tasks", zap.Error(err))
		return
	}

	if count > 0 {
		m.log.Info("reset tasks to queued due to worker issues", zap.Int64("count", count))
	}
}

// logUnmanagedTaskHolders reports, per orphaned task, whether the
// foreign pid holding it is still alive. Purely diagnostic; it must
// never block or fail the reset that follows.
func (m *Manager) logUnmanagedTaskHolders(ctx context.Context, pids []int) {
	orphans, err := m.store.Orphans(ctx, pids)
	if err != nil {
		m.log.Debug("error checking for unmanaged task holders", zap.Error(err))
		return
	}
	if len(orphans) == 0 {
		return
	}

	m.log.Debug("found tasks potentially claimed by unmanaged pids", zap.Int("count", len(orphans)))

	for _, o := range orphans {
		log := m.log.With(zap.String("task_id", o.TaskID), zap.Int("pid", o.Pid))
		switch m.probe(o.Pid) {
		case procs.Alive:
			log.Warn("task is held by an active, unmanaged process")
		case procs.Dead:
			log.Info("task was held by a process that is no longer running")
		default:
			log.Error("cannot determine state of process holding task")
		}
	}
}

func (m *Manager) stopAllWorkers() {
	m.mu.Lock()
	workers := make([]Worker, 0, len(m.workers))
	for _, w := range m.workers {
		workers = append(workers, w)
	}
	m.mu.Unlock()

	for _, w := range workers {
		if err := w.Terminate(); err != nil {
			m.log.Error("error stopping worker", zap.Int("pid", w.Pid()), zap.Error(err))
		}
	}

	var g errgroup.Group
	for _, w := range workers {
		w := w
		g.Go(func() error {
			if err := w.AwaitExit(m.config.StopGracePeriod); err == nil {
				return nil
			}

			m.log.Warn("worker did not exit in time, force killing", zap.Int("pid", w.Pid()))

			if err := w.Kill(); err != nil {
				m.log.Error("error force killing worker", zap.Int("pid", w.Pid()), zap.Error(err))
			}

			return nil
		})
	}
	_ = g.Wait()

	// the manager must never retain handles to processes it can no
	// longer observe, regardless of kill outcomes
	m.mu.Lock()
	m.workers = make(map[int]Worker)
	m.mu.Unlock()
}

func (m *Manager) snapshot() map[int]Worker {
	m.mu.Lock()
	defer m.mu.Unlock()

	workers := make(map[int]Worker, len(m.workers))
	for pid, w := range m.workers {
		workers[pid] = w
	}

	return workers
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
