package app

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/lambda-feedback/wrangler/internal/pool"
	"github.com/lambda-feedback/wrangler/internal/taskstore"
)

// HealthHandler reports process liveness.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Pool is the view of the worker pool the status endpoint reports on.
type Pool interface {
	Running() bool
	PoolSize() int
	Pids() []int
}

// Queue is the view of the task queue the status endpoint reports on.
type Queue interface {
	CountByStatus(ctx context.Context) (map[taskstore.Status]int, error)
}

type statusResponse struct {
	Running  bool           `json:"running"`
	PoolSize int            `json:"pool_size"`
	Pids     []int          `json:"pids"`
	Queue    map[string]int `json:"queue"`
	Uptime   float64        `json:"uptime_seconds"`
}

// StatusHandler serves a point-in-time snapshot of the worker pool and
// the task queue.
type StatusHandler struct {
	pool    Pool
	queue   Queue
	started time.Time
	log     *zap.Logger
}

func NewStatusHandler(pool Pool, queue Queue, log *zap.Logger) *StatusHandler {
	return &StatusHandler{
		pool:    pool,
		queue:   queue,
		started: time.Now(),
		log:     log.Named("status"),
	}
}

// NewDaemonStatusHandler wires the status handler to the pool manager
// and task store of the running daemon.
func NewDaemonStatusHandler(
	manager *pool.Manager,
	store *taskstore.Store,
	log *zap.Logger,
) *StatusHandler {
	return NewStatusHandler(manager, store, log)
}

func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	counts, err := h.queue.CountByStatus(r.Context())
	if err != nil {
		h.log.Error("error reading queue stats", zap.Error(err))
		http.Error(w, "failed to read queue stats", http.StatusInternalServerError)
		return
	}

	// report all statuses, including those with no tasks
	queue := make(map[string]int, 4)
	for _, status := range []taskstore.Status{
		taskstore.StatusQueued,
		taskstore.StatusActive,
		taskstore.StatusCompleted,
		taskstore.StatusFailed,
	} {
		queue[string(status)] = counts[status]
	}

	response := statusResponse{
		Running:  h.pool.Running(),
		PoolSize: h.pool.PoolSize(),
		Pids:     h.pool.Pids(),
		Queue:    queue,
		Uptime:   time.Since(h.started).Seconds(),
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Debug("failed to write response", zap.Error(err))
	}
}
