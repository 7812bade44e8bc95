package config

import (
	"github.com/lambda-feedback/wrangler/internal/pool"
	"github.com/lambda-feedback/wrangler/internal/runner"
	"github.com/lambda-feedback/wrangler/internal/server"
	"github.com/lambda-feedback/wrangler/internal/stats"
	"github.com/lambda-feedback/wrangler/internal/taskstore"
	"github.com/lambda-feedback/wrangler/util/conf"
)

type Config struct {
	// LogLevel is the log level for the application
	LogLevel string `conf:"log_level"`

	// LogFormat is the log format for the application
	LogFormat string `conf:"log_format"`

	// DB is the task store configuration
	DB taskstore.Config `conf:"db"`

	// Pool is the worker pool configuration
	Pool pool.Config `conf:"pool"`

	// Worker configures the worker subprocesses the pool spawns
	Worker pool.WorkerConfig `conf:"worker"`

	// Runner is the worker-side task loop configuration
	Runner runner.Config `conf:"runner"`

	// Stats is the periodic stats report configuration
	Stats stats.Config `conf:"stats"`

	// Server is the status HTTP server configuration
	Server server.HttpConfig `conf:"server"`
}

// DefaultConfig holds the defaults applied before the file, env and flag
// layers.
var DefaultConfig = conf.MergeDefaults("",
	conf.MergeDefaults("db", conf.DefaultConfig{
		"path": "state/wrangler.db",
	}),
	conf.MergeDefaults("pool", conf.DefaultConfig{
		"min_workers":       pool.DefaultMinWorkers,
		"max_workers":       pool.DefaultMaxWorkers,
		"check_interval":    pool.DefaultCheckInterval,
		"max_task_duration": pool.DefaultMaxTaskDuration,
		"stop_grace_period": pool.DefaultStopGracePeriod,
		"spawn_backoff":     pool.DefaultSpawnBackoff,
	}),
	conf.MergeDefaults("worker", conf.DefaultConfig{
		"state_dir": "state",
	}),
	conf.MergeDefaults("runner", conf.DefaultConfig{
		"idle_delay": runner.DefaultIdleDelay,
	}),
	conf.MergeDefaults("stats", conf.DefaultConfig{
		"interval": stats.DefaultInterval,
	}),
	conf.MergeDefaults("server", conf.DefaultConfig{
		"enabled": true,
		"host":    "localhost",
		"port":    8216,
	}),
)
