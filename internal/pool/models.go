package pool

import (
	"errors"
	"time"
)

var (
	ErrStopTimeout = errors.New("stop timeout")
	ErrNoPid       = errors.New("no pid assigned")
)

const (
	DefaultMinWorkers      = 4
	DefaultMaxWorkers      = 8
	DefaultCheckInterval   = 2 * time.Second
	DefaultMaxTaskDuration = 5 * time.Minute
	DefaultStopGracePeriod = 5 * time.Second
	DefaultSpawnBackoff    = 100 * time.Millisecond
)

type Config struct {
	// MinWorkers is the number of workers the pool is kept topped
	// up to by the reconciliation loop
	MinWorkers int `conf:"min_workers"`

	// MaxWorkers is the hard upper bound on pool size
	MaxWorkers int `conf:"max_workers"`

	// CheckInterval is the pause between reconciliation cycles
	CheckInterval time.Duration `conf:"check_interval"`

	// MaxTaskDuration is the time budget for a single task; a worker
	// whose active task exceeds it is terminated and its task failed
	MaxTaskDuration time.Duration `conf:"max_task_duration"`

	// StopGracePeriod is how long Stop waits for a worker to exit
	// after SIGTERM before escalating to SIGKILL
	StopGracePeriod time.Duration `conf:"stop_grace_period"`

	// SpawnBackoff paces spawn attempts within one top-up pass
	SpawnBackoff time.Duration `conf:"spawn_backoff"`
}

func (c Config) withDefaults() Config {
	if c.MinWorkers <= 0 {
		c.MinWorkers = DefaultMinWorkers
	}
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = DefaultMaxWorkers
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = DefaultCheckInterval
	}
	if c.MaxTaskDuration <= 0 {
		c.MaxTaskDuration = DefaultMaxTaskDuration
	}
	if c.StopGracePeriod <= 0 {
		c.StopGracePeriod = DefaultStopGracePeriod
	}
	if c.SpawnBackoff <= 0 {
		c.SpawnBackoff = DefaultSpawnBackoff
	}
	return c
}

// WorkerConfig describes how worker subprocesses are launched.
type WorkerConfig struct {
	// Cmd is the path or name of the worker binary to execute;
	// empty means the manager's own binary with the worker subcommand
	Cmd string `conf:"cmd"`

	// Args is the list of arguments to pass to the worker
	Args []string `conf:"args"`

	// Cwd is the working directory for the worker
	Cwd string `conf:"cwd"`

	// Env is a map of environment variables set for the worker on
	// top of the inherited parent environment
	Env map[string]string `conf:"env"`

	// Debug redirects worker output to a log file under StateDir
	// instead of /dev/null
	Debug bool `conf:"debug"`

	// StateDir is where worker log files are written
	StateDir string `conf:"state_dir"`
}
