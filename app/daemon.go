package app

import (
	"os"

	"go.uber.org/fx"

	"github.com/lambda-feedback/wrangler/config"
	"github.com/lambda-feedback/wrangler/internal/pool"
	"github.com/lambda-feedback/wrangler/internal/server"
	"github.com/lambda-feedback/wrangler/internal/stats"
	"github.com/lambda-feedback/wrangler/util/logging"
)

// Daemon assembles the supervisor: the worker pool manager, the
// periodic stats reporter and, if enabled, the http status server.
func Daemon(cfg config.Config) fx.Option {
	opts := []fx.Option{
		// rename logger for module
		logging.DecorateLogger("daemon"),
		// provide worker pool
		pool.Module(cfg.Pool, workerConfig(cfg.Worker)),
		// provide stats reporter
		stats.Module(cfg.Stats),
	}

	if cfg.Server.Enabled {
		opts = append(opts, statusModule(cfg.Server))
	}

	return fx.Module("daemon", opts...)
}

func statusModule(cfg server.HttpConfig) fx.Option {
	return fx.Module(
		"status",
		// provide handlers
		fx.Provide(NewDaemonStatusHandler),
		fx.Provide(NewHealthRoute),
		fx.Provide(NewStatusRoute),
		// provide server
		server.Module(cfg),
	)
}

// workerConfig fills in the launch command for worker processes. By
// default the manager re-executes its own binary with the worker
// subcommand.
func workerConfig(cfg pool.WorkerConfig) pool.WorkerConfig {
	if cfg.Cmd != "" {
		return cfg
	}

	exe, err := os.Executable()
	if err != nil {
		exe = os.Args[0]
	}

	cfg.Cmd = exe
	cfg.Args = append([]string{"worker"}, cfg.Args...)

	return cfg
}
