package app

import (
	"go.uber.org/fx"

	"github.com/lambda-feedback/wrangler/config"
	"github.com/lambda-feedback/wrangler/internal/runner"
	"github.com/lambda-feedback/wrangler/internal/tasks"
	"github.com/lambda-feedback/wrangler/util/logging"
)

// Worker assembles the task execution loop that runs inside a worker
// process: the handler registry and the claim-and-run loop.
func Worker(cfg config.Config) fx.Option {
	return fx.Module(
		"worker",
		// rename logger for module
		logging.DecorateLogger("worker"),
		// provide task handlers
		tasks.Module(),
		// provide runner
		runner.Module(cfg.Runner),
	)
}
