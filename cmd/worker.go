package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/lambda-feedback/wrangler/app"
)

var (
	workerCmdDescription = `The worker command starts a single worker process. The worker
claims queued tasks from the shared task queue, one at a time,
executes them and records the outcome.

Workers are normally spawned by the daemon, which re-executes
its own binary with this subcommand. Running a worker by hand
is useful for debugging task handlers.

The command blocks indefinitely, polling the queue for tasks,
until it receives an interrupt or termination signal.`
	workerCmd = &cli.Command{
		Name:        "worker",
		Usage:       "Start a single task worker.",
		Description: workerCmdDescription,
		Action:      workerAction,
	}
)

func workerAction(ctx *cli.Context) error {
	a, err := app.New(ctx)
	if err != nil {
		return err
	}

	return a.Run(ctx.Context, app.Worker(a.Config()))
}

func init() {
	rootApp.Commands = append(rootApp.Commands, workerCmd)
}
