package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/lambda-feedback/wrangler/app"
)

var (
	daemonCmdDescription = `The daemon command starts the supervisor. It spawns a pool
of worker processes, tops the pool up when workers die, and
fails tasks that exceed their time budget. Tasks claimed by
processes that no longer belong to the pool are returned to
the queue.

The command blocks indefinitely, reconciling the pool until
it receives an interrupt or termination signal.`
	daemonCmd = &cli.Command{
		Name:        "daemon",
		Usage:       "Start the worker pool supervisor.",
		Description: daemonCmdDescription,
		Action:      daemonAction,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:     "min-workers",
				Usage:    "the number of workers to keep the pool topped up to.",
				Aliases:  []string{"n"},
				Category: "pool",
				EnvVars:  []string{"WRANGLER_MIN_WORKERS"},
			},
			&cli.IntFlag{
				Name:     "max-workers",
				Usage:    "the hard upper bound on pool size.",
				Category: "pool",
				EnvVars:  []string{"WRANGLER_MAX_WORKERS"},
			},
			&cli.DurationFlag{
				Name:     "check-interval",
				Usage:    "the pause between pool reconciliation cycles.",
				Category: "pool",
				EnvVars:  []string{"WRANGLER_CHECK_INTERVAL"},
			},
			&cli.StringFlag{
				Name:     "worker-cmd",
				Usage:    "the command to invoke in order to start a worker process. Defaults to re-executing the wrangler binary with the worker subcommand.",
				Aliases:  []string{"c"},
				Category: "worker",
				EnvVars:  []string{"WRANGLER_WORKER_CMD"},
			},
			&cli.StringSliceFlag{
				Name:     "worker-arg",
				Usage:    "additional arguments to pass to the worker process.",
				Aliases:  []string{"a"},
				Category: "worker",
				EnvVars:  []string{"WRANGLER_WORKER_ARGS"},
			},
			&cli.BoolFlag{
				Name:     "worker-debug",
				Usage:    "redirect worker output to log files in the state directory.",
				Category: "worker",
				EnvVars:  []string{"WRANGLER_WORKER_DEBUG"},
			},
		},
	}
)

func daemonAction(ctx *cli.Context) error {
	a, err := app.New(ctx)
	if err != nil {
		return err
	}

	cfg := a.Config()

	// command flags take precedence over file and env config
	if ctx.IsSet("min-workers") {
		cfg.Pool.MinWorkers = ctx.Int("min-workers")
	}
	if ctx.IsSet("max-workers") {
		cfg.Pool.MaxWorkers = ctx.Int("max-workers")
	}
	if ctx.IsSet("check-interval") {
		cfg.Pool.CheckInterval = ctx.Duration("check-interval")
	}
	if ctx.IsSet("worker-cmd") {
		cfg.Worker.Cmd = ctx.String("worker-cmd")
	}
	if ctx.IsSet("worker-arg") {
		cfg.Worker.Args = ctx.StringSlice("worker-arg")
	}
	if ctx.IsSet("worker-debug") {
		cfg.Worker.Debug = ctx.Bool("worker-debug")
	}

	return a.Run(ctx.Context, app.Daemon(cfg))
}

func init() {
	rootApp.Commands = append(rootApp.Commands, daemonCmd)
}
