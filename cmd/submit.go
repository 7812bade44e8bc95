package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/lambda-feedback/wrangler/config"
	"github.com/lambda-feedback/wrangler/internal/tasks"
	"github.com/lambda-feedback/wrangler/internal/taskstore"
	"github.com/lambda-feedback/wrangler/util/conf"
	"github.com/lambda-feedback/wrangler/util/logging"
)

var (
	submitCmdDescription = `The submit command enqueues a single task on the shared task
queue and prints its id. The task arguments are validated
against the schema of the task kind before the task is
stored, so malformed tasks are rejected up front instead of
failing in a worker.

The command returns immediately; use the status command to
follow the task through the queue.`
	submitCmd = &cli.Command{
		Name:        "submit",
		Usage:       "Enqueue a task on the task queue.",
		Description: submitCmdDescription,
		Action:      submitAction,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "kind",
				Usage:    "the kind of task to enqueue.",
				Aliases:  []string{"k"},
				Required: true,
			},
			&cli.StringFlag{
				Name:    "args",
				Usage:   "the task arguments, as a json object.",
				Aliases: []string{"a"},
				Value:   "{}",
			},
		},
	}
)

func submitAction(ctx *cli.Context) error {
	log, err := logging.LoggerFromContext(ctx.Context)
	if err != nil {
		return err
	}

	cfg, err := conf.GetConfigFromContext[config.Config](ctx.Context)
	if err != nil {
		return err
	}

	kind := ctx.String("kind")
	args := json.RawMessage(ctx.String("args"))

	registry, err := tasks.Default()
	if err != nil {
		return err
	}

	if err := registry.Validate(kind, args); err != nil {
		return err
	}

	store, err := taskstore.New(ctx.Context, cfg.DB.Path, log)
	if err != nil {
		return err
	}
	defer store.Close()

	task, err := store.Submit(ctx.Context, kind, args)
	if err != nil {
		return err
	}

	fmt.Println(task.ID)

	return nil
}

func init() {
	rootApp.Commands = append(rootApp.Commands, submitCmd)
}
