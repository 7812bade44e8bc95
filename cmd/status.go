package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/lambda-feedback/wrangler/config"
	"github.com/lambda-feedback/wrangler/internal/taskstore"
	"github.com/lambda-feedback/wrangler/util/conf"
	"github.com/lambda-feedback/wrangler/util/logging"
)

var (
	statusCmdDescription = `The status command prints the number of tasks per status and
the most recent tasks on the queue. With the --task flag it
prints the full record of a single task instead, including
its arguments and, for failed tasks, the error message.

The command reads the task queue directly and works whether
or not a daemon is running.`
	statusCmd = &cli.Command{
		Name:        "status",
		Usage:       "Show queue statistics and recent tasks.",
		Description: statusCmdDescription,
		Action:      statusAction,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Usage:   "the maximum number of tasks to list.",
				Aliases: []string{"l"},
				Value:   10,
			},
			&cli.StringFlag{
				Name:    "status",
				Usage:   "only list tasks with the given status. Options: queued, active, completed, failed.",
				Aliases: []string{"s"},
			},
			&cli.StringFlag{
				Name:    "task",
				Usage:   "print the full record of the task with the given id.",
				Aliases: []string{"t"},
			},
		},
	}
)

func statusAction(ctx *cli.Context) error {
	log, err := logging.LoggerFromContext(ctx.Context)
	if err != nil {
		return err
	}

	cfg, err := conf.GetConfigFromContext[config.Config](ctx.Context)
	if err != nil {
		return err
	}

	filter, err := statusFilter(ctx.String("status"))
	if err != nil {
		return err
	}

	store, err := taskstore.New(ctx.Context, cfg.DB.Path, log)
	if err != nil {
		return err
	}
	defer store.Close()

	if id := ctx.String("task"); id != "" {
		return printTask(ctx, store, id)
	}

	counts, err := store.CountByStatus(ctx.Context)
	if err != nil {
		return err
	}

	fmt.Println("queue:")
	for _, status := range []taskstore.Status{
		taskstore.StatusQueued,
		taskstore.StatusActive,
		taskstore.StatusCompleted,
		taskstore.StatusFailed,
	} {
		fmt.Printf("  %-10s %d\n", status, counts[status])
	}

	tasks, err := store.List(ctx.Context, filter, ctx.Int("limit"))
	if err != nil {
		return err
	}

	if len(tasks) == 0 {
		return nil
	}

	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tSTATUS\tAGE\tPID")
	for _, task := range tasks {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			task.ID,
			task.Kind,
			task.Status,
			time.Since(task.Created).Round(time.Second),
			pidString(task.Pid),
		)
	}

	return w.Flush()
}

func printTask(ctx *cli.Context, store *taskstore.Store, id string) error {
	task, err := store.Get(ctx.Context, id)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "id:\t%s\n", task.ID)
	fmt.Fprintf(w, "kind:\t%s\n", task.Kind)
	fmt.Fprintf(w, "status:\t%s\n", task.Status)
	fmt.Fprintf(w, "args:\t%s\n", string(task.Args))
	fmt.Fprintf(w, "created:\t%s\n", task.Created.Format(time.RFC3339))
	if task.Pid != nil {
		fmt.Fprintf(w, "pid:\t%d\n", *task.Pid)
	}
	if task.Started != nil {
		fmt.Fprintf(w, "started:\t%s\n", task.Started.Format(time.RFC3339))
	}
	if task.Completed != nil {
		fmt.Fprintf(w, "completed:\t%s\n", task.Completed.Format(time.RFC3339))
	}
	if task.Error != nil {
		fmt.Fprintf(w, "error:\t%s\n", *task.Error)
	}

	return w.Flush()
}

func statusFilter(s string) (taskstore.Status, error) {
	if s == "" {
		return "", nil
	}

	status := taskstore.Status(strings.ToUpper(s))
	switch status {
	case taskstore.StatusQueued, taskstore.StatusActive, taskstore.StatusCompleted, taskstore.StatusFailed:
		return status, nil
	}

	return "", fmt.Errorf("unknown status %q", s)
}

func pidString(pid *int) string {
	if pid == nil {
		return "-"
	}

	return fmt.Sprintf("%d", *pid)
}

func init() {
	rootApp.Commands = append(rootApp.Commands, statusCmd)
}
