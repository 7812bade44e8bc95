package app

import (
	"context"

	"github.com/urfave/cli/v2"
	"go.uber.org/fx"

	"github.com/lambda-feedback/wrangler/config"
	"github.com/lambda-feedback/wrangler/internal/shell"
	"github.com/lambda-feedback/wrangler/internal/taskstore"
	"github.com/lambda-feedback/wrangler/util/conf"
	"github.com/lambda-feedback/wrangler/util/logging"
)

// App wraps the application shell together with the parsed config. It
// is the common bootstrap for the long-running commands, which differ
// only in the modules they run.
type App struct {
	shell  *shell.Shell
	config config.Config
}

func New(ctx *cli.Context) (*App, error) {
	log, err := logging.LoggerFromContext(ctx.Context)
	if err != nil {
		return nil, err
	}

	cfg, err := conf.GetConfigFromContext[config.Config](ctx.Context)
	if err != nil {
		return nil, err
	}

	sharedModule := fx.Module(
		"shared",
		// provide global config
		fx.Supply(cfg),
		// provide the task store
		taskstore.Module(cfg.DB),
	)

	return &App{
		shell:  shell.New(log, sharedModule),
		config: cfg,
	}, nil
}

// Config returns the parsed application config.
func (a *App) Config() config.Config {
	return a.config
}

// Run starts the application with the given modules and blocks until
// it is stopped.
func (a *App) Run(ctx context.Context, options ...fx.Option) error {
	return a.shell.Run(ctx, options...)
}
