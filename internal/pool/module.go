package pool

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lambda-feedback/wrangler/internal/taskstore"
)

func Module(config Config, workerConfig WorkerConfig) fx.Option {
	return fx.Module("pool",
		// provide config
		fx.Supply(config),
		fx.Supply(workerConfig),
		// provide launcher
		fx.Provide(fx.Annotate(NewExecLauncher, fx.As(new(Launcher)))),
		// provide manager
		fx.Provide(NewLifecycleManager),
		// invoke manager
		fx.Invoke(func(*Manager) {}),
	)
}

func NewLifecycleManager(
	lc fx.Lifecycle,
	config Config,
	store *taskstore.Store,
	launcher Launcher,
	log *zap.Logger,
) *Manager {
	manager := New(config, store, launcher, log)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return manager.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return manager.Stop(ctx)
		},
	})

	return manager
}
