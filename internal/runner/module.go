package runner

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lambda-feedback/wrangler/internal/tasks"
	"github.com/lambda-feedback/wrangler/internal/taskstore"
)

// Module provides the task runner and runs its claim loop for the lifetime
// of the application.
func Module(config Config) fx.Option {
	return fx.Module("runner",
		fx.Supply(config),
		fx.Provide(NewLifecycleRunner),
		fx.Invoke(func(*Runner) {}),
	)
}

func NewLifecycleRunner(
	lc fx.Lifecycle,
	ctx context.Context,
	config Config,
	store *taskstore.Store,
	registry *tasks.Registry,
	log *zap.Logger,
) *Runner {
	runner := New(config, store, registry, log)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				_ = runner.Run(runCtx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()

			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})

	return runner
}
