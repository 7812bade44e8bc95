package stats

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lambda-feedback/wrangler/internal/pool"
	"github.com/lambda-feedback/wrangler/internal/taskstore"
)

// Module provides the stats reporter and runs it for the lifetime of the
// application.
func Module(config Config) fx.Option {
	return fx.Module("stats",
		fx.Supply(config),
		fx.Provide(NewLifecycleReporter),
		fx.Invoke(func(*Reporter) {}),
	)
}

func NewLifecycleReporter(
	lc fx.Lifecycle,
	config Config,
	store *taskstore.Store,
	manager *pool.Manager,
	log *zap.Logger,
) (*Reporter, error) {
	reporter, err := New(config, store, manager, log)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			reporter.Start()
			return nil
		},
		OnStop: func(context.Context) error {
			return reporter.Stop()
		},
	})

	return reporter, nil
}
