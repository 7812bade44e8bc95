package taskstore

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func Module(config Config) fx.Option {
	return fx.Module("taskstore",
		// provide config
		fx.Supply(config),
		// provide store
		fx.Provide(NewLifecycleStore),
	)
}

func NewLifecycleStore(
	lc fx.Lifecycle,
	ctx context.Context,
	config Config,
	log *zap.Logger,
) (*Store, error) {
	store, err := New(ctx, config.Path, log)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return store.Close()
		},
	})

	return store, nil
}
