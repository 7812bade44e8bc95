package tasks

import (
	"go.uber.org/fx"
)

// HandlerResult is used by handler constructors to contribute their
// handler to the registry's handler group.
type HandlerResult struct {
	fx.Out

	Handler Handler `group:"task_handlers"`
}

func AsHandler(handler Handler) HandlerResult {
	return HandlerResult{Handler: handler}
}

type RegistryParams struct {
	fx.In

	Handlers []Handler `group:"task_handlers"`
}

func NewGroupRegistry(params RegistryParams) (*Registry, error) {
	return NewRegistry(params.Handlers...)
}

// Module provides the task registry with all built-in handlers.
func Module() fx.Option {
	return fx.Module("tasks",
		fx.Provide(
			provideHashCheck,
			provideSleep,
			NewGroupRegistry,
		),
	)
}

func provideHashCheck() (HandlerResult, error) {
	handler, err := NewHashCheck()
	if err != nil {
		return HandlerResult{}, err
	}

	return AsHandler(handler), nil
}

func provideSleep() (HandlerResult, error) {
	handler, err := NewSleep()
	if err != nil {
		return HandlerResult{}, err
	}

	return AsHandler(handler), nil
}
