package conf

import (
	"context"
	"errors"
)

type contextKey struct{}

var configKey contextKey

// ContextWithConfig returns a copy of ctx carrying the parsed config.
func ContextWithConfig[C any](ctx context.Context, config C) context.Context {
	return context.WithValue(ctx, configKey, config)
}

// GetConfigFromContext extracts the config stored by ContextWithConfig.
func GetConfigFromContext[C any](ctx context.Context) (C, error) {
	var zero C

	value := ctx.Value(configKey)
	if value == nil {
		return zero, errors.New("config not found in context")
	}

	config, ok := value.(C)
	if !ok {
		return zero, errors.New("invalid config in context")
	}

	return config, nil
}
