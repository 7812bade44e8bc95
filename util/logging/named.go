package logging

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NamedLogger returns a decorator that scopes the logger to name.
func NamedLogger(name string) func(*zap.Logger) *zap.Logger {
	return func(log *zap.Logger) *zap.Logger {
		return log.Named(name)
	}
}

// DecorateLogger names the logger inside the enclosing fx module, so
// every component resolved there logs under that name.
func DecorateLogger(name string) fx.Option {
	return fx.Decorate(NamedLogger(name))
}
