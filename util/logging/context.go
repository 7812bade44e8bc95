package logging

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

type contextKey struct{}

var loggerKey contextKey

// ErrNoLoggerInContext is returned when a context never went through
// ContextWithLogger.
var ErrNoLoggerInContext = errors.New("no logger in context")

// ContextWithLogger returns a copy of ctx carrying the logger.
func ContextWithLogger(ctx context.Context, log *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, log)
}

// LoggerFromContext extracts the logger stored by ContextWithLogger.
func LoggerFromContext(ctx context.Context) (*zap.Logger, error) {
	log, ok := ctx.Value(loggerKey).(*zap.Logger)
	if !ok {
		return nil, ErrNoLoggerInContext
	}

	return log, nil
}
