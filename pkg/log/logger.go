package log

import (
	"context"
	"log/slog"
)

type contextKey string

const loggerKey contextKey = "logger"

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the request logger, or fallback when ctx carries none.
func FromContext(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}

	return fallback
}
