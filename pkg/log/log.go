// Package log configures the process-wide slog logger.
package log

import (
	"io"
	"log/slog"
	"os"
)

// ParseLevel maps a level name to slog. Unknown names are info.
func ParseLevel(logLevel string) slog.Level {
	switch logLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func Setup(logLevel string) {
	SetupWriter(os.Stderr, logLevel, "text")
}

// SetupWriter installs the default logger writing text or json to w.
func SetupWriter(w io.Writer, logLevel, format string) {
	options := &slog.HandlerOptions{Level: ParseLevel(logLevel)}

	var handler slog.Handler = slog.NewTextHandler(w, options)
	if format == "json" {
		handler = slog.NewJSONHandler(w, options)
	}

	slog.SetDefault(slog.New(handler))
}

func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}
