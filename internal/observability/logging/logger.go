package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// New builds the process logger. Format "text" gives colored console output; anything else is JSON.
func New(service, level, format string) *slog.Logger {
	return newLogger(os.Stdout, service, level, format)
}

func NewJSONLogger(service, level string) *slog.Logger {
	return newLogger(os.Stdout, service, level, "json")
}

func newLogger(out io.Writer, service, level, format string) *slog.Logger {
	var handler slog.Handler
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "text", "console", "tint":
		handler = tint.NewHandler(out, &tint.Options{
			Level:      parseLevel(level),
			TimeFormat: time.TimeOnly,
		})
	default:
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{
			Level: parseLevel(level),
		})
	}
	return slog.New(handler).With("service", service)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
