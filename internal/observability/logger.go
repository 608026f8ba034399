package observability

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger writes readable text in dev and JSON everywhere else. Tests
// only see warnings.
func NewLogger(env string) *slog.Logger {
	return slog.New(newHandler(os.Stdout, env))
}

// NewTracedLogger is NewLogger with trace and span ids on every record
// logged inside a span.
func NewTracedLogger(env string) *slog.Logger {
	return slog.New(NewTraceHandler(newHandler(os.Stdout, env)))
}

func newHandler(w io.Writer, env string) slog.Handler {
	switch env {
	case "dev":
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	case "test":
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelWarn})
	default:
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
}
