// Package logging configures log/slog and carries request context into logs.
//
// Loggers returned by FromContext pick up chi's request ID and the map
// field being rendered, so every line of one render can be correlated.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

type contextKey string

const ctxKeyMapID contextKey = "map_id"

// Setup installs the default logger writing to stdout.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json" (default: "text")
func Setup(level, format string) {
	slog.SetDefault(New(os.Stdout, level, format))
}

// New builds a logger without installing it. The CLI logs to stderr so
// stdout stays machine readable.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(level),
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// ParseLevel converts a level name to slog.Level. Unknown names are info.
func ParseLevel(level string) slog.Level {
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

// WithMapID records the map field being served.
func WithMapID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyMapID, id)
}

// MapIDFromContext returns the map field ID set by WithMapID.
func MapIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyMapID).(string); ok {
		return v
	}
	return ""
}

// FromContext returns the default logger with request_id and map_id
// attached when present.
//
//	logger := logging.FromContext(r.Context())
//	logger.Info("map saved", "name", name)
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()

	if reqID := middleware.GetReqID(ctx); reqID != "" {
		logger = logger.With("request_id", reqID)
	}
	if mapID := MapIDFromContext(ctx); mapID != "" {
		logger = logger.With("map_id", mapID)
	}

	return logger
}

// WithFields returns FromContext(ctx) with extra fields.
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}
