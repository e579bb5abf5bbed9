// Package logging owns the process-wide structured logger. All packages log
// through WithComponent so every record carries the service and component
// fields.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

const serviceName = "support-assistant"

var (
	mu       sync.RWMutex
	root     *slog.Logger
	levelVar = new(slog.LevelVar)
)

// Logger returns the shared logger, building it from the environment on
// first use:
//   - SUPPORTKB_LOG_FORMAT: "json" (default) or "text"
//   - SUPPORTKB_LOG_LEVEL: debug|info|warn|error
func Logger() *slog.Logger {
	mu.RLock()
	l := root
	mu.RUnlock()
	if l != nil {
		return l
	}

	mu.Lock()
	defer mu.Unlock()
	if root == nil {
		levelVar.Set(parseLevel(os.Getenv("SUPPORTKB_LOG_LEVEL")))
		root = newLogger(os.Stdout, os.Getenv("SUPPORTKB_LOG_FORMAT"))
	}
	return root
}

// SetLogger replaces the shared logger, mainly for tests.
func SetLogger(l *slog.Logger) {
	if l == nil {
		return
	}
	mu.Lock()
	root = l
	mu.Unlock()
}

// SetLevel adjusts the minimum level of the environment-built logger at
// runtime. It has no effect on loggers installed via SetLogger.
func SetLevel(level slog.Level) {
	levelVar.Set(level)
}

// WithComponent returns the shared logger tagged with a component field.
func WithComponent(component string) *slog.Logger {
	return Logger().With("component", component)
}

func newLogger(w io.Writer, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: levelVar}
	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler).With("service", serviceName)
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
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
