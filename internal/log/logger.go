// Package log holds the process-wide JSON slog logger.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// KeyCorrelation is the attribute naming the request a record belongs to.
const KeyCorrelation = "correlation_id"

var (
	mu     sync.Mutex
	logger *slog.Logger
)

// Setup installs the global logger writing to stdout.
func Setup(level string) {
	SetupWriter(level, os.Stdout)
}

// SetupWriter installs the global logger writing JSON records to w. Only the
// first call takes effect. An unknown level means INFO.
func SetupWriter(level string, w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if logger != nil {
		return
	}
	logger = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
	slog.SetDefault(logger)
}

func ParseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo
	}
	return l
}

// Get returns the global logger, installing an INFO one on first use.
func Get() *slog.Logger {
	mu.Lock()
	l := logger
	mu.Unlock()
	if l == nil {
		Setup("INFO")
		return Get()
	}
	return l
}

// WithComponent tags records with the subsystem that wrote them.
func WithComponent(name string) *slog.Logger {
	return Get().With(slog.String("component", name))
}

// ForRequest tags records from l with a request's correlation id.
func ForRequest(l *slog.Logger, correlation string) *slog.Logger {
	return l.With(slog.String(KeyCorrelation, correlation))
}

// reset drops the installed logger.
func reset() {
	mu.Lock()
	logger = nil
	mu.Unlock()
}
