// Package debug provides the process-wide debug logger built on log/slog.
package debug

import (
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

var (
	logger  *slog.Logger
	enabled bool
	mu      sync.RWMutex
)

func init() {
	Init(false)
}

// Init enables or silences debug output on stderr.
func Init(enable bool) {
	InitWriter(os.Stderr, enable)
}

// InitWriter is Init with an explicit destination.
func InitWriter(w io.Writer, enable bool) {
	level := slog.LevelDebug
	if !enable {
		// nothing reaches a level above Error
		level = slog.LevelError + 1
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})

	mu.Lock()
	defer mu.Unlock()
	enabled = enable
	logger = slog.New(handler).With("component", "baseorm")
}

// Enabled reports whether debug output is on.
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Debug logs at debug level.
func Debug(msg string, args ...any) { current().Debug(msg, args...) }

// Info logs at info level.
func Info(msg string, args ...any) { current().Info(msg, args...) }

// Warn logs at warn level.
func Warn(msg string, args ...any) { current().Warn(msg, args...) }

// Error logs at error level.
func Error(msg string, args ...any) { current().Error(msg, args...) }

// Statement records one executed SQL statement.
func Statement(query string, params []any, took time.Duration, err error) {
	l := current()
	if err != nil {
		l.Debug("statement failed", "sql", query, "params", params, "took", took, "error", err)
		return
	}
	l.Debug("statement", "sql", query, "params", params, "took", took)
}

// With returns a child logger carrying args.
func With(args ...any) *slog.Logger {
	return current().With(args...)
}

// Logger returns the underlying logger.
func Logger() *slog.Logger {
	return current()
}
