// Package log provides categorized structured logging for rewind.
//
// The CLI owns stdout for command output, so log records go to a file
// under the data directory (or are discarded until Init is called).
// Every record carries a category attribute so log greps can isolate a
// subsystem.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Category labels the subsystem emitting a log record.
type Category string

const (
	// CatDB covers database open, migration, and repository operations.
	CatDB Category = "db"
	// CatConfig covers configuration loading and validation.
	CatConfig Category = "config"
	// CatEngine covers timeline engine operations (branch, diff, replay).
	CatEngine Category = "engine"
	// CatCLI covers command dispatch and the recording loop.
	CatCLI Category = "cli"
)

var (
	mu     sync.RWMutex
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	closer io.Closer
)

// Init routes log output to a file at the given path, creating parent
// directories as needed. Records below the given level are dropped.
func Init(path string, level slog.Level) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) //nolint:gosec // G304: path comes from application config
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if closer != nil {
		_ = closer.Close()
	}
	logger = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	closer = f
	return nil
}

// Close flushes and closes the log sink, returning logging to discard.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if closer != nil {
		_ = closer.Close()
		closer = nil
	}
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Debug logs at debug level with the given category.
func Debug(cat Category, msg string, args ...any) {
	current().Debug(msg, append([]any{"category", string(cat)}, args...)...)
}

// Info logs at info level with the given category.
func Info(cat Category, msg string, args ...any) {
	current().Info(msg, append([]any{"category", string(cat)}, args...)...)
}

// Warn logs at warn level with the given category.
func Warn(cat Category, msg string, args ...any) {
	current().Warn(msg, append([]any{"category", string(cat)}, args...)...)
}

// Error logs at error level with the given category.
func Error(cat Category, msg string, args ...any) {
	current().Error(msg, append([]any{"category", string(cat)}, args...)...)
}

// ErrorErr logs an error value at error level with the given category.
func ErrorErr(cat Category, msg string, err error, args ...any) {
	current().Error(msg, append([]any{"category", string(cat), "error", err}, args...)...)
}
