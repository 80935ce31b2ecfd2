// Package logger is the shared structured logger: JSON lines on stdout with
// a service attribute, one logger per process.
package logger

import (
	"log/slog"
	"os"
)

// New builds the service logger. Level defaults to info; set debug for local
// runs.
func New(service string, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With("service", service)
}

// Discard returns a logger that drops everything. Test helper.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
