// Package logger builds the structured logger shared by every command.
// Scraper packages take a *slog.Logger rather than constructing their own,
// so verbosity and destination are decided in exactly one place.
package logger

import (
	"io"
	"log/slog"
)

// New returns a text-format logger writing to w. Verbose lowers the level to
// debug, which traces every page fetch and retry.
func New(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Discard returns a logger that drops everything. Used by tests that do not
// assert on log output.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
