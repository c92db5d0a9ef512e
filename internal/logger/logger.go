// Package logger configures the process-wide slog handler.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// Setup installs a text handler on stderr. Verbose enables debug output;
// otherwise only warnings and errors are shown so the chat stays readable.
func Setup(verbose bool) *slog.Logger {
	return SetupWriter(os.Stderr, verbose)
}

// SetupWriter is Setup with an explicit destination.
func SetupWriter(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	l := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(l)
	return l
}
