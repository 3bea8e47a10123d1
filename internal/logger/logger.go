// Package logger builds the zerolog loggers used by the detection pipeline
// and the command line driver.
package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// New creates a JSON logger writing to w at the given level, with a
// timestamp on every event.
func New(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// NewConsole creates a human readable logger on stderr. Verbose enables
// debug events.
func NewConsole(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}, level)
}

// Component returns a child logger tagging every event with component.
func Component(l zerolog.Logger, component string) zerolog.Logger {
	return l.With().Str("component", component).Logger()
}
