// Package logging builds the process logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options selects the logger output.
type Options struct {
	Debug bool
	JSON  bool
	Level string
}

// New returns a timestamped zerolog logger. Debug builds write to a console
// writer unless JSON output is forced.
func New(opts Options) zerolog.Logger {
	return NewWithWriter(os.Stdout, opts)
}

func NewWithWriter(out io.Writer, opts Options) zerolog.Logger {
	var w io.Writer = out
	if opts.Debug && !opts.JSON {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).
		Level(parseLevel(opts.Level, opts.Debug)).
		With().
		Timestamp().
		Logger()
}

func parseLevel(level string, debug bool) zerolog.Level {
	if level != "" {
		if lvl, err := zerolog.ParseLevel(strings.ToLower(level)); err == nil {
			return lvl
		}
	}
	if debug {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}
