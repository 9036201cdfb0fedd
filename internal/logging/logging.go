// Package logging builds the zerolog loggers used across scrollytell.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Options configure New.
type Options struct {
	// Level is a zerolog level name; unknown names fall back to info.
	Level string
	// Debug forces the debug level and adds caller information.
	Debug bool
	// JSON writes JSON lines instead of the console format.
	JSON bool
	// Out defaults to stderr.
	Out io.Writer
}

// New returns a root logger.
func New(o Options) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(o.Level)
	if err != nil || o.Level == "" {
		lvl = zerolog.InfoLevel
	}
	if o.Debug {
		lvl = zerolog.DebugLevel
	}

	out := o.Out
	if out == nil {
		out = os.Stderr
	}
	if !o.JSON {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	ctx := zerolog.New(out).Level(lvl).With().Timestamp()
	if o.Debug {
		ctx = ctx.Caller()
	}
	return ctx.Logger()
}

// Component derives a sub-logger tagged component=name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}
