// Package logger builds the *slog.Logger shared by stylectl commands, the
// backend client and the local gateway.
package logger

import (
	"io"
	"log/slog"
	"os"
	"time"

	charmlog "github.com/charmbracelet/log"
)

type config struct {
	level   slog.Level
	pretty  bool
	json    bool
	source  bool
	prefix  string
	writers []io.Writer
}

// New returns a logger configured by opts. Without options it writes
// slog text records at Info level to os.Stderr, keeping stdout free for
// command output.
func New(opts ...Option) *slog.Logger {
	c := &config{level: slog.LevelInfo}
	for _, opt := range opts {
		opt(c)
	}

	var w io.Writer = os.Stderr
	switch len(c.writers) {
	case 0:
	case 1:
		w = c.writers[0]
	default:
		w = io.MultiWriter(c.writers...)
	}

	var handler slog.Handler
	switch {
	case c.json:
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: c.level, AddSource: c.source})
	case c.pretty:
		handler = charmlog.NewWithOptions(w, charmlog.Options{
			Level:           charmLevel(c.level),
			ReportTimestamp: true,
			TimeFormat:      time.Kitchen,
			ReportCaller:    c.source,
			Prefix:          c.prefix,
		})
	default:
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: c.level, AddSource: c.source})
	}

	l := slog.New(handler)
	if c.prefix != "" && !c.pretty {
		l = l.With("component", c.prefix)
	}
	return l
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func charmLevel(level slog.Level) charmlog.Level {
	switch {
	case level <= slog.LevelDebug:
		return charmlog.DebugLevel
	case level <= slog.LevelInfo:
		return charmlog.InfoLevel
	case level <= slog.LevelWarn:
		return charmlog.WarnLevel
	default:
		return charmlog.ErrorLevel
	}
}
