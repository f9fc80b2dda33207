// Package logging builds the structured loggers used by the executor and the CLI
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the logger type accepted throughout the module
type Logger = logiface.Logger[logiface.Event]

// Options configures a logger
type Options struct {
	// Writer receives JSON lines, defaults to os.Stderr
	Writer io.Writer

	// Level is the minimum level written
	Level logiface.Level

	// TimeField names the timestamp field, empty disables timestamps
	TimeField string
}

// DefaultOptions returns options for an informational stderr logger
func DefaultOptions() *Options {
	return &Options{
		Writer:    os.Stderr,
		Level:     logiface.LevelInformational,
		TimeField: "time",
	}
}

// lockedWriter serialises writes, the loop goroutine and its callers share one logger
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// New creates a JSON logger. Writes to opts.Writer are serialised.
func New(opts *Options) *Logger {
	if opts == nil {
		opts = DefaultOptions()
	}
	writer := opts.Writer
	if writer == nil {
		writer = os.Stderr
	}

	return stumpy.L.New(
		stumpy.L.WithStumpy(
			stumpy.WithWriter(&lockedWriter{w: writer}),
			stumpy.WithTimeField(opts.TimeField),
		),
		stumpy.L.WithLevel(opts.Level),
	).Logger()
}

// ParseLevel maps a level name to a logiface level, defaulting to informational
func ParseLevel(name string) logiface.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace":
		return logiface.LevelTrace
	case "debug":
		return logiface.LevelDebug
	case "warn", "warning":
		return logiface.LevelWarning
	case "error", "err":
		return logiface.LevelError
	case "disabled", "off", "none":
		return logiface.LevelDisabled
	default:
		return logiface.LevelInformational
	}
}
