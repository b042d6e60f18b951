// Package logging builds the structured console logger used across
// rollcall. Components receive a *log.Logger and log key/value pairs.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// Options configures New.
type Options struct {
	// Level is one of debug, info, warn, error (default: info).
	Level string

	// Writer receives log output (default: os.Stderr).
	Writer io.Writer

	// Prefix is printed before every message, e.g. "rollcall".
	Prefix string
}

// New returns a timestamped logger at the requested level. Unknown levels
// fall back to info.
func New(opts Options) *log.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Level:           ParseLevel(opts.Level),
		Prefix:          opts.Prefix,
	})
}

// ParseLevel maps a level name to a log.Level, defaulting to info.
func ParseLevel(name string) log.Level {
	level, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return log.InfoLevel
	}
	return level
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *log.Logger {
	return log.New(io.Discard)
}
