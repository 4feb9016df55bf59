// Package util provides low-level helpers shared by all other packages:
// the levelled logger and address formatting.
package util

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// LogLevel controls output verbosity.  Each -v on the command line
// raises it by one.
type LogLevel int

const (
	LogQuiet   LogLevel = 0 // diagnostics only
	LogNormal  LogLevel = 1 // connect progress
	LogVerbose LogLevel = 2 // stream and tunnel events
	LogDebug   LogLevel = 3 // per-loop teardown, session metrics
)

// Logger writes levelled diagnostics to stderr.  Console traffic never
// goes through it; it only shares the screen with the relay.
//
// All methods are safe on a nil *Logger, which discards everything.
type Logger struct {
	mu         sync.Mutex
	level      LogLevel
	output     io.Writer
	timestamps bool
}

// NewLogger returns a Logger that prints messages at or below the given
// verbosity.  Debug verbosity turns on timestamps.
func NewLogger(verbosity int) *Logger {
	return &Logger{
		level:      LogLevel(verbosity),
		output:     os.Stderr,
		timestamps: verbosity >= int(LogDebug),
	}
}

// SetTimestamps enables or disables timestamp prefixes.
func (l *Logger) SetTimestamps(on bool) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.timestamps = on
	l.mu.Unlock()
}

// SetOutput overrides the output writer (default: os.Stderr).
func (l *Logger) SetOutput(w io.Writer) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.output = w
	l.mu.Unlock()
}

// Level returns the current log level, LogQuiet for a nil Logger.
func (l *Logger) Level() LogLevel {
	if l == nil {
		return LogQuiet
	}
	return l.level
}

// Enabled reports whether messages at lvl would be written.
func (l *Logger) Enabled(lvl LogLevel) bool { return l != nil && l.level >= lvl }

// Info prints connect progress.  Prefixed with [INF].
func (l *Logger) Info(format string, args ...interface{}) { l.logAt(LogNormal, "INF", format, args) }

// Warn prints when verbosity ≥ 1.  Prefixed with [WRN].
func (l *Logger) Warn(format string, args ...interface{}) { l.logAt(LogNormal, "WRN", format, args) }

// Verbose prints when verbosity ≥ 2.  Prefixed with [VRB].
func (l *Logger) Verbose(format string, args ...interface{}) {
	l.logAt(LogVerbose, "VRB", format, args)
}

// Debug prints when verbosity ≥ 3.  Prefixed with [DBG].
func (l *Logger) Debug(format string, args ...interface{}) { l.logAt(LogDebug, "DBG", format, args) }

// Error prints at any verbosity on a non-nil Logger.  Prefixed with [ERR].
func (l *Logger) Error(format string, args ...interface{}) { l.logAt(LogQuiet, "ERR", format, args) }

func (l *Logger) logAt(lvl LogLevel, tag, format string, args []interface{}) {
	if !l.Enabled(lvl) {
		return
	}
	msg := fmt.Sprintf(format, args...)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.timestamps {
		fmt.Fprintf(l.output, "%s [%s] %s\n", time.Now().Format("15:04:05.000"), tag, msg)
		return
	}
	fmt.Fprintf(l.output, "[%s] %s\n", tag, msg)
}
