package monitoring

import (
	"log"
	"sync/atomic"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// verbosity controls Debugf output. 0 silences per-cycle diagnostics;
// higher values enable progressively chattier detection logging.
var verbosity atomic.Int32

// SetVerbosity sets the debug logging level.
func SetVerbosity(level int) { verbosity.Store(int32(level)) }

// Verbosity returns the current debug logging level.
func Verbosity() int { return int(verbosity.Load()) }

// Debugf logs through Logf when the current verbosity is at least level.
func Debugf(level int, format string, v ...interface{}) {
	if int(verbosity.Load()) >= level {
		Logf(format, v...)
	}
}
