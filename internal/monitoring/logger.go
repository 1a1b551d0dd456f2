// Package monitoring carries the logging streams and Prometheus metrics
// shared by every presence.report package.
//
// Logging is split into three streams:
//
//   - ops: actionable warnings, rejected frames, lifecycle events
//   - diag: per-session diagnostics such as evictions and state resets
//   - trace: per-frame telemetry, usually disabled
//
// Each stream is a printf-style function. SetLogWriters backs them with
// stdlib loggers; SetLoggers accepts arbitrary functions so a CLI can route
// them through a structured logger.
package monitoring

import (
	"io"
	"log"
	"os"
	"sync"
)

// LogFunc is a printf-style log sink.
type LogFunc func(format string, args ...interface{})

// LogWriters holds the io.Writers for each logging stream.
type LogWriters struct {
	Ops   io.Writer
	Diag  io.Writer
	Trace io.Writer
}

var (
	mu     sync.RWMutex
	opsf   LogFunc = newLogFunc("[presence] ", os.Stderr)
	diagf  LogFunc
	tracef LogFunc
)

// SetLogWriters configures all three logging streams at once.
// Pass nil for any writer to disable that stream.
func SetLogWriters(w LogWriters) {
	mu.Lock()
	defer mu.Unlock()
	opsf = newLogFunc("[presence] ", w.Ops)
	diagf = newLogFunc("[presence] ", w.Diag)
	tracef = newLogFunc("[presence] ", w.Trace)
}

// SetLoggers replaces the three streams with caller-supplied functions.
// A nil function disables its stream.
func SetLoggers(ops, diag, trace LogFunc) {
	mu.Lock()
	defer mu.Unlock()
	opsf, diagf, tracef = ops, diag, trace
}

// newLogFunc wraps a *log.Logger for w, or returns nil if w is nil.
func newLogFunc(prefix string, w io.Writer) LogFunc {
	if w == nil {
		return nil
	}
	return log.New(w, prefix, log.LstdFlags|log.Lmicroseconds).Printf
}

// Opsf logs to the ops stream.
func Opsf(format string, args ...interface{}) {
	mu.RLock()
	f := opsf
	mu.RUnlock()
	if f != nil {
		f(format, args...)
	}
}

// Diagf logs to the diag stream.
func Diagf(format string, args ...interface{}) {
	mu.RLock()
	f := diagf
	mu.RUnlock()
	if f != nil {
		f(format, args...)
	}
}

// Tracef logs to the trace stream.
func Tracef(format string, args ...interface{}) {
	mu.RLock()
	f := tracef
	mu.RUnlock()
	if f != nil {
		f(format, args...)
	}
}
