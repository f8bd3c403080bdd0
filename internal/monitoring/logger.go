// Package monitoring provides the diagnostic log streams shared by the
// feature extraction packages.
//
// Three streams are kept apart so callers can route them independently:
// Ops for lifecycle events and actionable warnings, Diag for per-run
// diagnostics, and Trace for high-frequency per-extractor telemetry.
// All streams are disabled until SetLogWriters is called.
//
// The package-level functions log under the "features" prefix. Packages
// that want their own label take a Logger from Named; it shares the
// configured writers.
package monitoring

import (
	"io"
	"log"
	"sync"
)

// LogWriters holds the io.Writers for each logging stream.
type LogWriters struct {
	Ops   io.Writer
	Diag  io.Writer
	Trace io.Writer
}

type stream int

const (
	streamOps stream = iota
	streamDiag
	streamTrace
	numStreams
)

type loggerKey struct {
	stream stream
	prefix string
}

var (
	mu      sync.RWMutex
	writers [numStreams]io.Writer
	loggers = map[loggerKey]*log.Logger{}
)

// SetLogWriters configures all three logging streams at once.
// Pass nil for any writer to disable that stream.
func SetLogWriters(w LogWriters) {
	mu.Lock()
	defer mu.Unlock()
	writers = [numStreams]io.Writer{w.Ops, w.Diag, w.Trace}
	loggers = map[loggerKey]*log.Logger{}
}

// Logger writes to the shared streams under its own prefix.
type Logger struct {
	prefix string
}

// Named returns a Logger whose lines are prefixed with "[name] ".
func Named(name string) Logger {
	return Logger{prefix: "[" + name + "] "}
}

var defaultLogger = Named("features")

// Opsf logs to the ops stream (lifecycle events, warnings, errors).
func (l Logger) Opsf(format string, args ...interface{}) {
	l.printf(streamOps, format, args)
}

// Diagf logs to the diag stream (per-run diagnostics).
func (l Logger) Diagf(format string, args ...interface{}) {
	l.printf(streamDiag, format, args)
}

// Tracef logs to the trace stream (per-extractor telemetry).
func (l Logger) Tracef(format string, args ...interface{}) {
	l.printf(streamTrace, format, args)
}

func (l Logger) printf(s stream, format string, args []interface{}) {
	if lg := lookup(s, l.prefix); lg != nil {
		lg.Printf(format, args...)
	}
}

// lookup returns the cached logger for a stream and prefix, creating it on
// first use. It returns nil while the stream is disabled.
func lookup(s stream, prefix string) *log.Logger {
	key := loggerKey{stream: s, prefix: prefix}
	mu.RLock()
	w, lg := writers[s], loggers[key]
	mu.RUnlock()
	if w == nil || lg != nil {
		return lg
	}

	mu.Lock()
	defer mu.Unlock()
	if writers[s] == nil {
		return nil
	}
	if lg = loggers[key]; lg == nil {
		lg = log.New(writers[s], prefix, log.LstdFlags|log.Lmicroseconds)
		loggers[key] = lg
	}
	return lg
}

// Opsf logs to the ops stream under the default prefix.
func Opsf(format string, args ...interface{}) {
	defaultLogger.Opsf(format, args...)
}

// Diagf logs to the diag stream under the default prefix.
func Diagf(format string, args ...interface{}) {
	defaultLogger.Diagf(format, args...)
}

// Tracef logs to the trace stream under the default prefix.
func Tracef(format string, args ...interface{}) {
	defaultLogger.Tracef(format, args...)
}
