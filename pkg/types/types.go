package types

import (
	"fmt"
	"strings"
	"time"
)

// Level is the severity of a log record. Levels are ordered: enabling a
// level enables it and everything above it.
type Level int32

const (
	// LevelTrace is the most verbose level
	LevelTrace Level = iota
	// LevelDebug is for development diagnostics
	LevelDebug
	// LevelInfo is for normal operational messages
	LevelInfo
	// LevelWarn is for conditions that deserve attention
	LevelWarn
	// LevelError is for failures
	LevelError
)

// String returns the upper-case name of the level ("TRACE" .. "ERROR").
func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "TRACE"
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

// ParseLevel converts a level name to a Level. Names are case-insensitive;
// "warning" is accepted as an alias for "warn".
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown level %q", s)
	}
}

// Record is a captured log event. Producers fill it at the call site;
// rendering, routing, rate limiting and I/O all happen later on the
// dispatch worker, so enqueueing a Record stays cheap.
type Record struct {
	Level  Level
	Target string // module path, segments separated by "." or "::"
	File   string // call site file; empty when caller capture is off
	Line   int
	Tag    string // thread-style label shown by the default layout

	// Time is the capture instant. Its wall clock reading becomes the
	// displayed datetime; its monotonic reading feeds the latency column.
	Time time.Time

	// Format and Args carry a deferred payload: fmt.Sprintf runs on the
	// worker, never on the producer. Message is used as-is when Format
	// is empty. Args may contain LazyValue or func() interface{} entries
	// which are evaluated only at render time.
	Format  string
	Args    []interface{}
	Message string

	// Limit is the minimum interval between emissions from this call
	// site. Zero disables rate limiting for the record.
	Limit time.Duration

	// Suppressed is the number of records dropped by the rate limiter
	// since this call site last emitted. Set by the worker before
	// formatting; producers must leave it zero.
	Suppressed uint64
}

// Message is the envelope sent over the dispatch channel. Exactly one of
// Record, SyncDone or Shutdown is set.
type Message struct {
	Record   *Record
	SyncDone chan struct{} // flush barrier; closed by the worker once reached
	Shutdown chan struct{} // terminal request; closed by the worker after it stops
}

// Appender is a pluggable sink for formatted log lines. Appenders are
// driven only by the dispatch worker and are not required to be safe for
// concurrent use.
type Appender interface {
	// Write appends one formatted line
	Write(p []byte) (int, error)

	// Flush pushes buffered data down to the underlying sink
	Flush() error

	// Close flushes and releases the sink
	Close() error
}

// Formatter renders a record into the bytes handed to an appender. The
// worker passes its current instant so implementations can derive the
// capture-to-write latency without reading the clock themselves.
type Formatter interface {
	Format(rec *Record, now time.Time) ([]byte, error)
}

// LazyValue defers computing an expensive argument until the worker
// renders the record. Suppressed and filtered records never evaluate it.
type LazyValue interface {
	Value() interface{}
}

// Lazy wraps fn as a LazyValue for use as a log argument.
//
//	log.Debugf("state: %v", types.Lazy(func() interface{} { return expensiveDump() }))
func Lazy(fn func() interface{}) LazyValue {
	return lazyFunc(fn)
}

type lazyFunc func() interface{}

func (f lazyFunc) Value() interface{} { return f() }

// Route binds a module-path prefix to a named appender with a minimum
// level. Routes are fixed when the engine is built.
type Route struct {
	Prefix   string
	Appender string
	Level    Level
}
