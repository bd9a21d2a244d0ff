package sluice

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
)

// Sentinel errors returned by producer-facing operations.
var (
	// ErrChannelFull is returned by Log when the dispatch channel cannot
	// take another record without blocking the caller.
	ErrChannelFull = errors.New("sluice: message channel full")

	// ErrClosed is returned for operations attempted after shutdown has
	// begun.
	ErrClosed = errors.New("sluice: logger is closed")
)

// ErrorCode classifies structured engine errors.
type ErrorCode int

const (
	// ErrCodeUnknown is an unclassified error
	ErrCodeUnknown ErrorCode = iota

	// ErrCodeConfig is an invalid configuration detected at build time
	ErrCodeConfig

	// ErrCodeChannelFull is a record refused by a full dispatch channel
	ErrCodeChannelFull

	// ErrCodeClosed is an operation on a closed logger
	ErrCodeClosed

	// Appender failures
	ErrCodeAppenderOpen
	ErrCodeAppenderWrite
	ErrCodeAppenderFlush
	ErrCodeAppenderClose

	// File lifecycle failures
	ErrCodeRotate
	ErrCodeRetention
	ErrCodeCompress

	// ErrCodeFormat is a formatter failure for one record
	ErrCodeFormat

	// ErrCodeShutdownTimeout is a Shutdown that outlived its context
	ErrCodeShutdownTimeout
)

// Error is a structured engine error carrying the failed operation and
// the appender or path involved. Compare with errors.Is against another
// *Error to match by code.
type Error struct {
	Code ErrorCode
	Op   string // operation that failed ("write", "rotate", "close", ...)
	Path string // appender name or file path, when applicable
	Err  error
	Time time.Time
}

// NewError creates a structured engine error stamped with the current
// time.
func NewError(code ErrorCode, op, path string, err error) *Error {
	return &Error{
		Code: code,
		Op:   op,
		Path: path,
		Err:  err,
		Time: time.Now(),
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("sluice: %s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("sluice: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by code, or the underlying error directly.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if other, ok := target.(*Error); ok {
		return e.Code == other.Code
	}
	return e.Err != nil && e.Err == target
}

// ConfigError reports an invalid builder or configuration value. All
// configuration problems surface synchronously from Build/New, before
// the dispatch worker starts.
type ConfigError struct {
	Field string
	Value interface{}
	Err   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("sluice: config %s = %v: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("sluice: config %s: %v", e.Field, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

func configErrorf(field string, value interface{}, format string, args ...interface{}) *ConfigError {
	return &ConfigError{
		Field: field,
		Value: value,
		Err:   errors.Errorf(format, args...),
	}
}

func errLostRecords(n uint64) error {
	return errors.Errorf("%d records were still queued when the worker stopped", n)
}

// ErrorLevel grades the severity of internal error events.
type ErrorLevel int

const (
	// ErrorLevelLow is a minor hiccup without data loss
	ErrorLevelLow ErrorLevel = iota
	// ErrorLevelWarn is a degradation worth attention
	ErrorLevelWarn
	// ErrorLevelMedium is a failure affecting individual records
	ErrorLevelMedium
	// ErrorLevelHigh is a failure degrading an appender
	ErrorLevelHigh
	// ErrorLevelCritical is a failure threatening the pipeline
	ErrorLevelCritical
)

// String returns the lower-case name of the level.
func (l ErrorLevel) String() string {
	switch l {
	case ErrorLevelLow:
		return "low"
	case ErrorLevelWarn:
		return "warn"
	case ErrorLevelMedium:
		return "medium"
	case ErrorLevelHigh:
		return "high"
	case ErrorLevelCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// ErrorEvent describes one internal failure: a dropped record, a broken
// appender, a retention miss. Events reach the configured ErrorHandler
// instead of panicking or killing the worker; nothing in the engine
// logs about itself through a second logging framework.
type ErrorEvent struct {
	Source  string // subsystem: "transport", "write", "rotate", "retention", "compress", "format", "panic"
	Path    string // appender name or file path, when applicable
	Message string
	Err     error
	Level   ErrorLevel
	Time    time.Time
}

// ErrorHandler receives internal error events. Handlers may run on the
// dispatch worker or on maintenance goroutines and must not call back
// into the logger's blocking operations.
type ErrorHandler func(ev ErrorEvent)

// SilentErrorHandler discards all error events.
var SilentErrorHandler ErrorHandler = func(ErrorEvent) {}

// StderrErrorHandler writes error events to stderr, one line each.
var StderrErrorHandler ErrorHandler = func(ev ErrorEvent) {
	if ev.Err != nil {
		fmt.Fprintf(os.Stderr, "sluice error: %s %s: %s: %v\n", ev.Source, ev.Path, ev.Message, ev.Err)
		return
	}
	fmt.Fprintf(os.Stderr, "sluice error: %s %s: %s\n", ev.Source, ev.Path, ev.Message)
}

// defaultErrorHandler is stderr in production and silent under go test,
// where stderr noise would drown test output.
func defaultErrorHandler() ErrorHandler {
	if isTestMode() {
		return SilentErrorHandler
	}
	return StderrErrorHandler
}
