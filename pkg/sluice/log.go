package sluice

import (
	"runtime"
	"time"

	"github.com/wayneeseguin/sluice/pkg/types"
)

// Logger is the producer-facing view of an engine: a target, a tag and
// an optional rate-limit interval bound to a *Sluice. It is a small
// value, cheap to copy and safe to use from any goroutine; every log
// call reduces to a single non-blocking channel send. Sluice embeds the
// root view, so an engine is itself a Logger.
//
// The zero Logger is valid and inert: its methods are no-ops and Log
// returns ErrClosed. That gives packages a well-defined "not yet
// initialized" state without a process-wide mutable global.
type Logger struct {
	eng    *Sluice
	target string
	tag    string
	limit  time.Duration
}

// Named returns a view whose target extends the receiver's by one
// dot-separated segment. An absolute target (one containing "." or
// "::") replaces the receiver's instead.
//
//	log := engine.Named("server")      // target "server"
//	httpLog := log.Named("http")       // target "server.http"
//	dbLog := log.Named("store::sql")   // target "store::sql"
func (l Logger) Named(target string) Logger {
	switch {
	case target == "":
		return l
	case l.target == "" || isAbsoluteTarget(target):
		l.target = target
	default:
		l.target = l.target + "." + target
	}
	return l
}

// Tagged returns a view carrying tag as its thread-style label.
func (l Logger) Tagged(tag string) Logger {
	l.tag = tag
	return l
}

// Every returns a view whose records emit at most once per interval d
// per call site; records between emissions are counted and the count
// rides out on the next emitted line. A non-positive d removes the
// limit.
func (l Logger) Every(d time.Duration) Logger {
	if d < 0 {
		d = 0
	}
	l.limit = d
	return l
}

// Target returns the view's module path.
func (l Logger) Target() string {
	return l.target
}

// Tracef logs at trace level with a deferred Printf-style payload.
// Formatting happens on the dispatch worker, never on the caller.
func (l Logger) Tracef(format string, args ...interface{}) {
	l.dispatch(types.LevelTrace, format, args)
}

// Debugf logs at debug level with a deferred Printf-style payload.
func (l Logger) Debugf(format string, args ...interface{}) {
	l.dispatch(types.LevelDebug, format, args)
}

// Infof logs at info level with a deferred Printf-style payload.
func (l Logger) Infof(format string, args ...interface{}) {
	l.dispatch(types.LevelInfo, format, args)
}

// Warnf logs at warn level with a deferred Printf-style payload.
func (l Logger) Warnf(format string, args ...interface{}) {
	l.dispatch(types.LevelWarn, format, args)
}

// Errorf logs at error level with a deferred Printf-style payload.
func (l Logger) Errorf(format string, args ...interface{}) {
	l.dispatch(types.LevelError, format, args)
}

// Trace logs the space-joined args at trace level.
func (l Logger) Trace(args ...interface{}) {
	l.dispatch(types.LevelTrace, "", args)
}

// Debug logs the space-joined args at debug level.
func (l Logger) Debug(args ...interface{}) {
	l.dispatch(types.LevelDebug, "", args)
}

// Info logs the space-joined args at info level.
func (l Logger) Info(args ...interface{}) {
	l.dispatch(types.LevelInfo, "", args)
}

// Warn logs the space-joined args at warn level.
func (l Logger) Warn(args ...interface{}) {
	l.dispatch(types.LevelWarn, "", args)
}

// Error logs the space-joined args at error level.
func (l Logger) Error(args ...interface{}) {
	l.dispatch(types.LevelError, "", args)
}

// Log enqueues a pre-populated record, filling in the view's target,
// tag, limit and the capture time where the record leaves them unset.
// It is the low-level entry point for producers that need the outcome:
// ErrChannelFull when the channel cannot take the record without
// blocking, ErrClosed after shutdown has begun. The record is dropped
// in both cases.
func (l Logger) Log(rec types.Record) error {
	if l.eng == nil {
		return ErrClosed
	}
	if rec.Target == "" {
		rec.Target = l.target
	}
	if rec.Tag == "" {
		rec.Tag = l.tag
	}
	if rec.Limit == 0 {
		rec.Limit = l.limit
	}
	if rec.Time.IsZero() {
		rec.Time = time.Now()
	}
	rec.Suppressed = 0
	return l.eng.enqueue(&rec)
}

// dispatch is the shared sugar path: level gate, caller capture, record
// construction, non-blocking enqueue. Failures are routed to the error
// handler; sugar callers never see them. Records sent after shutdown
// began are rejected by enqueue and reach the handler too, so they are
// dropped but never undetectably.
func (l Logger) dispatch(level types.Level, format string, args []interface{}) {
	eng := l.eng
	if eng == nil {
		return
	}
	if !eng.IsLevelEnabled(level) {
		return
	}

	rec := &types.Record{
		Level:  level,
		Target: l.target,
		Tag:    l.tag,
		Time:   time.Now(),
		Format: format,
		Args:   args,
		Limit:  l.limit,
	}
	if eng.captureCaller {
		if _, file, line, ok := runtime.Caller(2); ok {
			rec.File = file
			rec.Line = line
		}
	}

	if err := eng.enqueue(rec); err != nil {
		eng.reportError(ErrorEvent{
			Source:  "transport",
			Message: "record dropped",
			Err:     err,
			Level:   ErrorLevelMedium,
		})
	}
}

// enqueue performs the non-blocking send. A full channel fails fast so
// producers never stall behind a slow sink; the drop is counted for the
// worker's next self-report.
func (s *Sluice) enqueue(rec *types.Record) error {
	if s.closed.Load() {
		return ErrClosed
	}
	select {
	case s.msgChan <- types.Message{Record: rec}:
		return nil
	default:
		s.dropped.Add(1)
		s.collector.TrackDroppedFull()
		return ErrChannelFull
	}
}

// isAbsoluteTarget reports whether target names a full module path
// rather than a segment to append.
func isAbsoluteTarget(target string) bool {
	for i := 0; i < len(target); i++ {
		if target[i] == '.' || target[i] == ':' {
			return true
		}
	}
	return false
}
