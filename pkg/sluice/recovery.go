package sluice

import (
	"fmt"

	"github.com/pkg/errors"
)

// LogPanic logs a recovered panic at error level with its stack trace.
// Use it in defer statements around code whose panics should end up in
// the log instead of on a bare stderr:
//
//	defer func() {
//		if r := recover(); r != nil {
//			logger.LogPanic(r)
//			panic(r) // re-raise if the panic should still crash
//		}
//	}()
func (l Logger) LogPanic(recovered interface{}) {
	if l.eng == nil {
		return
	}

	var err error
	switch v := recovered.(type) {
	case error:
		err = errors.WithStack(v)
	default:
		err = errors.Errorf("%v", v)
	}
	l.Errorf("recovered from panic: %s", FormatErrorVerbose(err))
}

// SafeGo runs fn on a new goroutine with panic recovery: a panic is
// logged through LogPanic and the goroutine ends cleanly instead of
// crashing the process.
func (l Logger) SafeGo(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				l.LogPanic(r)
			}
		}()
		fn()
	}()
}

// FormatErrorVerbose renders err with its stack trace when the error
// carries one (errors created or wrapped by github.com/pkg/errors do).
func FormatErrorVerbose(err error) string {
	if err == nil {
		return "<nil>"
	}
	if _, ok := err.(interface{ StackTrace() errors.StackTrace }); ok {
		return fmt.Sprintf("%+v", err)
	}
	return err.Error()
}
