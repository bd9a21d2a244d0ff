package backends

import (
	"io"
	"os"
)

// ConsoleAppender writes records to a standard stream, stderr by
// default. Writes are unbuffered so output is visible immediately.
type ConsoleAppender struct {
	w *os.File
}

// NewConsoleAppender returns an appender writing to stderr.
func NewConsoleAppender() *ConsoleAppender {
	return &ConsoleAppender{w: os.Stderr}
}

// NewStdoutAppender returns an appender writing to stdout.
func NewStdoutAppender() *ConsoleAppender {
	return &ConsoleAppender{w: os.Stdout}
}

func (c *ConsoleAppender) Write(p []byte) (int, error) {
	return c.w.Write(p)
}

func (c *ConsoleAppender) Flush() error {
	return nil
}

// Close is a no-op; the process streams stay open.
func (c *ConsoleAppender) Close() error {
	return nil
}

// WriterAppender adapts an arbitrary io.Writer, typically a buffer in
// tests or a pipe to another collector. Like every appender it is
// driven from a single goroutine; wrap the writer yourself if something
// else writes to it concurrently.
type WriterAppender struct {
	w io.Writer
}

// NewWriterAppender wraps w.
func NewWriterAppender(w io.Writer) *WriterAppender {
	return &WriterAppender{w: w}
}

func (a *WriterAppender) Write(p []byte) (int, error) {
	return a.w.Write(p)
}

// Flush forwards to the writer when it exposes a Flush method.
func (a *WriterAppender) Flush() error {
	if fl, ok := a.w.(interface{ Flush() error }); ok {
		return fl.Flush()
	}
	return nil
}

// Close closes the writer when it is an io.Closer. Wrapped process
// streams should be passed through ConsoleAppender instead, which never
// closes them.
func (a *WriterAppender) Close() error {
	if cl, ok := a.w.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}
