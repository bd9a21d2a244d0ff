package backends

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/wayneeseguin/sluice/pkg/features"
)

// DefaultBufferSize is the size of the in-process buffer in front of
// each log file.
const DefaultBufferSize = 32 * 1024 // 32 KB

// ErrPathLocked is returned when another process already holds the
// advisory lock guarding a configured log path.
var ErrPathLocked = errors.New("log path locked by another process")

// FileOptions configures a FileAppender beyond its path.
type FileOptions struct {
	// Rotation selects the wall-clock granularity at which a new file
	// is started. RotateNone appends to the configured path forever.
	Rotation features.RotationPolicy

	// Retention removes rotated files once their entire period is older
	// than this window. Zero keeps everything. Requires rotation.
	Retention time.Duration

	// Compress gzips each completed file after rotation.
	Compress bool

	// CompressWorkers sizes the compression worker pool. Values below 1
	// are treated as 1.
	CompressWorkers int

	// BufferSize overrides DefaultBufferSize when positive.
	BufferSize int

	// DisableLock skips the advisory lock that keeps two processes from
	// appending to the same files.
	DisableLock bool

	// Now overrides the wall clock, for tests.
	Now func() time.Time
}

// FileAppender writes formatted records to a log file, starting a new
// file whenever the wall clock crosses a rotation boundary. With
// rotation enabled the active file always carries the datetime token of
// the current period in its name; the configured path itself is never
// created. All methods are called from a single goroutine, so the write
// path holds no locks.
//
// When a rotation cannot open its next file the appender degrades to
// stderr and retries at the following boundary, so records are never
// silently dropped on the write side.
type FileAppender struct {
	path   string
	policy features.RotationPolicy
	now    func() time.Time

	file       *os.File
	writer     *bufio.Writer
	bufferSize int
	activePath string
	periodEnd  time.Time
	degraded   bool

	size      int64
	writes    uint64
	bytes     uint64
	rotations uint64

	lock        *flock.Flock
	retention   *features.RetentionScanner
	compression *features.CompressionManager

	errorHandler  func(source, dest, msg string, err error)
	rotateHandler func(closed, opened string)
}

// NewFileAppender opens the active file for the current period and, when
// configured, acquires the path's advisory lock and starts the retention
// and compression machinery. The configured directory is created if
// missing.
func NewFileAppender(path string, opts FileOptions) (*FileAppender, error) {
	cleanPath := filepath.Clean(path)
	dir := filepath.Dir(cleanPath)
	// #nosec G301 - log directories need to be accessible by other processes
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	f := &FileAppender{
		path:       cleanPath,
		policy:     opts.Rotation,
		bufferSize: opts.BufferSize,
		now:        opts.Now,
	}
	if f.bufferSize <= 0 {
		f.bufferSize = DefaultBufferSize
	}
	if f.now == nil {
		f.now = time.Now
	}

	if !opts.DisableLock {
		lock := flock.New(cleanPath + ".lock")
		ok, err := lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire lock for %s: %w", cleanPath, err)
		}
		if !ok {
			return nil, fmt.Errorf("%s: %w", cleanPath, ErrPathLocked)
		}
		f.lock = lock
	}

	now := f.now()
	if err := f.open(features.DatedPath(cleanPath, f.policy, now)); err != nil {
		if f.lock != nil {
			_ = f.lock.Unlock()
		}
		return nil, fmt.Errorf("open log file: %w", err)
	}
	if f.policy != features.RotateNone {
		f.periodEnd = f.policy.PeriodEnd(f.policy.PeriodStart(now))

		if opts.Retention > 0 {
			f.retention = features.NewRetentionScanner(cleanPath, f.policy, opts.Retention)
			f.retention.Now = f.now
			f.retention.Start()
		}
		if opts.Compress {
			f.compression = features.NewCompressionManager(opts.CompressWorkers)
			f.compression.Start()
		}
	}
	return f, nil
}

// SetErrorHandler sets the handler notified about failures on paths that
// cannot return an error to a caller: rotation, retention and
// compression. Set it before the first rotation boundary.
func (f *FileAppender) SetErrorHandler(handler func(source, dest, msg string, err error)) {
	f.errorHandler = handler
	if f.retention != nil {
		f.retention.SetErrorHandler(handler)
	}
	if f.compression != nil {
		f.compression.SetErrorHandler(handler)
	}
}

// SetRotateHandler sets the callback invoked after each completed
// rotation with the closed and newly opened paths.
func (f *FileAppender) SetRotateHandler(handler func(closed, opened string)) {
	f.rotateHandler = handler
}

// SetDeleteHandler sets the callback invoked for every file removed by
// the retention scanner.
func (f *FileAppender) SetDeleteHandler(handler func(path string)) {
	if f.retention != nil {
		f.retention.SetDeleteHandler(handler)
	}
}

// SetCompressedHandler sets the callback invoked for every file the
// compression pool finishes.
func (f *FileAppender) SetCompressedHandler(handler func(path string)) {
	if f.compression != nil {
		f.compression.SetCompressedHandler(handler)
	}
}

// Write appends one formatted record. The rotation boundary is checked
// before the bytes land, so a record stamped after a boundary is always
// the first line of the next file, never the last line of the previous
// one.
//
// A failed write flips the appender into degraded mode: the record goes
// to stderr instead of vanishing, and so does everything after it until
// a rotation boundary reopens the primary file. The caller still sees
// the original error.
func (f *FileAppender) Write(p []byte) (int, error) {
	now := f.now()
	if f.policy != features.RotateNone && !now.Before(f.periodEnd) {
		f.rotate(now)
	}
	f.writes++
	if f.degraded {
		return os.Stderr.Write(p)
	}
	n, err := f.writer.Write(p)
	f.size += int64(n)
	f.bytes += uint64(n)
	if err != nil {
		if isDiskFullError(err) && f.retention != nil {
			// Removing expired files is the only recovery allowed here.
			f.retention.Kick()
		}
		f.degraded = true
		_, _ = os.Stderr.Write(p)
	}
	return n, err
}

// Flush pushes buffered bytes through the OS to stable storage. After
// Flush returns, every record previously written survives a crash.
func (f *FileAppender) Flush() error {
	if f.file == nil {
		return nil
	}
	if err := f.writer.Flush(); err != nil {
		return err
	}
	return f.file.Sync()
}

// Close flushes and closes the active file, stops the retention and
// compression machinery (draining any queued compressions) and releases
// the path lock. The active file keeps its dated name so a restart in
// the same period appends to it.
func (f *FileAppender) Close() error {
	var errs []error
	if f.retention != nil {
		f.retention.Stop()
	}
	if f.compression != nil {
		f.compression.Stop()
	}
	if f.file != nil {
		if err := f.writer.Flush(); err != nil {
			errs = append(errs, fmt.Errorf("flush: %w", err))
		}
		if err := f.file.Sync(); err != nil {
			errs = append(errs, fmt.Errorf("sync: %w", err))
		}
		if err := f.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close: %w", err))
		}
		f.file = nil
		f.writer = nil
	}
	if f.lock != nil {
		if err := f.lock.Unlock(); err != nil {
			errs = append(errs, fmt.Errorf("unlock: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close %s: %v", f.path, errs)
	}
	return nil
}

// Path returns the configured path.
func (f *FileAppender) Path() string {
	return f.path
}

// ActivePath returns the file currently being written.
func (f *FileAppender) ActivePath() string {
	return f.activePath
}

// Size returns the size of the active file in bytes.
func (f *FileAppender) Size() int64 {
	return f.size
}

// Stats returns a snapshot of the appender's file activity.
func (f *FileAppender) Stats() Stats {
	return Stats{
		Path:         f.path,
		ActivePath:   f.activePath,
		Size:         f.size,
		Writes:       f.writes,
		BytesWritten: f.bytes,
		Rotations:    f.rotations,
	}
}

// Stats is a point-in-time snapshot of a file appender's activity.
type Stats struct {
	Path         string
	ActivePath   string
	Size         int64
	Writes       uint64
	BytesWritten uint64
	Rotations    uint64
}

func (f *FileAppender) open(path string) error {
	// #nosec G302 G304 - log files need to be readable, path is cleaned at construction
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return err
	}
	f.file = file
	f.writer = bufio.NewWriterSize(file, f.bufferSize)
	f.activePath = path
	f.size = info.Size()
	return nil
}

// rotate closes the current period's file, opens the next one and hands
// the completed file to compression and the directory to retention. On
// open failure the appender degrades to stderr until the next boundary.
func (f *FileAppender) rotate(now time.Time) {
	f.periodEnd = f.policy.PeriodEnd(f.policy.PeriodStart(now))

	closed := ""
	if f.file != nil {
		if err := f.writer.Flush(); err != nil {
			f.reportError("rotate", f.activePath, "flush before rotation", err)
		}
		if err := f.file.Sync(); err != nil {
			f.reportError("rotate", f.activePath, "sync rotated file", err)
		}
		if err := f.file.Close(); err != nil {
			f.reportError("rotate", f.activePath, "close rotated file", err)
		}
		closed = f.activePath
		f.file = nil
		f.writer = nil
	}

	opened := features.DatedPath(f.path, f.policy, now)
	if err := f.open(opened); err != nil {
		f.degraded = true
		f.reportError("rotate", opened, "open next log file, degrading to stderr", err)
	} else {
		f.degraded = false
		f.rotations++
	}

	if closed != "" && closed != opened {
		if f.rotateHandler != nil {
			f.rotateHandler(closed, opened)
		}
		if f.compression != nil {
			f.compression.QueueFile(closed)
		}
	}
	if f.retention != nil {
		f.retention.Kick()
	}
}

func (f *FileAppender) reportError(source, dest, msg string, err error) {
	if f.errorHandler != nil {
		f.errorHandler(source, dest, msg, err)
	}
}
