package backends

import (
	"gopkg.in/natefinch/lumberjack.v2"
)

// SizeOptions configures size-based rotation.
type SizeOptions struct {
	// MaxSizeMB is the size at which the active file is rotated.
	// Defaults to 100.
	MaxSizeMB int

	// MaxBackups caps how many rotated files are kept. Zero keeps all.
	MaxBackups int

	// MaxAgeDays removes rotated files older than this many days. Zero
	// keeps all.
	MaxAgeDays int

	// Compress gzips rotated files.
	Compress bool
}

// SizeFileAppender rotates by file size instead of wall-clock period,
// delegating the file juggling to lumberjack. It suits long-lived
// low-volume processes where calendar-period files would sit mostly
// empty. Rotated files follow lumberjack's own naming, not the datetime
// token scheme, so the retention scanner does not apply; use MaxBackups
// and MaxAgeDays instead.
type SizeFileAppender struct {
	logger *lumberjack.Logger
}

// NewSizeFileAppender creates a size-rotating appender at path.
func NewSizeFileAppender(path string, opts SizeOptions) *SizeFileAppender {
	if opts.MaxSizeMB <= 0 {
		opts.MaxSizeMB = 100
	}
	return &SizeFileAppender{
		logger: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
			LocalTime:  true,
		},
	}
}

func (s *SizeFileAppender) Write(p []byte) (int, error) {
	return s.logger.Write(p)
}

// Flush is a no-op; lumberjack writes through to the OS on every Write.
func (s *SizeFileAppender) Flush() error {
	return nil
}

func (s *SizeFileAppender) Close() error {
	return s.logger.Close()
}

// Rotate forces an immediate rotation regardless of size.
func (s *SizeFileAppender) Rotate() error {
	return s.logger.Rotate()
}
