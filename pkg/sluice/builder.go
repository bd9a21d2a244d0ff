package sluice

import (
	"io"
	"time"

	"github.com/wayneeseguin/sluice/pkg/backends"
	"github.com/wayneeseguin/sluice/pkg/features"
	"github.com/wayneeseguin/sluice/pkg/formatters"
	"github.com/wayneeseguin/sluice/pkg/types"
)

// Builder assembles an engine through chained WithX calls. The first
// configuration mistake sticks: later calls become no-ops and Build
// returns the error, so call sites check one error at the end.
//
//	logger, err := sluice.NewBuilder().
//		WithLevel(types.LevelDebug).
//		WithFileAppender("app", "/var/log/app.log",
//			sluice.WithRotation(features.RotateDay),
//			sluice.WithRetention(30*24*time.Hour)).
//		WithConsoleAppender("console").
//		WithRoute("server.http", "app", types.LevelInfo).
//		Build()
type Builder struct {
	level         types.Level
	channelSize   int
	tag           string
	captureCaller bool
	dropReport    time.Duration
	formatter     types.Formatter
	rootName      string
	routes        []types.Route
	errorHandler  ErrorHandler
	specs         []appenderSpec

	// clock overrides every constructed component's wall clock; set by
	// tests in this package.
	clock func() time.Time

	err error
}

type appenderSpec struct {
	name  string
	kind  string
	path  string
	build func(clock func() time.Time) (types.Appender, error)
}

// NewBuilder returns a builder loaded with the defaults: Info level,
// text format, caller capture on, channel size from the environment,
// drop reports once per second.
func NewBuilder() *Builder {
	return &Builder{
		level:         types.LevelInfo,
		channelSize:   defaultChannelSize(),
		tag:           DefaultTag,
		captureCaller: true,
		dropReport:    DefaultDropReportInterval,
	}
}

// WithLevel sets the default level threshold, applied to records no
// route claims.
func (b *Builder) WithLevel(level types.Level) *Builder {
	if b.err != nil {
		return b
	}
	if level < types.LevelTrace || level > types.LevelError {
		b.err = configErrorf("level", int(level), "level out of range")
		return b
	}
	b.level = level
	return b
}

// WithChannelSize sets the dispatch channel capacity.
func (b *Builder) WithChannelSize(size int) *Builder {
	if b.err != nil {
		return b
	}
	if size <= 0 {
		b.err = configErrorf("channel_size", size, "channel size must be positive")
		return b
	}
	b.channelSize = size
	return b
}

// WithTag sets the root handle's thread-style label.
func (b *Builder) WithTag(tag string) *Builder {
	if b.err != nil {
		return b
	}
	if tag == "" {
		b.err = configErrorf("tag", nil, "tag cannot be empty")
		return b
	}
	b.tag = tag
	return b
}

// WithoutCaller disables call-site capture. Records lose their
// file:line column and rate-limit keys degrade to the target alone.
func (b *Builder) WithoutCaller() *Builder {
	if b.err != nil {
		return b
	}
	b.captureCaller = false
	return b
}

// WithDropReportInterval sets the minimum spacing between the worker's
// synthesized channel-full drop reports. Zero disables them.
func (b *Builder) WithDropReportInterval(d time.Duration) *Builder {
	if b.err != nil {
		return b
	}
	if d < 0 {
		b.err = configErrorf("drop_report_interval", d, "interval cannot be negative")
		return b
	}
	b.dropReport = d
	return b
}

// WithFormatter sets the formatter used for every appender.
func (b *Builder) WithFormatter(f types.Formatter) *Builder {
	if b.err != nil {
		return b
	}
	if f == nil {
		b.err = configErrorf("formatter", nil, "formatter cannot be nil")
		return b
	}
	b.formatter = f
	return b
}

// WithText selects the default text line format.
func (b *Builder) WithText() *Builder {
	return b.WithFormatter(formatters.NewTextFormatter())
}

// WithJSON selects line-delimited JSON output.
func (b *Builder) WithJSON() *Builder {
	return b.WithFormatter(formatters.NewJSONFormatter())
}

// WithErrorHandler sets the handler receiving internal error events.
func (b *Builder) WithErrorHandler(handler ErrorHandler) *Builder {
	if b.err != nil {
		return b
	}
	b.errorHandler = handler
	return b
}

// WithRootAppender names the appender that receives records no route
// claims. Defaults to the first registered appender.
func (b *Builder) WithRootAppender(name string) *Builder {
	if b.err != nil {
		return b
	}
	b.rootName = name
	return b
}

// WithRoute binds a module-path prefix to a named appender with a
// minimum level. Longer prefixes win; between equal prefixes the later
// route wins.
func (b *Builder) WithRoute(prefix, appender string, level types.Level) *Builder {
	if b.err != nil {
		return b
	}
	b.routes = append(b.routes, types.Route{Prefix: prefix, Appender: appender, Level: level})
	return b
}

// FileOption adjusts one file appender registered through
// WithFileAppender.
type FileOption func(*backends.FileOptions)

// WithRotation enables wall-clock rotation at the given granularity.
func WithRotation(policy features.RotationPolicy) FileOption {
	return func(o *backends.FileOptions) {
		o.Rotation = policy
	}
}

// WithRetention removes rotated files once strictly older than window.
// Takes effect only together with WithRotation.
func WithRetention(window time.Duration) FileOption {
	return func(o *backends.FileOptions) {
		o.Retention = window
	}
}

// WithCompression gzips completed files after rotation using the given
// number of workers.
func WithCompression(workers int) FileOption {
	return func(o *backends.FileOptions) {
		o.Compress = true
		o.CompressWorkers = workers
	}
}

// WithBufferSize overrides the appender's write buffer size.
func WithBufferSize(size int) FileOption {
	return func(o *backends.FileOptions) {
		o.BufferSize = size
	}
}

// WithoutLock skips the advisory lock guarding the appender's path.
func WithoutLock() FileOption {
	return func(o *backends.FileOptions) {
		o.DisableLock = true
	}
}

// WithFileAppender registers a rotating file appender under name.
func (b *Builder) WithFileAppender(name, path string, opts ...FileOption) *Builder {
	if b.err != nil {
		return b
	}
	if path == "" {
		b.err = configErrorf("appender", name, "file appender path cannot be empty")
		return b
	}
	if !b.claimName(name) {
		return b
	}
	b.specs = append(b.specs, appenderSpec{
		name: name,
		kind: "file",
		path: path,
		build: func(clock func() time.Time) (types.Appender, error) {
			var fo backends.FileOptions
			for _, opt := range opts {
				opt(&fo)
			}
			fo.Now = clock
			return backends.NewFileAppender(path, fo)
		},
	})
	return b
}

// WithSizeAppender registers a size-rotating file appender under name.
func (b *Builder) WithSizeAppender(name, path string, opts backends.SizeOptions) *Builder {
	if b.err != nil {
		return b
	}
	if path == "" {
		b.err = configErrorf("appender", name, "size appender path cannot be empty")
		return b
	}
	if !b.claimName(name) {
		return b
	}
	b.specs = append(b.specs, appenderSpec{
		name: name,
		kind: "size",
		path: path,
		build: func(func() time.Time) (types.Appender, error) {
			return backends.NewSizeFileAppender(path, opts), nil
		},
	})
	return b
}

// WithConsoleAppender registers a stderr appender under name.
func (b *Builder) WithConsoleAppender(name string) *Builder {
	if b.err != nil {
		return b
	}
	if !b.claimName(name) {
		return b
	}
	b.specs = append(b.specs, appenderSpec{
		name: name,
		kind: "console",
		build: func(func() time.Time) (types.Appender, error) {
			return backends.NewConsoleAppender(), nil
		},
	})
	return b
}

// WithStdoutAppender registers a stdout appender under name.
func (b *Builder) WithStdoutAppender(name string) *Builder {
	if b.err != nil {
		return b
	}
	if !b.claimName(name) {
		return b
	}
	b.specs = append(b.specs, appenderSpec{
		name: name,
		kind: "console",
		build: func(func() time.Time) (types.Appender, error) {
			return backends.NewStdoutAppender(), nil
		},
	})
	return b
}

// WithWriterAppender registers an appender wrapping w under name.
func (b *Builder) WithWriterAppender(name string, w io.Writer) *Builder {
	if b.err != nil {
		return b
	}
	if w == nil {
		b.err = configErrorf("appender", name, "writer cannot be nil")
		return b
	}
	if !b.claimName(name) {
		return b
	}
	b.specs = append(b.specs, appenderSpec{
		name: name,
		kind: "writer",
		build: func(func() time.Time) (types.Appender, error) {
			return backends.NewWriterAppender(w), nil
		},
	})
	return b
}

// claimName rejects empty and duplicate appender names before any file
// is opened, so a bad name never leaves a stray lock behind.
func (b *Builder) claimName(name string) bool {
	if name == "" {
		b.err = configErrorf("appender", nil, "appender name cannot be empty")
		return false
	}
	for _, spec := range b.specs {
		if spec.name == name {
			b.err = configErrorf("appender", name, "duplicate appender name")
			return false
		}
	}
	return true
}

// Build validates the accumulated configuration, constructs the
// appenders and starts the engine. On any failure every appender built
// so far is closed again, so no file handles or locks leak.
func (b *Builder) Build() (*Sluice, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.specs) == 0 {
		return nil, configErrorf("appenders", nil, "at least one appender is required")
	}

	built := make([]builtAppender, 0, len(b.specs))
	for _, spec := range b.specs {
		app, err := spec.build(b.clock)
		if err != nil {
			for _, a := range built {
				_ = a.app.Close()
			}
			return nil, &ConfigError{Field: "appender", Value: spec.name, Err: err}
		}
		built = append(built, builtAppender{name: spec.name, kind: spec.kind, path: spec.path, app: app})
	}

	return newEngine(&engineOptions{
		level:         b.level,
		channelSize:   b.channelSize,
		tag:           b.tag,
		captureCaller: b.captureCaller,
		dropReport:    b.dropReport,
		formatter:     b.formatter,
		appenders:     built,
		rootName:      b.rootName,
		routes:        b.routes,
		errorHandler:  b.errorHandler,
		now:           b.clock,
	})
}
