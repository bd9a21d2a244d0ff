package sluice

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/wayneeseguin/sluice/internal/metrics"
	"github.com/wayneeseguin/sluice/pkg/backends"
	"github.com/wayneeseguin/sluice/pkg/features"
	"github.com/wayneeseguin/sluice/pkg/formatters"
	"github.com/wayneeseguin/sluice/pkg/types"
)

// State is the lifecycle stage of the dispatch worker.
type State int32

const (
	// StateRunning is the normal dispatch loop
	StateRunning State = iota
	// StateFlushing is the shutdown drain: pending rate-limit summaries
	// are emitted and every appender is flushed
	StateFlushing
	// StateShuttingDown is the appender teardown
	StateShuttingDown
	// StateStopped means the worker goroutine has exited
	StateStopped
)

// String returns the lower-case name of the state.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateFlushing:
		return "flushing"
	case StateShuttingDown:
		return "shutting-down"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// appenderEntry is the worker's view of one registered appender. The
// appender itself is driven only by the worker; the counters are atomic
// so Metrics can read them from any goroutine.
type appenderEntry struct {
	name string
	kind string
	path string
	app  types.Appender

	writes     atomic.Uint64
	bytes      atomic.Uint64
	rotations  atomic.Uint64
	activePath atomic.Value // string
}

// builtAppender carries a constructed appender into the engine.
type builtAppender struct {
	name string
	kind string
	path string
	app  types.Appender
}

// engineOptions is the fully parsed configuration newEngine consumes.
// The Builder and Config layers both reduce to it.
type engineOptions struct {
	level         types.Level
	channelSize   int
	tag           string
	captureCaller bool
	dropReport    time.Duration
	formatter     types.Formatter
	appenders     []builtAppender
	rootName      string
	routes        []types.Route
	errorHandler  ErrorHandler
	now           func() time.Time
}

// Sluice is the logging engine: producers on any goroutine enqueue
// records through the embedded Logger view (or Log directly) with a
// single non-blocking channel send; one dispatch worker drains the
// channel and performs all formatting, rate limiting, routing, rotation
// and I/O. The worker's state (rate limiter, appender table, router) is
// confined to it, so the hot path takes no locks shared between
// producers and the consumer.
type Sluice struct {
	Logger // root producer view

	msgChan     chan types.Message
	channelSize int

	// level is the dynamic default threshold, applied to targets no
	// route claims. minRoute is the lowest route threshold, folded into
	// the producer-side fast path so a permissive route never starves.
	level     atomic.Int32
	minRoute  types.Level
	hasRoutes bool

	captureCaller bool

	// Worker-owned after start: the appender map and router are never
	// mutated again, the limiter only ever touched by the worker.
	appenders map[string]*appenderEntry
	order     []string
	router    *features.Router
	limiter   *features.RateLimiter
	formatter types.Formatter

	collector *metrics.Collector
	now       func() time.Time

	errorHandler atomic.Value // ErrorHandler

	// Transport-overflow accounting. Producers bump dropped; the worker
	// owns the reported counter and the report clock.
	dropReportInterval time.Duration
	dropped            atomic.Uint64
	reportedDrops      uint64
	lastDropReport     time.Time

	state    atomic.Int32
	closed   atomic.Bool
	done     chan struct{}
	workerWg sync.WaitGroup

	closeOnce sync.Once
	closeErr  error
	closeErrs []error // written by the worker during shutdown, read after Wait
}

// New creates an engine logging to a single file appender named "root"
// at path, with the text formatter, Info level and default settings.
//
//	logger, err := sluice.New("/var/log/app.log")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer logger.Close()
//	logger.Infof("started")
func New(path string) (*Sluice, error) {
	return NewBuilder().WithFileAppender("root", path).Build()
}

// NewWithConfig builds an engine from a Config, typically loaded from a
// YAML file and the environment via LoadConfig. All validation happens
// here, before the worker starts.
func NewWithConfig(cfg *Config) (*Sluice, error) {
	opts, err := cfg.compile()
	if err != nil {
		return nil, err
	}
	return newEngine(opts)
}

// newEngine assembles and starts an engine. It owns the appenders in
// opts from this point: on any construction error every already-built
// appender is closed so file locks are released.
func newEngine(opts *engineOptions) (*Sluice, error) {
	closeAll := func() {
		for _, a := range opts.appenders {
			_ = a.app.Close()
		}
	}

	if len(opts.appenders) == 0 {
		closeAll()
		return nil, configErrorf("appenders", nil, "at least one appender is required")
	}

	known := make(map[string]bool, len(opts.appenders))
	order := make([]string, 0, len(opts.appenders))
	table := make(map[string]*appenderEntry, len(opts.appenders))
	for _, a := range opts.appenders {
		if a.name == "" {
			closeAll()
			return nil, configErrorf("appender", nil, "appender name cannot be empty")
		}
		if known[a.name] {
			closeAll()
			return nil, configErrorf("appender", a.name, "duplicate appender name")
		}
		known[a.name] = true
		order = append(order, a.name)
		table[a.name] = &appenderEntry{name: a.name, kind: a.kind, path: a.path, app: a.app}
	}

	rootName := opts.rootName
	if rootName == "" {
		rootName = order[0]
	}

	router, err := features.NewRouter(rootName, opts.routes, known)
	if err != nil {
		closeAll()
		return nil, &ConfigError{Field: "routes", Err: err}
	}

	if opts.channelSize <= 0 {
		opts.channelSize = defaultChannelSize()
	}
	if opts.tag == "" {
		opts.tag = DefaultTag
	}
	if opts.formatter == nil {
		opts.formatter = formatters.NewTextFormatter()
	}
	if opts.now == nil {
		opts.now = time.Now
	}

	s := &Sluice{
		msgChan:            make(chan types.Message, opts.channelSize),
		channelSize:        opts.channelSize,
		captureCaller:      opts.captureCaller,
		appenders:          table,
		order:              order,
		router:             router,
		limiter:            features.NewRateLimiter(),
		formatter:          opts.formatter,
		collector:          metrics.NewCollector(),
		now:                opts.now,
		dropReportInterval: opts.dropReport,
		done:               make(chan struct{}),
	}
	s.level.Store(int32(opts.level))
	if min, ok := router.MinLevel(); ok {
		s.minRoute = min
		s.hasRoutes = true
	}
	s.Logger = Logger{eng: s, tag: opts.tag}

	handler := opts.errorHandler
	if handler == nil {
		handler = defaultErrorHandler()
	}
	s.errorHandler.Store(handler)

	for _, entry := range table {
		s.wireAppender(entry)
	}

	s.state.Store(int32(StateRunning))
	s.workerWg.Add(1)
	go s.worker()

	return s, nil
}

// wireAppender connects a file appender's maintenance callbacks to the
// engine's error handler and counters. Other appender kinds have no
// background machinery to wire.
func (s *Sluice) wireAppender(entry *appenderEntry) {
	fa, ok := entry.app.(*backends.FileAppender)
	if !ok {
		return
	}
	fa.SetErrorHandler(func(source, dest, msg string, err error) {
		s.reportError(ErrorEvent{
			Source:  source,
			Path:    dest,
			Message: msg,
			Err:     err,
			Level:   ErrorLevelWarn,
		})
	})
	fa.SetRotateHandler(func(closed, opened string) {
		s.collector.TrackRotation()
		entry.rotations.Add(1)
		entry.activePath.Store(opened)
	})
	fa.SetDeleteHandler(func(path string) {
		s.collector.TrackRetentionDelete()
	})
	fa.SetCompressedHandler(func(path string) {
		s.collector.TrackCompressed()
	})
	entry.activePath.Store(fa.ActivePath())
}

// SetLevel changes the default level threshold, applied to records no
// route claims. Safe to call at any time.
func (s *Sluice) SetLevel(level types.Level) {
	s.level.Store(int32(level))
}

// GetLevel returns the current default level threshold.
func (s *Sluice) GetLevel() types.Level {
	return types.Level(s.level.Load())
}

// IsLevelEnabled reports whether a record at level could reach any
// appender. It is the producer-side fast path: when false, the sugar
// methods skip caller capture and the channel send entirely. A route
// with a threshold below the default level keeps its level enabled
// here; the worker applies the exact per-route threshold.
func (s *Sluice) IsLevelEnabled(level types.Level) bool {
	min := types.Level(s.level.Load())
	if s.hasRoutes && s.minRoute < min {
		min = s.minRoute
	}
	return level >= min
}

// IsClosed reports whether shutdown has begun.
func (s *Sluice) IsClosed() bool {
	return s.closed.Load()
}

// State returns the dispatch worker's lifecycle stage.
func (s *Sluice) State() State {
	return State(s.state.Load())
}

// SetErrorHandler replaces the handler receiving internal error events.
// A nil handler silences them.
func (s *Sluice) SetErrorHandler(handler ErrorHandler) {
	if handler == nil {
		handler = SilentErrorHandler
	}
	s.errorHandler.Store(handler)
}

// reportError counts an internal failure and hands it to the configured
// handler. Safe from any goroutine.
func (s *Sluice) reportError(ev ErrorEvent) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	s.collector.TrackError(ev.Source)
	if h, ok := s.errorHandler.Load().(ErrorHandler); ok && h != nil {
		h(ev)
	}
}

// aggregateCloseErrors folds appender close failures into one error.
func aggregateCloseErrors(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return errors.Errorf("close: %v", errs)
	}
}
