// Package sluice provides an asynchronous, low-latency logging engine
// for Go applications. Producers hand records to a bounded channel with
// a single non-blocking send; one dispatch worker performs all
// formatting, rate limiting, routing, rotation and file I/O, so the
// hot path never takes a lock shared with the consumer and never
// touches a file.
//
// Key Features:
//
//   - Non-blocking producers: a full channel drops the record and
//     returns ErrChannelFull instead of stalling the caller
//   - Per-call-site rate limiting with suppressed-record counts
//   - Longest-prefix routing of dotted module paths to named appenders
//   - Time-based file rotation (minute through year) with datetime
//     tokens in rotated names
//   - Retention windows that prune rotated files past a cutoff
//   - gzip compression of completed files (klauspost/compress)
//   - Process-safe file access via Unix advisory locks (flock)
//   - Degraded mode: file failures fall back to stderr and recover at
//     the next rotation boundary
//   - Drop self-reporting: the worker logs how many records the
//     overflow discarded, rate-limited to one line per interval
//   - log/slog handler bridge
//
// Basic Usage:
//
//	logger, err := sluice.New("/var/log/app/current.log")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer logger.Close()
//
//	logger.Infof("started pid=%d", os.Getpid())
//	logger.Named("server.http").Warnf("slow request: %s", req.URL)
//
// Using the Builder:
//
//	logger, err := sluice.NewBuilder().
//		WithLevel(sluice.LevelDebug).
//		WithJSON().
//		WithFileAppender("app", "/var/log/app/current.log",
//			sluice.WithRotation(features.RotateHour),
//			sluice.WithRetention(72*time.Hour),
//			sluice.WithCompression(1)).
//		WithFileAppender("audit", "/var/log/app/audit.log").
//		WithRoute("server.audit", "audit", sluice.LevelInfo).
//		WithErrorHandler(sluice.StderrErrorHandler).
//		Build()
//
// Module Paths and Routing:
//
// Loggers are cheap values. Named extends the module path one dotted
// segment at a time; routes claim the longest matching prefix on
// segment boundaries and carry their own level threshold:
//
//	root := logger.Named("server")       // target "server"
//	http := root.Named("http")           // target "server.http"
//	http.Tagged("worker-3").Infof("up")  // tag rides on the line
//
// Rate Limiting:
//
// Every returns a view that emits at most once per interval per call
// site. Records suppressed in between are counted and the count is
// attached to the next emitted line:
//
//	hot := logger.Every(time.Second)
//	for i := 0; i < 1e6; i++ {
//		hot.Warnf("queue depth %d", depth) // one line per second
//	}
//
// Performance Considerations:
//
// The producer path does no formatting: format strings and args travel
// to the worker, which renders them off the caller's goroutine. Args
// wrapped with types.Lazy are evaluated only if the record survives
// filtering and rate limiting. The channel capacity defaults to 4096
// and can be set with the SLUICE_CHANNEL_SIZE environment variable or
// WithChannelSize.
//
// Thread Safety:
//
// All engine and Logger methods are safe for concurrent use. The
// worker owns every appender and all mutable dispatch state, so no
// lock ordering exists to get wrong.
//
// Process Safety:
//
// File appenders take a flock advisory lock on path+".lock" so two
// engines do not interleave writes in the same file; a held lock
// surfaces as ErrPathLocked at build time. WithoutLock opts out.
//
// Error Handling:
//
// Internal failures never panic and never block logging. They are
// counted and handed to the error handler as ErrorEvent values:
//
//	logger.SetErrorHandler(func(ev sluice.ErrorEvent) {
//		fmt.Fprintf(os.Stderr, "[%s] %s: %v\n", ev.Level, ev.Source, ev.Err)
//	})
//
// Monitoring:
//
//	m := logger.Metrics()
//	fmt.Printf("dropped=%d suppressed=%d depth=%d/%d\n",
//		m.DroppedFull, m.Suppressed, m.QueueDepth, m.QueueCapacity)
//
// The pkg/exporters package bridges these snapshots to Prometheus.
package sluice
