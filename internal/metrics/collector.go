package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector aggregates runtime counters for the logging engine.
// Producers and the worker goroutine both touch it, so every counter is
// atomic; snapshots read without stopping writers.
type Collector struct {
	loggedByLevel sync.Map // map[int]*atomic.Uint64

	// Records that never reached an appender.
	droppedFull    uint64
	suppressed     uint64
	filtered       uint64
	lostOnShutdown uint64

	// File lifecycle.
	rotations        uint64
	retentionDeleted uint64
	compressed       uint64

	// Write path.
	writeCount     uint64
	bytesWritten   uint64
	totalWriteTime int64 // nanoseconds
	maxWriteTime   int64 // nanoseconds

	// Errors reported through the error handler.
	errorCount     uint64
	errorsBySource sync.Map // map[string]*atomic.Uint64
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Snapshot is a point-in-time view of the engine's counters.
type Snapshot struct {
	// Counts of records handed to appenders, keyed by level.
	LoggedByLevel map[int]uint64 `json:"logged_by_level"`

	// Records that never reached an appender.
	DroppedFull    uint64 `json:"dropped_full"`
	Suppressed     uint64 `json:"suppressed"`
	Filtered       uint64 `json:"filtered"`
	LostOnShutdown uint64 `json:"lost_on_shutdown"`

	// Channel occupancy at snapshot time.
	QueueDepth       int     `json:"queue_depth"`
	QueueCapacity    int     `json:"queue_capacity"`
	QueueUtilization float64 `json:"queue_utilization"`

	// File lifecycle.
	Rotations        uint64 `json:"rotations"`
	RetentionDeleted uint64 `json:"retention_deleted"`
	RetentionErrors  uint64 `json:"retention_errors"`
	Compressed       uint64 `json:"compressed"`

	// Write path.
	WriteCount       uint64        `json:"write_count"`
	BytesWritten     uint64        `json:"bytes_written"`
	AverageWriteTime time.Duration `json:"average_write_time"`
	MaxWriteTime     time.Duration `json:"max_write_time"`

	// Errors reported through the error handler.
	ErrorCount     uint64            `json:"error_count"`
	ErrorsBySource map[string]uint64 `json:"errors_by_source"`

	// Per-appender detail.
	Appenders []AppenderMetrics `json:"appenders,omitempty"`
}

// AppenderMetrics describes one registered appender.
type AppenderMetrics struct {
	Name         string `json:"name"`
	Kind         string `json:"kind"`
	Path         string `json:"path,omitempty"`
	ActivePath   string `json:"active_path,omitempty"`
	Size         int64  `json:"size,omitempty"`
	Writes       uint64 `json:"writes"`
	BytesWritten uint64 `json:"bytes_written"`
	Rotations    uint64 `json:"rotations"`
}

// Snapshot builds a snapshot, folding in the channel occupancy and
// per-appender detail the collector cannot observe itself.
func (c *Collector) Snapshot(queueDepth, queueCapacity int, appenders []AppenderMetrics) Snapshot {
	snap := Snapshot{
		LoggedByLevel:    make(map[int]uint64),
		DroppedFull:      atomic.LoadUint64(&c.droppedFull),
		Suppressed:       atomic.LoadUint64(&c.suppressed),
		Filtered:         atomic.LoadUint64(&c.filtered),
		LostOnShutdown:   atomic.LoadUint64(&c.lostOnShutdown),
		QueueDepth:       queueDepth,
		QueueCapacity:    queueCapacity,
		Rotations:        atomic.LoadUint64(&c.rotations),
		RetentionDeleted: atomic.LoadUint64(&c.retentionDeleted),
		Compressed:       atomic.LoadUint64(&c.compressed),
		WriteCount:       atomic.LoadUint64(&c.writeCount),
		BytesWritten:     atomic.LoadUint64(&c.bytesWritten),
		ErrorCount:       atomic.LoadUint64(&c.errorCount),
		ErrorsBySource:   make(map[string]uint64),
		Appenders:        appenders,
	}

	if snap.QueueCapacity > 0 {
		snap.QueueUtilization = float64(snap.QueueDepth) / float64(snap.QueueCapacity)
	}

	c.loggedByLevel.Range(func(key, value interface{}) bool {
		if count := value.(*atomic.Uint64).Load(); count > 0 {
			snap.LoggedByLevel[key.(int)] = count
		}
		return true
	})
	c.errorsBySource.Range(func(key, value interface{}) bool {
		if count := value.(*atomic.Uint64).Load(); count > 0 {
			snap.ErrorsBySource[key.(string)] = count
		}
		return true
	})
	snap.RetentionErrors = snap.ErrorsBySource["retention"]

	if snap.WriteCount > 0 {
		snap.AverageWriteTime = time.Duration(atomic.LoadInt64(&c.totalWriteTime)) / time.Duration(snap.WriteCount)
	}
	snap.MaxWriteTime = time.Duration(atomic.LoadInt64(&c.maxWriteTime))

	return snap
}

// Reset zeroes all counters.
func (c *Collector) Reset() {
	c.loggedByLevel.Range(func(key, value interface{}) bool {
		value.(*atomic.Uint64).Store(0)
		return true
	})
	c.errorsBySource.Range(func(key, value interface{}) bool {
		value.(*atomic.Uint64).Store(0)
		return true
	})

	atomic.StoreUint64(&c.droppedFull, 0)
	atomic.StoreUint64(&c.suppressed, 0)
	atomic.StoreUint64(&c.filtered, 0)
	atomic.StoreUint64(&c.lostOnShutdown, 0)
	atomic.StoreUint64(&c.rotations, 0)
	atomic.StoreUint64(&c.retentionDeleted, 0)
	atomic.StoreUint64(&c.compressed, 0)
	atomic.StoreUint64(&c.writeCount, 0)
	atomic.StoreUint64(&c.bytesWritten, 0)
	atomic.StoreInt64(&c.totalWriteTime, 0)
	atomic.StoreInt64(&c.maxWriteTime, 0)
	atomic.StoreUint64(&c.errorCount, 0)
}

// TrackLogged counts a record handed to an appender.
func (c *Collector) TrackLogged(level int) {
	val, _ := c.loggedByLevel.LoadOrStore(level, &atomic.Uint64{})
	val.(*atomic.Uint64).Add(1)
}

// TrackDroppedFull counts a record rejected because the channel was full.
func (c *Collector) TrackDroppedFull() {
	atomic.AddUint64(&c.droppedFull, 1)
}

// TrackSuppressed counts a record withheld by the rate limiter.
func (c *Collector) TrackSuppressed() {
	atomic.AddUint64(&c.suppressed, 1)
}

// TrackFiltered counts a record below its destination's level threshold.
func (c *Collector) TrackFiltered() {
	atomic.AddUint64(&c.filtered, 1)
}

// TrackLostOnShutdown counts records abandoned in the channel at close.
func (c *Collector) TrackLostOnShutdown(n uint64) {
	atomic.AddUint64(&c.lostOnShutdown, n)
}

// TrackRotation counts a completed file rotation.
func (c *Collector) TrackRotation() {
	atomic.AddUint64(&c.rotations, 1)
}

// TrackRetentionDelete counts a file removed by the retention scanner.
func (c *Collector) TrackRetentionDelete() {
	atomic.AddUint64(&c.retentionDeleted, 1)
}

// TrackCompressed counts a rotated file the compression pool finished.
func (c *Collector) TrackCompressed() {
	atomic.AddUint64(&c.compressed, 1)
}

// TrackWrite records one appender write.
func (c *Collector) TrackWrite(bytes int64, duration time.Duration) {
	if bytes > 0 {
		atomic.AddUint64(&c.bytesWritten, uint64(bytes))
	}
	atomic.AddUint64(&c.writeCount, 1)
	atomic.AddInt64(&c.totalWriteTime, int64(duration))

	for {
		oldMax := atomic.LoadInt64(&c.maxWriteTime)
		if int64(duration) <= oldMax {
			break
		}
		if atomic.CompareAndSwapInt64(&c.maxWriteTime, oldMax, int64(duration)) {
			break
		}
	}
}

// TrackError counts an error reported through the error handler.
func (c *Collector) TrackError(source string) {
	atomic.AddUint64(&c.errorCount, 1)
	val, _ := c.errorsBySource.LoadOrStore(source, &atomic.Uint64{})
	val.(*atomic.Uint64).Add(1)
}

// LoggedCount returns the number of records logged at level.
func (c *Collector) LoggedCount(level int) uint64 {
	if val, ok := c.loggedByLevel.Load(level); ok {
		return val.(*atomic.Uint64).Load()
	}
	return 0
}

// ErrorCount returns the total error count.
func (c *Collector) ErrorCount() uint64 {
	return atomic.LoadUint64(&c.errorCount)
}

// ErrorCountBySource returns the error count for one source.
func (c *Collector) ErrorCountBySource(source string) uint64 {
	if val, ok := c.errorsBySource.Load(source); ok {
		return val.(*atomic.Uint64).Load()
	}
	return 0
}
