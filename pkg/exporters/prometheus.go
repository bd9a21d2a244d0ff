// Package exporters bridges the engine's metrics snapshots to external
// monitoring systems.
package exporters

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wayneeseguin/sluice/pkg/sluice"
	"github.com/wayneeseguin/sluice/pkg/types"
)

const namespace = "sluice"

// PrometheusCollector exposes a logging engine's counters to a
// Prometheus registry. Each scrape reads one metrics snapshot, so
// registering the collector adds nothing to the logging hot path.
//
//	reg := prometheus.NewRegistry()
//	reg.MustRegister(exporters.NewPrometheusCollector(logger))
//
// ResetMetrics breaks the monotonicity Prometheus expects of counters;
// avoid it on engines that are scraped.
type PrometheusCollector struct {
	engine *sluice.Sluice

	logged           *prometheus.Desc
	droppedFull      *prometheus.Desc
	suppressed       *prometheus.Desc
	filtered         *prometheus.Desc
	lostOnShutdown   *prometheus.Desc
	queueDepth       *prometheus.Desc
	queueCapacity    *prometheus.Desc
	rotations        *prometheus.Desc
	retentionDeleted *prometheus.Desc
	compressed       *prometheus.Desc
	writes           *prometheus.Desc
	bytesWritten     *prometheus.Desc
	maxWriteTime     *prometheus.Desc
	errors           *prometheus.Desc

	appenderWrites    *prometheus.Desc
	appenderBytes     *prometheus.Desc
	appenderRotations *prometheus.Desc
}

// NewPrometheusCollector creates a collector over the engine.
func NewPrometheusCollector(engine *sluice.Sluice) *PrometheusCollector {
	name := func(s string) string { return prometheus.BuildFQName(namespace, "", s) }
	return &PrometheusCollector{
		engine: engine,

		logged: prometheus.NewDesc(name("records_logged_total"),
			"Records handed to appenders, by level.", []string{"level"}, nil),
		droppedFull: prometheus.NewDesc(name("records_dropped_total"),
			"Records dropped because the dispatch channel was full.", nil, nil),
		suppressed: prometheus.NewDesc(name("records_suppressed_total"),
			"Records withheld by the call-site rate limiter.", nil, nil),
		filtered: prometheus.NewDesc(name("records_filtered_total"),
			"Records below their destination's level threshold.", nil, nil),
		lostOnShutdown: prometheus.NewDesc(name("records_lost_on_shutdown_total"),
			"Records still queued when the worker stopped.", nil, nil),
		queueDepth: prometheus.NewDesc(name("queue_depth"),
			"Records currently waiting in the dispatch channel.", nil, nil),
		queueCapacity: prometheus.NewDesc(name("queue_capacity"),
			"Capacity of the dispatch channel.", nil, nil),
		rotations: prometheus.NewDesc(name("rotations_total"),
			"Completed file rotations.", nil, nil),
		retentionDeleted: prometheus.NewDesc(name("retention_deleted_total"),
			"Rotated files removed by the retention scanner.", nil, nil),
		compressed: prometheus.NewDesc(name("compressed_files_total"),
			"Rotated files gzipped by the compression pool.", nil, nil),
		writes: prometheus.NewDesc(name("writes_total"),
			"Appender write calls.", nil, nil),
		bytesWritten: prometheus.NewDesc(name("bytes_written_total"),
			"Bytes handed to appenders.", nil, nil),
		maxWriteTime: prometheus.NewDesc(name("max_write_seconds"),
			"Longest single appender write observed.", nil, nil),
		errors: prometheus.NewDesc(name("errors_total"),
			"Internal errors, by source subsystem.", []string{"source"}, nil),

		appenderWrites: prometheus.NewDesc(name("appender_writes_total"),
			"Write calls per appender.", []string{"appender"}, nil),
		appenderBytes: prometheus.NewDesc(name("appender_bytes_written_total"),
			"Bytes written per appender.", []string{"appender"}, nil),
		appenderRotations: prometheus.NewDesc(name("appender_rotations_total"),
			"Rotations per appender.", []string{"appender"}, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *PrometheusCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.logged
	ch <- c.droppedFull
	ch <- c.suppressed
	ch <- c.filtered
	ch <- c.lostOnShutdown
	ch <- c.queueDepth
	ch <- c.queueCapacity
	ch <- c.rotations
	ch <- c.retentionDeleted
	ch <- c.compressed
	ch <- c.writes
	ch <- c.bytesWritten
	ch <- c.maxWriteTime
	ch <- c.errors
	ch <- c.appenderWrites
	ch <- c.appenderBytes
	ch <- c.appenderRotations
}

// Collect implements prometheus.Collector.
func (c *PrometheusCollector) Collect(ch chan<- prometheus.Metric) {
	snap := c.engine.Metrics()

	for level, count := range snap.LoggedByLevel {
		ch <- prometheus.MustNewConstMetric(c.logged, prometheus.CounterValue,
			float64(count), strings.ToLower(types.Level(level).String()))
	}
	ch <- prometheus.MustNewConstMetric(c.droppedFull, prometheus.CounterValue, float64(snap.DroppedFull))
	ch <- prometheus.MustNewConstMetric(c.suppressed, prometheus.CounterValue, float64(snap.Suppressed))
	ch <- prometheus.MustNewConstMetric(c.filtered, prometheus.CounterValue, float64(snap.Filtered))
	ch <- prometheus.MustNewConstMetric(c.lostOnShutdown, prometheus.CounterValue, float64(snap.LostOnShutdown))
	ch <- prometheus.MustNewConstMetric(c.queueDepth, prometheus.GaugeValue, float64(snap.QueueDepth))
	ch <- prometheus.MustNewConstMetric(c.queueCapacity, prometheus.GaugeValue, float64(snap.QueueCapacity))
	ch <- prometheus.MustNewConstMetric(c.rotations, prometheus.CounterValue, float64(snap.Rotations))
	ch <- prometheus.MustNewConstMetric(c.retentionDeleted, prometheus.CounterValue, float64(snap.RetentionDeleted))
	ch <- prometheus.MustNewConstMetric(c.compressed, prometheus.CounterValue, float64(snap.Compressed))
	ch <- prometheus.MustNewConstMetric(c.writes, prometheus.CounterValue, float64(snap.WriteCount))
	ch <- prometheus.MustNewConstMetric(c.bytesWritten, prometheus.CounterValue, float64(snap.BytesWritten))
	ch <- prometheus.MustNewConstMetric(c.maxWriteTime, prometheus.GaugeValue, snap.MaxWriteTime.Seconds())

	for source, count := range snap.ErrorsBySource {
		ch <- prometheus.MustNewConstMetric(c.errors, prometheus.CounterValue, float64(count), source)
	}
	for _, app := range snap.Appenders {
		ch <- prometheus.MustNewConstMetric(c.appenderWrites, prometheus.CounterValue, float64(app.Writes), app.Name)
		ch <- prometheus.MustNewConstMetric(c.appenderBytes, prometheus.CounterValue, float64(app.BytesWritten), app.Name)
		ch <- prometheus.MustNewConstMetric(c.appenderRotations, prometheus.CounterValue, float64(app.Rotations), app.Name)
	}
}
