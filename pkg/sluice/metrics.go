package sluice

import (
	"github.com/wayneeseguin/sluice/internal/metrics"
)

// Metrics returns a point-in-time snapshot of the engine's counters:
// records logged by level, drops, suppressions, filter discards,
// rotations, retention deletes, compressions, write totals and
// per-appender activity. Safe from any goroutine at any time, including
// after Close.
func (s *Sluice) Metrics() metrics.Snapshot {
	apps := make([]metrics.AppenderMetrics, 0, len(s.order))
	for _, name := range s.order {
		entry := s.appenders[name]
		am := metrics.AppenderMetrics{
			Name:         entry.name,
			Kind:         entry.kind,
			Path:         entry.path,
			Writes:       entry.writes.Load(),
			BytesWritten: entry.bytes.Load(),
			Rotations:    entry.rotations.Load(),
		}
		if active, ok := entry.activePath.Load().(string); ok {
			am.ActivePath = active
		}
		apps = append(apps, am)
	}
	return s.collector.Snapshot(len(s.msgChan), s.channelSize, apps)
}

// ResetMetrics zeroes the engine-wide counters. Per-appender counters
// keep running; they mirror the lifetime of their files.
func (s *Sluice) ResetMetrics() {
	s.collector.Reset()
}
