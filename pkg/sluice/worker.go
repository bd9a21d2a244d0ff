package sluice

import (
	"fmt"
	"time"

	"github.com/wayneeseguin/sluice/pkg/types"
)

// DropReportTarget is the module path of the records the worker
// synthesizes to report channel-full drops.
const DropReportTarget = "sluice"

// worker is the single dispatch goroutine. It owns the rate limiter,
// the router and every appender: all formatting, rate-limit
// bookkeeping, routing, rotation and I/O happen here, which is what
// keeps the producer side down to one channel send. The loop ends only
// through a Shutdown message.
func (s *Sluice) worker() {
	defer s.workerWg.Done()
	defer close(s.done)

	for {
		msg := <-s.msgChan
		switch {
		case msg.Record != nil:
			s.safeProcess(msg.Record)
			s.maybeReportDrops(false)

		case msg.SyncDone != nil:
			s.maybeReportDrops(false)
			s.flushAll()
			close(msg.SyncDone)

		case msg.Shutdown != nil:
			s.terminate()
			close(msg.Shutdown)
			return
		}
	}
}

// safeProcess shields the loop from a panicking formatter or lazy
// argument. The record is lost but the worker survives; only the
// Shutdown transition may end it.
func (s *Sluice) safeProcess(rec *types.Record) {
	defer func() {
		if r := recover(); r != nil {
			s.reportError(ErrorEvent{
				Source:  "panic",
				Path:    rec.Target,
				Message: "panic while processing record",
				Err:     fmt.Errorf("%v", r),
				Level:   ErrorLevelCritical,
			})
		}
	}()
	s.processRecord(rec)
}

// processRecord runs one record through the pipeline: route, gate,
// format, write. Routing comes first so records below their route's
// threshold vanish without touching limiter state.
func (s *Sluice) processRecord(rec *types.Record) {
	now := s.now()

	name, ok := s.router.Resolve(rec.Target, rec.Level, types.Level(s.level.Load()))
	if !ok {
		s.collector.TrackFiltered()
		return
	}

	emit, suppressed := s.limiter.Allow(rec, now)
	if !emit {
		s.collector.TrackSuppressed()
		return
	}
	rec.Suppressed = suppressed

	s.writeRecord(s.appenders[name], rec, now)
}

// writeRecord formats rec and hands the bytes to the appender. Appender
// failures degrade the appender itself (file appenders fall back to
// stderr); here they are only counted and reported, never allowed to
// stop the loop.
func (s *Sluice) writeRecord(entry *appenderEntry, rec *types.Record, now time.Time) {
	data, err := s.formatter.Format(rec, now)
	if err != nil {
		s.reportError(ErrorEvent{
			Source:  "format",
			Path:    entry.name,
			Message: "format record",
			Err:     err,
			Level:   ErrorLevelMedium,
		})
		return
	}

	start := time.Now()
	n, err := entry.app.Write(data)
	elapsed := time.Since(start)

	s.collector.TrackWrite(int64(n), elapsed)
	entry.writes.Add(1)
	if n > 0 {
		entry.bytes.Add(uint64(n))
	}
	if err != nil {
		s.reportError(ErrorEvent{
			Source:  "write",
			Path:    entry.name,
			Message: "append record",
			Err:     err,
			Level:   ErrorLevelHigh,
		})
		return
	}
	s.collector.TrackLogged(int(rec.Level))
}

// maybeReportDrops synthesizes one warn record summarizing records
// dropped on full-channel sends since the last report. Reports are
// spaced by the configured interval; force waives the spacing for the
// final report during shutdown.
func (s *Sluice) maybeReportDrops(force bool) {
	if s.dropReportInterval <= 0 {
		return
	}
	total := s.dropped.Load()
	if total == s.reportedDrops {
		return
	}
	now := s.now()
	if !force && !s.lastDropReport.IsZero() && now.Sub(s.lastDropReport) < s.dropReportInterval {
		return
	}

	n := total - s.reportedDrops
	s.reportedDrops = total
	s.lastDropReport = now

	rec := &types.Record{
		Level:  types.LevelWarn,
		Target: DropReportTarget,
		Tag:    s.Logger.tag,
		Time:   now,
		Format: "dropped %d records since last report (%d total): channel full",
		Args:   []interface{}{n, total},
	}
	s.processRecord(rec)
}

// flushAll pushes every appender's buffers through to the OS. It backs
// both the Flush barrier and the shutdown drain.
func (s *Sluice) flushAll() {
	for _, name := range s.order {
		entry := s.appenders[name]
		if err := entry.app.Flush(); err != nil {
			s.reportError(ErrorEvent{
				Source:  "flush",
				Path:    entry.name,
				Message: "flush appender",
				Err:     err,
				Level:   ErrorLevelMedium,
			})
		}
	}
}

// terminate is the worker's final sequence. Everything enqueued ahead
// of the shutdown message has already been processed; what remains is
// to surface pending rate-limit summaries, report the last drops,
// flush, and close every appender. Close errors are kept for Close()
// to return after the worker is gone.
func (s *Sluice) terminate() {
	s.state.Store(int32(StateFlushing))

	for _, rec := range s.limiter.Drain() {
		s.safeProcessSummary(rec)
	}
	s.maybeReportDrops(true)
	s.flushAll()

	s.state.Store(int32(StateShuttingDown))
	for _, name := range s.order {
		entry := s.appenders[name]
		if err := entry.app.Close(); err != nil {
			s.closeErrs = append(s.closeErrs, NewError(ErrCodeAppenderClose, "close", entry.name, err))
			s.reportError(ErrorEvent{
				Source:  "close",
				Path:    entry.name,
				Message: "close appender",
				Err:     err,
				Level:   ErrorLevelHigh,
			})
		}
	}

	s.state.Store(int32(StateStopped))
}

// safeProcessSummary writes one drained rate-limit record, bypassing
// the limiter so the summary cannot be suppressed again.
func (s *Sluice) safeProcessSummary(rec *types.Record) {
	defer func() {
		if r := recover(); r != nil {
			s.reportError(ErrorEvent{
				Source:  "panic",
				Path:    rec.Target,
				Message: "panic while writing rate-limit summary",
				Err:     fmt.Errorf("%v", r),
				Level:   ErrorLevelCritical,
			})
		}
	}()

	name, ok := s.router.Resolve(rec.Target, rec.Level, types.Level(s.level.Load()))
	if !ok {
		s.collector.TrackFiltered()
		return
	}
	s.writeRecord(s.appenders[name], rec, s.now())
}
