package sluice

import (
	"context"

	"github.com/wayneeseguin/sluice/pkg/types"
)

// Flush blocks until every record enqueued before the call has been
// fully processed and every appender's buffers have been pushed to the
// OS. It is a true synchronization barrier: the channel is FIFO, so the
// barrier message cannot overtake records already queued, and the
// worker flushes all appenders before releasing it.
//
// Unlike event sends, the barrier send blocks when the channel is full;
// that is the point of calling Flush. Returns ErrClosed when shutdown
// has begun or completes while waiting.
func (s *Sluice) Flush() error {
	return s.FlushContext(context.Background())
}

// FlushContext is Flush bounded by a context.
func (s *Sluice) FlushContext(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}

	barrier := make(chan struct{})
	select {
	case s.msgChan <- types.Message{SyncDone: barrier}:
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-barrier:
		return nil
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close shuts the engine down: the worker drains everything already
// enqueued, emits pending rate-limit summaries, flushes and closes
// every appender, then exits. Records raced into the channel after
// shutdown began are drained and counted as lost. Close is idempotent
// and returns the aggregated appender close errors; sends after Close
// get ErrClosed.
func (s *Sluice) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)

		stopped := make(chan struct{})
		select {
		case s.msgChan <- types.Message{Shutdown: stopped}:
			<-stopped
		case <-s.done:
			// Worker already gone.
		}
		s.workerWg.Wait()

		s.drainLeftovers()
		s.closeErr = aggregateCloseErrors(s.closeErrs)
	})
	return s.closeErr
}

// Shutdown is Close bounded by a context. The close keeps running in
// the background when the context expires first; a second call simply
// waits for it.
func (s *Sluice) Shutdown(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		done <- s.Close()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return NewError(ErrCodeShutdownTimeout, "shutdown", "", ctx.Err())
	}
}

// drainLeftovers empties whatever raced into the channel behind the
// shutdown message. Records are counted as lost-on-shutdown; barrier
// waiters are released (their Flush calls already return ErrClosed via
// the done channel).
func (s *Sluice) drainLeftovers() {
	var lost uint64
	for {
		select {
		case msg := <-s.msgChan:
			switch {
			case msg.Record != nil:
				lost++
			case msg.SyncDone != nil:
				close(msg.SyncDone)
			case msg.Shutdown != nil:
				close(msg.Shutdown)
			}
		default:
			if lost > 0 {
				s.collector.TrackLostOnShutdown(lost)
				s.reportError(ErrorEvent{
					Source:  "transport",
					Message: "records lost at shutdown",
					Err:     errLostRecords(lost),
					Level:   ErrorLevelWarn,
				})
			}
			return
		}
	}
}
