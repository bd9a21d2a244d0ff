package features

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/gzip"
)

// CompressionManager gzips rotated log files in the background. The file
// appender queues each file it closes at a rotation boundary; a small
// worker pool compresses them to "<name>.gz" and removes the original.
// The active file is never queued, so compression runs entirely off the
// write path.
type CompressionManager struct {
	workers int
	queue   chan string
	wg      sync.WaitGroup

	mu                sync.Mutex
	started           bool
	errorHandler      func(source, dest, msg string, err error)
	compressedHandler func(path string)
}

// NewCompressionManager creates a manager with the given worker count.
// Worker counts below one are clamped to one.
func NewCompressionManager(workers int) *CompressionManager {
	if workers < 1 {
		workers = 1
	}
	return &CompressionManager{workers: workers}
}

// SetErrorHandler sets the handler notified about compression failures.
func (c *CompressionManager) SetErrorHandler(handler func(source, dest, msg string, err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errorHandler = handler
}

// SetCompressedHandler sets the callback invoked with each file's
// compressed path after a successful compression.
func (c *CompressionManager) SetCompressedHandler(handler func(path string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.compressedHandler = handler
}

// Start launches the worker pool.
func (c *CompressionManager) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return
	}
	c.started = true
	c.queue = make(chan string, 64)
	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			for path := range c.queue {
				if err := c.compressFile(path); err != nil {
					c.reportError("compress", path, "compress rotated log", err)
				}
			}
		}()
	}
}

// Stop drains the queue and waits for the workers to finish, so files
// queued before shutdown still end up compressed.
func (c *CompressionManager) Stop() {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return
	}
	c.started = false
	queue := c.queue
	c.queue = nil
	c.mu.Unlock()

	close(queue)
	c.wg.Wait()
}

// QueueFile schedules a rotated file for compression without blocking.
// A full queue skips the file; it stays on disk uncompressed and the
// retention scanner still matches it.
func (c *CompressionManager) QueueFile(path string) {
	c.mu.Lock()
	queue := c.queue
	c.mu.Unlock()
	if queue == nil {
		return
	}
	select {
	case queue <- path:
	default:
		c.reportError("compress", path, "compression queue full, leaving file uncompressed", nil)
	}
}

func (c *CompressionManager) reportError(source, dest, msg string, err error) {
	c.mu.Lock()
	handler := c.errorHandler
	c.mu.Unlock()
	if handler != nil {
		handler(source, dest, msg, err)
	}
}

func (c *CompressionManager) compressFile(path string) (err error) {
	cleanPath := filepath.Clean(path)
	if _, statErr := os.Stat(cleanPath); os.IsNotExist(statErr) {
		// Already compressed or removed by retention.
		return nil
	}

	compressedPath := cleanPath + ".gz"
	src, err := os.Open(cleanPath)
	if err != nil {
		return fmt.Errorf("opening source file: %w", err)
	}
	defer src.Close()

	dst, err := os.OpenFile(compressedPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("creating compressed file: %w", err)
	}

	gw := gzip.NewWriter(dst)
	if _, err = io.Copy(gw, src); err == nil {
		err = gw.Close()
	}
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(compressedPath)
		return fmt.Errorf("compressing %s: %w", cleanPath, err)
	}

	if err := os.Remove(cleanPath); err != nil {
		_ = os.Remove(compressedPath)
		return fmt.Errorf("removing original after compression: %w", err)
	}

	c.mu.Lock()
	handler := c.compressedHandler
	c.mu.Unlock()
	if handler != nil {
		handler(compressedPath)
	}
	return nil
}
