package buffer

import (
	"bytes"
	"sync"
)

// maxRetainedCap is the largest buffer returned to the pool. Bigger
// buffers are dropped so one oversized record does not pin memory.
const maxRetainedCap = 4096

// BufferPool recycles byte buffers between formatter calls to keep the
// dispatch worker's steady-state allocation near zero.
type BufferPool struct {
	pool     sync.Pool
	capacity int
}

// NewBufferPool creates a pool with the default initial capacity.
func NewBufferPool() *BufferPool {
	return NewBufferPoolWithCapacity(512)
}

// NewBufferPoolWithCapacity creates a pool whose fresh buffers start with
// the given capacity.
func NewBufferPoolWithCapacity(capacity int) *BufferPool {
	bp := &BufferPool{capacity: capacity}
	bp.pool.New = func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, capacity))
	}
	return bp
}

// Get retrieves an empty buffer from the pool.
func (bp *BufferPool) Get() *bytes.Buffer {
	return bp.pool.Get().(*bytes.Buffer)
}

// Put resets the buffer and returns it to the pool. Oversized buffers
// are left for the GC.
func (bp *BufferPool) Put(buf *bytes.Buffer) {
	if buf == nil {
		return
	}
	buf.Reset()
	if buf.Cap() <= maxRetainedCap {
		bp.pool.Put(buf)
	}
}

var defaultPool = NewBufferPool()

// Get retrieves a buffer from the package-level pool.
func Get() *bytes.Buffer {
	return defaultPool.Get()
}

// Put returns a buffer to the package-level pool.
func Put(buf *bytes.Buffer) {
	defaultPool.Put(buf)
}
