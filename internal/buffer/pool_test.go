package buffer

import (
	"sync"
	"testing"
)

func TestNewBufferPool(t *testing.T) {
	pool := NewBufferPool()
	if pool == nil {
		t.Fatal("NewBufferPool() returned nil")
	}
	if pool.capacity != 512 {
		t.Errorf("default capacity = %d, want 512", pool.capacity)
	}
}

func TestNewBufferPoolWithCapacity(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
	}{
		{"small", 64},
		{"medium", 256},
		{"large", 1024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := NewBufferPoolWithCapacity(tt.capacity)
			buf := pool.Get()
			if buf.Cap() != tt.capacity {
				t.Errorf("buffer capacity = %d, want %d", buf.Cap(), tt.capacity)
			}
			pool.Put(buf)
		})
	}
}

func TestBufferPool_GetPut(t *testing.T) {
	pool := NewBufferPoolWithCapacity(256)

	buf := pool.Get()
	if buf == nil {
		t.Fatal("Get() returned nil")
	}
	if buf.Len() != 0 {
		t.Errorf("buffer length = %d, want 0", buf.Len())
	}

	buf.WriteString("test data")
	if buf.String() != "test data" {
		t.Errorf("buffer content = %q, want %q", buf.String(), "test data")
	}

	pool.Put(buf)

	// Recycled buffers come back reset.
	buf2 := pool.Get()
	if buf2.Len() != 0 {
		t.Errorf("recycled buffer length = %d, want 0", buf2.Len())
	}
}

func TestBufferPool_LargeBufferNotPooled(t *testing.T) {
	pool := NewBufferPool()

	buf := pool.Get()
	buf.Write(make([]byte, 33*1024))
	pool.Put(buf)

	buf2 := pool.Get()
	if buf2.Cap() > maxRetainedCap {
		t.Errorf("got oversized buffer from pool, capacity = %d", buf2.Cap())
	}
}

func TestBufferPool_PutNil(t *testing.T) {
	pool := NewBufferPool()
	// Should not panic
	pool.Put(nil)
}

func TestBufferPool_Concurrent(t *testing.T) {
	pool := NewBufferPoolWithCapacity(128)
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				buf := pool.Get()
				buf.WriteString("test")
				if buf.Len() < 4 {
					t.Errorf("goroutine %d: buffer write failed", id)
				}
				pool.Put(buf)
			}
		}(i)
	}

	wg.Wait()
}

func TestPackageLevelGetPut(t *testing.T) {
	buf := Get()
	if buf == nil {
		t.Fatal("Get() returned nil")
	}
	buf.WriteString("x")
	Put(buf)

	buf2 := Get()
	if buf2.Len() != 0 {
		t.Errorf("package pool returned dirty buffer, len = %d", buf2.Len())
	}
	Put(buf2)
}
