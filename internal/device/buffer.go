package device

import (
	"context"
	"errors"
	"sync"
	"time"
)

// NoTimestamp marks a buffer time field as unset.
const NoTimestamp time.Duration = -1

// NoOffset marks a buffer offset as unset.
const NoOffset = ^uint64(0)

// ErrPoolClosed is returned by Acquire after Close.
var ErrPoolClosed = errors.New("buffer pool closed")

// Buffer is one frame travelling from the camera to a branch consumer.
type Buffer struct {
	Data      []byte
	Index     int
	PTS       time.Duration
	Duration  time.Duration
	Offset    uint64
	OffsetEnd uint64
}

// Reset clears the timing metadata before the buffer is reused.
func (b *Buffer) Reset() {
	b.PTS = NoTimestamp
	b.Duration = NoTimestamp
	b.Offset = NoOffset
	b.OffsetEnd = NoOffset
}

// BufferPool hands out frame buffers for one branch.
type BufferPool interface {
	Acquire(ctx context.Context) (*Buffer, error)
	Release(b *Buffer)
	// AcquireIndex is the running number of the most recent Acquire.
	AcquireIndex() uint64
	Size() int
	Close()
}

// PoolFactory builds the pool for a negotiated stream.
type PoolFactory func(cfg StreamConfig, count int) (BufferPool, error)

// MemoryPool is a fixed set of heap buffers handed out in rotation. Acquire
// blocks while every buffer is outstanding.
type MemoryPool struct {
	free   chan *Buffer
	size   int
	start  time.Time
	mu     sync.Mutex
	index  uint64
	closed bool
	done   chan struct{}
}

// NewMemoryPool allocates count buffers of frameSize bytes.
func NewMemoryPool(count, frameSize int) *MemoryPool {
	if count < 1 {
		count = 1
	}
	p := &MemoryPool{
		free:  make(chan *Buffer, count),
		size:  count,
		start: time.Now(),
		index: NoOffset,
		done:  make(chan struct{}),
	}
	for i := range count {
		b := &Buffer{Data: make([]byte, frameSize), Index: i}
		b.Reset()
		p.free <- b
	}
	return p
}

// NewMemoryPoolFactory returns a PoolFactory sizing frames from the stream.
func NewMemoryPoolFactory() PoolFactory {
	return func(cfg StreamConfig, count int) (BufferPool, error) {
		size := cfg.Size
		if size == 0 {
			size = cfg.Stride * cfg.Height
		}
		return NewMemoryPool(count, size), nil
	}
}

// Acquire returns the next free buffer stamped with its capture time.
func (p *MemoryPool) Acquire(ctx context.Context) (*Buffer, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.done:
		return nil, ErrPoolClosed
	case b := <-p.free:
		p.mu.Lock()
		p.index++
		p.mu.Unlock()
		b.Reset()
		b.PTS = time.Since(p.start)
		return b, nil
	}
}

// Release returns b to the pool.
func (p *MemoryPool) Release(b *Buffer) {
	if b == nil {
		return
	}
	select {
	case p.free <- b:
	default:
	}
}

// AcquireIndex implements BufferPool. It starts at zero on the first Acquire.
func (p *MemoryPool) AcquireIndex() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.index
}

// Size implements BufferPool.
func (p *MemoryPool) Size() int {
	return p.size
}

// Close wakes blocked Acquire calls.
func (p *MemoryPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.done)
	}
}
