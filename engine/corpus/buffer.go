package corpus

import (
	"context"
	"errors"
	"sync"
)

// ErrBufferClosed is returned by Put after Close.
var ErrBufferClosed = errors.New("sample buffer closed")

// Buffer is a bounded FIFO of units waiting to be trained on. Producers are expected
// to trigger a training cycle when Full reports true; Put only blocks when they don't.
type Buffer struct {
	mu       sync.Mutex
	units    []TextUnit
	capacity int
	space    chan struct{}
	closed   bool
}

// NewBuffer creates a buffer holding at most capacity units. Capacities below one
// are raised to one.
func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{
		units:    make([]TextUnit, 0, capacity),
		capacity: capacity,
		space:    make(chan struct{}),
	}
}

// Put appends unit, waiting for a drain while the buffer is at capacity.
func (b *Buffer) Put(ctx context.Context, unit TextUnit) error {
	for {
		b.mu.Lock()
		if b.closed {
			b.mu.Unlock()
			return ErrBufferClosed
		}
		if len(b.units) < b.capacity {
			b.units = append(b.units, unit)
			b.mu.Unlock()
			return nil
		}
		wait := b.space
		b.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// DrainAll removes and returns every queued unit in arrival order.
func (b *Buffer) DrainAll() []TextUnit {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.units) == 0 {
		return nil
	}
	batch := b.units
	b.units = make([]TextUnit, 0, b.capacity)
	if !b.closed {
		close(b.space)
		b.space = make(chan struct{})
	}
	return batch
}

// Size is a best-effort count of queued units.
func (b *Buffer) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.units)
}

// Cap returns the configured capacity.
func (b *Buffer) Cap() int {
	return b.capacity
}

// Full reports whether the buffer has reached capacity.
func (b *Buffer) Full() bool {
	return b.Size() >= b.capacity
}

// Close rejects further puts and wakes blocked producers. Queued units stay
// drainable.
func (b *Buffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.space)
}
