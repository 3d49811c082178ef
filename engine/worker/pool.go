// Package worker runs CPU-bound jobs on a fixed number of goroutines so that model
// construction never competes with message intake for more than its share of CPU.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// ErrPanic wraps a panic recovered from a job.
var ErrPanic = errors.New("worker job panicked")

// Pool bounds how many jobs run at once.
type Pool struct {
	sem    *semaphore.Weighted
	size   int
	active atomic.Int64
	peak   atomic.Int64
}

// NewPool creates a pool running at most size jobs concurrently. A non-positive size
// falls back to the number of CPUs.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size)), size: size}
}

// Size returns the concurrency limit.
func (p *Pool) Size() int {
	return p.size
}

// Active returns the number of jobs currently running.
func (p *Pool) Active() int {
	return int(p.active.Load())
}

// Peak returns the highest number of jobs observed running at once.
func (p *Pool) Peak() int {
	return int(p.peak.Load())
}

type result[T any] struct {
	value T
	err   error
}

// Do runs fn on the pool and waits for its result. If ctx ends first Do returns the
// context error; the job still runs to completion and releases its slot.
func Do[T any](ctx context.Context, p *Pool, fn func() (T, error)) (T, error) {
	var zero T
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return zero, fmt.Errorf("worker: acquire slot: %w", err)
	}
	done := make(chan result[T], 1)
	go func() {
		defer p.sem.Release(1)
		p.enter()
		defer p.active.Add(-1)
		done <- run(fn)
	}()
	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (p *Pool) enter() {
	n := p.active.Add(1)
	for {
		peak := p.peak.Load()
		if n <= peak || p.peak.CompareAndSwap(peak, n) {
			return
		}
	}
}

func run[T any](fn func() (T, error)) (r result[T]) {
	defer func() {
		if rec := recover(); rec != nil {
			r = result[T]{err: fmt.Errorf("%w: %v", ErrPanic, rec)}
		}
	}()
	v, err := fn()
	return result[T]{value: v, err: err}
}
