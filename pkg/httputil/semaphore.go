package httputil

import (
	"context"
	"sync/atomic"
)

// Semaphore bounds concurrent fire-and-forget work, mainly async event
// delivery. Dropping under pressure is preferable to unbounded goroutine
// growth inside the enforcement path.
type Semaphore struct {
	sem     chan struct{}
	dropped atomic.Int64
}

// NewSemaphore creates a semaphore with the given capacity.
func NewSemaphore(capacity int) *Semaphore {
	if capacity <= 0 {
		capacity = 100
	}
	return &Semaphore{sem: make(chan struct{}, capacity)}
}

// TryAcquire takes a slot without blocking. False means at capacity; the
// caller should drop the work and move on.
func (s *Semaphore) TryAcquire() bool {
	select {
	case s.sem <- struct{}{}:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// Acquire blocks for a slot until the context is done.
func (s *Semaphore) Acquire(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a slot. Safe to call once per successful acquire.
func (s *Semaphore) Release() {
	select {
	case <-s.sem:
	default:
	}
}

// DroppedCount reports how many operations were rejected at capacity.
func (s *Semaphore) DroppedCount() int64 {
	return s.dropped.Load()
}

// InUse reports the number of held slots.
func (s *Semaphore) InUse() int {
	return len(s.sem)
}
