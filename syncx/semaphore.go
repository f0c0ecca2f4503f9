package syncx

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Semaphore bounds concurrent access to a shared resource with n slots.
type Semaphore struct {
	sem  *semaphore.Weighted
	size int64
}

// NewSemaphore creates a semaphore with n slots. n must be positive.
func NewSemaphore(n int64) *Semaphore {
	if n <= 0 {
		panic("syncx: semaphore size must be positive")
	}
	return &Semaphore{sem: semaphore.NewWeighted(n), size: n}
}

// Acquire takes one slot, suspending while none is free.
func (s *Semaphore) Acquire(ctx context.Context) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		if cause := context.Cause(ctx); cause != nil {
			return cause
		}
		return err
	}
	return nil
}

// TryAcquire takes one slot without suspending, reporting success.
func (s *Semaphore) TryAcquire() bool {
	return s.sem.TryAcquire(1)
}

// Release returns one slot.
func (s *Semaphore) Release() {
	s.sem.Release(1)
}

// Size returns the total number of slots.
func (s *Semaphore) Size() int64 { return s.size }
