package syncx

import (
	"context"
	"sync"

	"github.com/gammazero/deque"
)

// Lock is a mutual-exclusion lock for tasks. Unlike sync.Mutex, Acquire is
// cancellable and waiters are served in FIFO order: Release hands the lock
// directly to the oldest waiter. The zero value is an unlocked Lock.
type Lock struct {
	mu      sync.Mutex
	locked  bool
	waiters deque.Deque[chan struct{}]
}

// Acquire takes the lock, suspending while another task holds it.
func (l *Lock) Acquire(ctx context.Context) error {
	l.mu.Lock()
	if !l.locked && l.waiters.Len() == 0 {
		l.locked = true
		l.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	l.waiters.PushBack(ch)
	l.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		l.mu.Lock()
		for i := 0; i < l.waiters.Len(); i++ {
			if l.waiters.At(i) == ch {
				l.waiters.Remove(i)
				l.mu.Unlock()
				return context.Cause(ctx)
			}
		}
		l.mu.Unlock()
		// The lock was handed to us concurrently with cancellation;
		// give it back so the next waiter is not starved.
		l.Release()
		return context.Cause(ctx)
	}
}

// TryAcquire takes the lock without suspending, reporting success.
func (l *Lock) TryAcquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locked || l.waiters.Len() > 0 {
		return false
	}
	l.locked = true
	return true
}

// Release releases the lock, waking the oldest waiter if any. Releasing an
// unheld Lock panics.
func (l *Lock) Release() {
	l.mu.Lock()
	if !l.locked {
		l.mu.Unlock()
		panic("syncx: Release of unlocked Lock")
	}
	if l.waiters.Len() > 0 {
		ch := l.waiters.PopFront()
		l.mu.Unlock()
		close(ch)
		return
	}
	l.locked = false
	l.mu.Unlock()
}

// Locked reports whether the lock is currently held.
func (l *Lock) Locked() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.locked
}
