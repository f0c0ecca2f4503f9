package syncx

import (
	"context"
	"sync"

	"github.com/gammazero/deque"
)

// Condition is a condition variable bound to a Lock. Waiters are woken in
// FIFO order. The lock must be held when calling Wait; Notify and
// NotifyAll may be called with or without it.
type Condition struct {
	lock    *Lock
	mu      sync.Mutex
	waiters deque.Deque[chan struct{}]
}

// NewCondition creates a condition variable using l, or a fresh Lock when
// l is nil.
func NewCondition(l *Lock) *Condition {
	if l == nil {
		l = new(Lock)
	}
	return &Condition{lock: l}
}

// L returns the condition's lock.
func (c *Condition) L() *Lock { return c.lock }

// Wait releases the lock, suspends until notified or ctx unwinds, and
// reacquires the lock before returning. The lock is reacquired even on
// cancellation, so the caller's release discipline stays intact.
func (c *Condition) Wait(ctx context.Context) error {
	ch := make(chan struct{})
	c.mu.Lock()
	c.waiters.PushBack(ch)
	c.mu.Unlock()

	c.lock.Release()

	var werr error
	select {
	case <-ch:
	case <-ctx.Done():
		c.mu.Lock()
		removed := false
		for i := 0; i < c.waiters.Len(); i++ {
			if c.waiters.At(i) == ch {
				c.waiters.Remove(i)
				removed = true
				break
			}
		}
		c.mu.Unlock()
		if !removed {
			// A notification raced with cancellation; pass it on so
			// no wakeup is lost.
			c.notify(1)
		}
		werr = context.Cause(ctx)
	}

	if err := c.lock.Acquire(context.WithoutCancel(ctx)); err != nil {
		return err
	}
	return werr
}

// Notify wakes up to n waiters.
func (c *Condition) Notify(n int) {
	c.notify(n)
}

// NotifyAll wakes every current waiter.
func (c *Condition) NotifyAll() {
	c.notify(-1)
}

func (c *Condition) notify(n int) {
	c.mu.Lock()
	if n < 0 {
		n = c.waiters.Len()
	}
	for ; n > 0 && c.waiters.Len() > 0; n-- {
		close(c.waiters.PopFront())
	}
	c.mu.Unlock()
}
