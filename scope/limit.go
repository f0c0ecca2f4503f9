package scope

import "context"

// Limiter bounds how many tasks of a group execute concurrently. Acquire
// is a suspension point: it blocks until a slot is free or ctx unwinds.
type Limiter interface {
	Acquire(ctx context.Context) error
	Release()
}

type chanLimiter struct {
	slots chan struct{}
}

func newChanLimiter(n int) Limiter {
	if n <= 0 {
		return nil
	}
	return &chanLimiter{slots: make(chan struct{}, n)}
}

func (l *chanLimiter) Acquire(ctx context.Context) error {
	select {
	case l.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}

func (l *chanLimiter) Release() {
	<-l.slots
}
