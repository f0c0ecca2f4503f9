package syncx

import "context"

// Queue is a bounded FIFO queue. Put suspends while the queue is full and
// Get while it is empty. A capacity of zero makes every Put rendezvous
// with a Get.
type Queue[T any] struct {
	ch chan T
}

// NewQueue creates a queue holding at most capacity items.
func NewQueue[T any](capacity int) *Queue[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Queue[T]{ch: make(chan T, capacity)}
}

// Put appends v, suspending while the queue is full.
func (q *Queue[T]) Put(ctx context.Context, v T) error {
	select {
	case q.ch <- v:
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}

// Get removes and returns the oldest item, suspending while empty.
func (q *Queue[T]) Get(ctx context.Context) (T, error) {
	select {
	case v := <-q.ch:
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, context.Cause(ctx)
	}
}

// TryPut appends v without suspending, reporting success.
func (q *Queue[T]) TryPut(v T) bool {
	select {
	case q.ch <- v:
		return true
	default:
		return false
	}
}

// TryGet removes the oldest item without suspending.
func (q *Queue[T]) TryGet() (T, bool) {
	select {
	case v := <-q.ch:
		return v, true
	default:
		var zero T
		return zero, false
	}
}

// Len returns the number of buffered items.
func (q *Queue[T]) Len() int { return len(q.ch) }

// Cap returns the queue's capacity.
func (q *Queue[T]) Cap() int { return cap(q.ch) }
