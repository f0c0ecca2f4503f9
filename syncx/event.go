package syncx

import (
	"context"
	"sync"
)

// Event is a one-shot flag tasks can wait on. Once set it stays set.
type Event struct {
	once sync.Once
	done chan struct{}
}

// NewEvent creates an unset Event.
func NewEvent() *Event {
	return &Event{done: make(chan struct{})}
}

// Set marks the event, waking all waiters. Idempotent.
func (e *Event) Set() {
	e.once.Do(func() { close(e.done) })
}

// IsSet reports whether the event has been set.
func (e *Event) IsSet() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

// Wait suspends until the event is set or ctx unwinds.
func (e *Event) Wait(ctx context.Context) error {
	select {
	case <-e.done:
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}
