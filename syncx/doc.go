// Package syncx provides synchronization primitives for sharing state
// between tasks: Lock, Semaphore, Event, Condition, and a bounded Queue.
// Every blocking operation takes a context so it participates in scope
// cancellation; call sites stay uniform even when an operation happens to
// resolve without suspending.
package syncx
