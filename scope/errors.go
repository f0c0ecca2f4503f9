package scope

import (
	"context"
	"errors"
	"fmt"
	"runtime"
)

// ErrTimeout is the normalized error returned by FailAfter when its
// deadline fires, regardless of what the enclosed operation was doing.
var ErrTimeout = errors.New("timed out")

// ErrInactive is returned by Group.Spawn once the group has stopped
// accepting tasks (its defining block exited or Wait began).
var ErrInactive = errors.New("task group is not active")

// IsCancellation reports whether err represents a scope-driven unwind
// rather than an application failure. Error-aggregation logic uses it to
// keep cancellation out of group results.
func IsCancellation(err error) bool {
	if err == nil {
		return false
	}
	var sig *cancelSignal
	if errors.As(err, &sig) {
		return true
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// PanicError wraps a panic recovered from a task together with the stack
// captured at the point of the panic. Groups convert child panics into
// *PanicError values so a panicking task fails its group like any other
// error instead of crashing the process.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v\n\n%s", e.Value, e.Stack)
}

// NewPanicError captures the current goroutine's stack around the
// recovered value v.
func NewPanicError(v any) *PanicError {
	buf := make([]byte, 8192)
	n := runtime.Stack(buf, false)
	return &PanicError{Value: v, Stack: buf[:n]}
}
