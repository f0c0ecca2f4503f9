package scope

import (
	"context"
	"fmt"
	"time"
)

// MoveOnAfter runs fn inside a scope that cancels itself after d. When the
// deadline fires, the work enclosed in fn unwinds and MoveOnAfter returns
// timedOut=true with a nil error; no error is raised for the deadline
// itself. Errors from fn, and cancellation of an ancestor scope, are
// returned as usual.
func MoveOnAfter(ctx context.Context, d time.Duration, fn func(ctx context.Context) error) (timedOut bool, err error) {
	cs := NewCancelScope(ctx, WithTimeout(d))
	err = cs.Finish(fn(cs.Context()))
	return cs.TimedOut(), err
}

// FailAfter runs fn inside a scope that cancels itself after d, and
// translates the deadline firing into the normalized ErrTimeout. An error
// returned by fn takes precedence over the timeout.
func FailAfter(ctx context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	cs := NewCancelScope(ctx, WithTimeout(d))
	err := cs.Finish(fn(cs.Context()))
	if err != nil {
		return err
	}
	if cs.TimedOut() {
		return fmt.Errorf("%w after %s", ErrTimeout, d)
	}
	return nil
}
