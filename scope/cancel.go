package scope

import (
	"context"
	"errors"
	"sync"
	"time"
)

// cancelSignal is the cancellation cause installed by a CancelScope. It
// records which scope requested the unwind so an enclosing scope can tell
// its own cancellation from an ancestor's.
type cancelSignal struct {
	sc       *CancelScope
	deadline bool
}

func (s *cancelSignal) Error() string {
	if s.deadline {
		return "scope deadline elapsed"
	}
	return "scope cancelled"
}

// Is lets generic code recognize the signal as a cancellation via errors.Is.
func (s *cancelSignal) Is(target error) bool {
	if target == context.Canceled {
		return true
	}
	return s.deadline && target == context.DeadlineExceeded
}

// errFinished is the hygiene cause installed when a scope's block exits
// normally and the scope context is released.
var errFinished = errors.New("scope finished")

// CancelScope is a cancellable region of execution. A scope is created at
// the start of a block and resolved by Finish when control leaves the
// block; scopes created with a parent scope's Context nest inside it.
// Cancelling a scope cancels every operation suspended on its context,
// including nested child scopes, but never its ancestors.
//
// A scope is only valid while the creating call frame is live. Cancel may
// be called from any goroutine; all other methods belong to the owner.
type CancelScope struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
	stop   context.CancelFunc // releases the deadline timer, nil without one

	mu              sync.Mutex
	cancelRequested bool
	finished        bool
	cancelledCaught bool
	timedOut        bool
}

// ScopeOption configures a CancelScope.
type ScopeOption func(*scopeOptions)

type scopeOptions struct {
	deadline    time.Time
	hasDeadline bool
}

// WithDeadline sets an absolute wall-clock deadline on the scope.
func WithDeadline(t time.Time) ScopeOption {
	return func(o *scopeOptions) {
		o.deadline = t
		o.hasDeadline = true
	}
}

// WithTimeout sets a deadline relative to scope entry.
func WithTimeout(d time.Duration) ScopeOption {
	return func(o *scopeOptions) {
		o.deadline = time.Now().Add(d)
		o.hasDeadline = true
	}
}

// NewCancelScope creates a scope nested in parent. Pass a parent scope's
// Context to nest scopes; a nil parent means context.Background.
func NewCancelScope(parent context.Context, optFns ...ScopeOption) *CancelScope {
	if parent == nil {
		parent = context.Background()
	}
	var o scopeOptions
	for _, fn := range optFns {
		fn(&o)
	}

	cs := &CancelScope{}
	ctx, cancel := context.WithCancelCause(parent)
	cs.cancel = cancel
	if o.hasDeadline {
		ctx, cs.stop = context.WithDeadlineCause(ctx, o.deadline, &cancelSignal{sc: cs, deadline: true})
	}
	cs.ctx = ctx
	return cs
}

// Context returns the scope's context. Operations suspended on it unwind
// when the scope is cancelled or its deadline elapses.
func (cs *CancelScope) Context() context.Context { return cs.ctx }

// Cancel requests cancellation of the scope and everything nested in it.
// It is idempotent and safe to call from any goroutine. Cancellation is
// cooperative: it takes effect at the next suspension point of each
// affected operation.
func (cs *CancelScope) Cancel() {
	cs.mu.Lock()
	cs.cancelRequested = true
	cs.mu.Unlock()
	cs.cancel(&cancelSignal{sc: cs})
}

// CancelCalled reports whether Cancel has been invoked on this scope.
func (cs *CancelScope) CancelCalled() bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.cancelRequested
}

// CancelledCaught reports, after Finish, whether the scope was cancelled by
// its own Cancel or deadline and the unwind was absorbed at its boundary.
func (cs *CancelScope) CancelledCaught() bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.cancelledCaught
}

// TimedOut reports, after Finish, whether the scope's own deadline fired.
func (cs *CancelScope) TimedOut() bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.timedOut
}

// Deadline returns the scope's deadline, if any.
func (cs *CancelScope) Deadline() (time.Time, bool) {
	return cs.ctx.Deadline()
}

// Finish deactivates the scope and resolves err against it. It must run on
// every exit path of the scope's block, with err set to whatever the block
// produced.
//
// Cancellation attributable to this scope (its own Cancel or deadline) is
// swallowed and recorded, so callers above see nil. Cancellation that
// targeted an ancestor scope passes through untouched, and is surfaced
// even when the block itself returned nil. Application errors always take
// precedence over cancellation.
func (cs *CancelScope) Finish(err error) error {
	cs.mu.Lock()
	if cs.finished {
		cs.mu.Unlock()
		return err
	}
	cs.finished = true
	cs.mu.Unlock()

	cause := context.Cause(cs.ctx)
	sig, own := cause.(*cancelSignal)
	own = own && sig.sc == cs

	if cs.stop != nil {
		cs.stop()
	}
	cs.cancel(errFinished)

	if own {
		cs.mu.Lock()
		cs.cancelledCaught = true
		if sig.deadline {
			cs.timedOut = true
		}
		cs.mu.Unlock()
		if IsCancellation(err) {
			return nil
		}
		return err
	}
	if err == nil && cause != nil && IsCancellation(cause) {
		return cause
	}
	return err
}

// Run is the lifecycle entry point: it executes fn inside a fresh root
// cancel scope derived from context.Background and returns fn's resolved
// error.
func Run(fn func(ctx context.Context) error) error {
	cs := NewCancelScope(context.Background())
	return cs.Finish(fn(cs.Context()))
}
