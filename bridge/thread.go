package bridge

import (
	"context"
	"runtime"

	"github.com/belm0/anyio/scope"
)

// Portal is the per-worker binding from a synchronous worker function back
// to the task that launched it. It is created by RunInThread and is only
// valid until the worker function returns.
type Portal struct {
	calls chan *portalCall
}

type portalCall struct {
	fn   func(context.Context) (any, error)
	done chan callResult
}

type callResult struct {
	val any
	err error
}

// Call schedules fn on the task that invoked RunInThread and blocks the
// worker until it has run there. It must only be called from inside the
// worker function, while the worker is still running.
func (p *Portal) Call(fn func(ctx context.Context) (any, error)) (any, error) {
	c := &portalCall{fn: fn, done: make(chan callResult, 1)}
	p.calls <- c
	r := <-c.done
	return r.val, r.err
}

// RunInThread dispatches fn onto a dedicated OS thread and suspends the
// calling task until it finishes. While suspended, the caller drains the
// portal: functions the worker submits via Portal.Call execute on the
// calling goroutine, one at a time, with the caller's ctx.
//
// An error returned by fn propagates to the caller as an ordinary
// application error; a panic in fn is captured as *scope.PanicError.
// The worker is not interrupted by ctx: like any blocking thread it runs
// to completion, so fn should watch ctx itself for long operations.
func RunInThread[T any](ctx context.Context, fn func(*Portal) (T, error)) (T, error) {
	portal := &Portal{calls: make(chan *portalCall)}
	result := make(chan callResult, 1)

	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer func() {
			if r := recover(); r != nil {
				result <- callResult{err: scope.NewPanicError(r)}
			}
		}()
		v, err := fn(portal)
		result <- callResult{val: v, err: err}
	}()

	for {
		select {
		case c := <-portal.calls:
			v, err := c.fn(ctx)
			c.done <- callResult{val: v, err: err}
		case r := <-result:
			var zero T
			if r.err != nil {
				return zero, r.err
			}
			if v, ok := r.val.(T); ok {
				return v, nil
			}
			return zero, nil
		}
	}
}
