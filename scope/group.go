package scope

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Option configures a Group.
type Option func(*Options)

// Options holds Group configuration.
type Options struct {
	Observer       Observer
	MaxConcurrency int
}

// WithObserver registers lifecycle callbacks for the group.
func WithObserver(obs Observer) Option { return func(o *Options) { o.Observer = obs } }

// WithMaxConcurrency bounds how many of the group's tasks run at once.
// Tasks beyond the limit wait for a slot; zero means unlimited.
func WithMaxConcurrency(n int) Option { return func(o *Options) { o.MaxConcurrency = n } }

// Group is a structured-concurrency container: a set of dynamically
// spawned tasks bound to one CancelScope and one exit point. Wait blocks
// until every child finished, and merges child failures into a single
// error. A failing child cancels its siblings; cancellation alone is never
// reported as an error.
type Group struct {
	scope  *CancelScope
	wg     sync.WaitGroup
	active atomic.Bool

	mu   sync.Mutex
	errs []error

	obs       Observer
	cancelObs sync.Once
	lim       Limiter

	spawned atomic.Int64
	running atomic.Int64
}

// NewGroup creates a Group bound to a fresh CancelScope nested in parent.
// The caller must finish the group with Wait.
func NewGroup(parent context.Context, optFns ...Option) *Group {
	var o Options
	for _, fn := range optFns {
		fn(&o)
	}
	g := &Group{
		scope: NewCancelScope(parent),
		obs:   o.Observer,
	}
	g.active.Store(true)
	if o.MaxConcurrency > 0 {
		g.lim = newChanLimiter(o.MaxConcurrency)
	}
	if g.obs != nil {
		g.obs.GroupCreated(g.scope.Context())
	}
	return g
}

// RunGroup executes body with a fresh Group, stops accepting spawns when
// body returns, and joins all children. An error or panic from body cancels
// the group and participates in the aggregated result like a child failure.
func RunGroup(ctx context.Context, body func(ctx context.Context, g *Group) error, optFns ...Option) error {
	g := NewGroup(ctx, optFns...)
	if err, _ := g.exec(g.scope.Context(), func(ctx context.Context) error {
		return body(ctx, g)
	}); err != nil {
		g.fail(err)
	}
	return g.Wait()
}

// Context returns the context of the group's cancel scope.
func (g *Group) Context() context.Context { return g.scope.Context() }

// Scope returns the group's cancel scope.
func (g *Group) Scope() *CancelScope { return g.scope }

// Cancel cancels the group's scope, unwinding all children. Idempotent.
func (g *Group) Cancel() { g.cancelWithCause(nil) }

// Spawn schedules fn as a new child task. It returns ErrInactive once the
// group has stopped accepting tasks; a refused task is never silently
// dropped. The name is used for observability only.
func (g *Group) Spawn(name string, fn func(ctx context.Context) error) error {
	if fn == nil {
		return nil
	}
	if !g.active.Load() {
		return fmt.Errorf("%w: cannot spawn %q", ErrInactive, name)
	}
	g.wg.Add(1)
	g.spawned.Add(1)

	ctx := g.scope.Context()
	go func() {
		defer g.wg.Done()
		if g.lim != nil {
			if err := g.lim.Acquire(ctx); err != nil {
				// Cancelled while queued; the cause is already recorded.
				return
			}
			defer g.lim.Release()
		}
		if ctx.Err() != nil {
			return
		}
		g.running.Add(1)
		defer g.running.Add(-1)

		if g.obs != nil {
			g.obs.TaskStarted(ctx, name)
		}
		start := time.Now()
		err, panicked := g.exec(ctx, fn)
		if g.obs != nil {
			g.obs.TaskFinished(ctx, name, time.Since(start), err, panicked)
		}
		if err != nil {
			g.fail(err)
		}
	}()
	return nil
}

// Wait stops accepting spawns, blocks until every child has completed, and
// resolves the group's scope. A single child failure is returned as-is;
// two or more are merged with errors.Join. Cancellation of the group's own
// scope is absorbed; an ancestor's cancellation passes through.
func (g *Group) Wait() error {
	g.active.Store(false)
	var start time.Time
	if g.obs != nil {
		start = time.Now()
	}
	g.wg.Wait()
	if g.obs != nil {
		g.obs.GroupJoined(g.scope.Context(), time.Since(start))
	}

	g.mu.Lock()
	errs := make([]error, len(g.errs))
	copy(errs, g.errs)
	g.mu.Unlock()

	var err error
	switch len(errs) {
	case 0:
	case 1:
		err = errs[0]
	default:
		err = errors.Join(errs...)
	}
	return g.scope.Finish(err)
}

// ActiveTasks returns the number of tasks currently executing.
func (g *Group) ActiveTasks() int64 { return g.running.Load() }

// TotalSpawned returns how many tasks were ever accepted by Spawn.
func (g *Group) TotalSpawned() int64 { return g.spawned.Load() }

func (g *Group) exec(ctx context.Context, fn func(context.Context) error) (err error, panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			err = NewPanicError(r)
			panicked = true
		}
	}()
	return fn(ctx), false
}

// fail records an application error and cancels the rest of the group.
// Cancellation unwinds from an already-cancelled scope are not failures.
func (g *Group) fail(err error) {
	if IsCancellation(err) && g.scope.Context().Err() != nil {
		return
	}
	g.mu.Lock()
	g.errs = append(g.errs, err)
	g.mu.Unlock()
	g.cancelWithCause(err)
}

func (g *Group) cancelWithCause(cause error) {
	g.scope.Cancel()
	if g.obs != nil {
		g.cancelObs.Do(func() { g.obs.GroupCancelled(g.scope.Context(), cause) })
	}
}
