// Package errgroup provides an adapter that mimics golang.org/x/sync/errgroup
// semantics over scope.Group. It enables incremental migration of errgroup
// call sites without rewriting them against the structured API.
package errgroup

import (
	"context"
	"sync"

	"github.com/belm0/anyio/scope"
)

// Group is an errgroup-shaped wrapper over scope.Group: Wait returns the
// first non-nil error instead of the aggregate, and a failing function
// cancels the group context.
type Group struct {
	g    *scope.Group
	once sync.Once
	err  error
}

// WithContext creates a Group bound to ctx. The returned context is
// cancelled when any function passed to Go returns a non-nil error.
func WithContext(ctx context.Context) (*Group, context.Context) {
	g := scope.NewGroup(ctx)
	return &Group{g: g}, g.Context()
}

// Go starts f in its own task. The first non-nil error wins.
func (g *Group) Go(f func() error) {
	if f == nil {
		return
	}
	// Spawn only refuses after Wait; errgroup has no error channel for
	// that, so the refusal is dropped.
	_ = g.g.Spawn("", func(context.Context) error {
		err := f()
		if err != nil {
			g.once.Do(func() { g.err = err })
		}
		return err
	})
}

// Wait blocks until all functions have returned, then reports the first
// error. Panics surface as *scope.PanicError.
func (g *Group) Wait() error {
	werr := g.g.Wait()
	g.once.Do(func() { g.err = werr })
	return g.err
}
