package otel

import (
	"context"
	"time"

	"github.com/belm0/anyio/scope"
)

var _ scope.Observer = (*Nop)(nil)

// Nop is a no-op implementation of the scope.Observer interface. It serves
// as the attachment point for an OpenTelemetry-backed observer without
// adding dependencies.
type Nop struct{}

// NewNop returns a no-op observer.
func NewNop() *Nop { return &Nop{} }

func (*Nop) GroupCreated(context.Context)                                     {}
func (*Nop) GroupCancelled(context.Context, error)                            {}
func (*Nop) GroupJoined(context.Context, time.Duration)                       {}
func (*Nop) TaskStarted(context.Context, string)                              {}
func (*Nop) TaskFinished(context.Context, string, time.Duration, error, bool) {}
