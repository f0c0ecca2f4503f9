package scope

import (
	"context"
	"time"
)

// Observer receives lifecycle callbacks from a Group. Hooks run on the
// goroutines of the group's tasks, so implementations must be safe for
// concurrent use and must not block.
type Observer interface {
	GroupCreated(ctx context.Context)
	GroupCancelled(ctx context.Context, cause error)
	GroupJoined(ctx context.Context, wait time.Duration)
	TaskStarted(ctx context.Context, name string)
	TaskFinished(ctx context.Context, name string, dur time.Duration, err error, panicked bool)
}
