package bridge

import (
	"context"
	"time"
)

// Sleep suspends the calling task for d, or less if ctx unwinds first, in
// which case the cancellation cause is returned.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}
