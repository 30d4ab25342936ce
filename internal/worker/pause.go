package worker

import (
	"context"
	"time"
)

// pause waits for d unless ctx ends first. It reports whether the full
// delay elapsed.
func pause(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
