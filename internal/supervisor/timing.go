package supervisor

import (
	"context"
	"time"
)

// sleepCtx waits for d or ctx cancellation, whichever comes first. Used in
// the places where the original paused with a bare asyncio.sleep while
// still holding its service lock.
func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
