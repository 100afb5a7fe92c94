// Package latency simulates network round trips for the in-memory stores.
package latency

import (
	"context"
	"time"
)

// Sleep waits for d or until ctx is done. A zero delay only checks ctx.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
