package job

import (
	"context"
	"math/rand/v2"
	"time"
)

// RandomDelay samples a duration uniformly from [min, max], both ends inclusive,
// at millisecond granularity. If max < min the bounds are swapped.
func RandomDelay(min, max time.Duration) time.Duration {
	if max < min {
		min, max = max, min
	}
	lo, hi := min.Milliseconds(), max.Milliseconds()
	if hi <= lo {
		return time.Duration(lo) * time.Millisecond
	}
	return time.Duration(lo+rand.Int64N(hi-lo+1)) * time.Millisecond
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
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
