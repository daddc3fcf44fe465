package utils

import (
	"context"
	"math/rand/v2"
	"time"
)

var sleep = time.Sleep

// WaitFor blocks for d or until ctx is cancelled, whichever comes first.
func WaitFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		sleep(d)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// Jitter returns a random duration in [0, max). Pacing adds it on top of the
// minimum inter-apply delay so consecutive actions are not evenly spaced.
func Jitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(max)))
}
