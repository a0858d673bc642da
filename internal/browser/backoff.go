package browser

import (
	"math/rand"
	"time"
)

// backoff computes exponentially growing retry delays with jitter.
type backoff struct {
	initialDelay  time.Duration
	maxDelay      time.Duration
	backoffFactor float64
	jitterPercent float64
	attempt       int
}

func newBackoff(initial, maxDelay time.Duration) *backoff {
	return &backoff{
		initialDelay:  initial,
		maxDelay:      maxDelay,
		backoffFactor: 2.0,
		jitterPercent: 0.1,
	}
}

// NextDelay returns the delay before the next attempt and advances the
// attempt counter.
func (b *backoff) NextDelay() time.Duration {
	b.attempt++

	// initialDelay * (factor ^ (attempt-1))
	delay := float64(b.initialDelay)
	for i := 1; i < b.attempt; i++ {
		delay *= b.backoffFactor
		if delay > float64(b.maxDelay) {
			break
		}
	}

	if delay > float64(b.maxDelay) {
		delay = float64(b.maxDelay)
	}

	// Global rand is safe for concurrent use and auto-seeded.
	delay += delay * b.jitterPercent * rand.Float64()

	return time.Duration(delay)
}

// Attempts returns how many delays have been handed out.
func (b *backoff) Attempts() int {
	return b.attempt
}
