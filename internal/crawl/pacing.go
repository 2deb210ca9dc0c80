package crawl

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"
)

// TimerPauser sleeps on a real timer, waking early on context cancellation.
type TimerPauser struct{}

// Pause blocks for delay or until ctx finishes, whichever comes first.
func (TimerPauser) Pause(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// randomBetween returns a uniform duration in [min, max]. Both the
// human-mimicking pacing sleeps and the between-attempt backoff use it.
func randomBetween(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	span := big.NewInt(int64(max - min))
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return min + (max-min)/2
	}
	return min + time.Duration(n.Int64())
}
