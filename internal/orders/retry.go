package orders

import (
	"context"
	"time"
)

// Backoff bounds the retry ladder used for compensation. Zero value is
// not usable; take DefaultBackoff and tweak.
type Backoff struct {
	Attempts int
	Base     time.Duration
	Max      time.Duration
}

var DefaultBackoff = Backoff{Attempts: 5, Base: 50 * time.Millisecond, Max: 2 * time.Second}

// retry runs fn until it succeeds or the attempts are exhausted,
// sleeping exponentially longer between tries. A cancelled context cuts
// the ladder short and returns the last error seen.
func (b Backoff) retry(ctx context.Context, fn func() error) error {
	delay := b.Base
	var err error
	for i := 0; i < b.Attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == b.Attempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return err
		}
		delay *= 2
		if delay > b.Max {
			delay = b.Max
		}
	}
	return err
}
