package stream

import "time"

const (
	defaultInitialBackoff = time.Second
	defaultMaxBackoff     = 30 * time.Second
)

// Backoff is the reconnect delay: it doubles per consecutive failure up to max
// and returns to initial after a successful subscribe.
type Backoff struct {
	initial time.Duration
	max     time.Duration
	current time.Duration
}

func NewBackoff(initial time.Duration, maxDelay time.Duration) *Backoff {
	if initial <= 0 {
		initial = defaultInitialBackoff
	}
	if maxDelay < initial {
		maxDelay = initial
	}

	return &Backoff{initial: initial, max: maxDelay, current: initial}
}

// Next returns the delay to wait now and advances the streak.
func (b *Backoff) Next() time.Duration {
	delay := b.current
	b.current = min(b.current*2, b.max)
	return delay
}

// Current returns the delay Next would return, without advancing.
func (b *Backoff) Current() time.Duration {
	return b.current
}

func (b *Backoff) Reset() {
	b.current = b.initial
}
