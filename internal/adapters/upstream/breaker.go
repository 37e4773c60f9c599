package upstream

import (
	"sync"
	"time"
)

// Breaker blocks calls for a cooldown period after a rate limit.
type Breaker struct {
	mu        sync.Mutex
	cooldown  time.Duration
	openUntil time.Time
	now       func() time.Time
}

// NewBreaker creates a Breaker. A non-positive cooldown never opens.
func NewBreaker(cooldown time.Duration, now func() time.Time) *Breaker {
	if now == nil {
		now = time.Now
	}
	return &Breaker{cooldown: cooldown, now: now}
}

// Allow returns ErrCircuitOpen while cooling down.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.now().Before(b.openUntil) {
		return ErrCircuitOpen
	}
	return nil
}

// Trip starts a cooldown. It reports whether the breaker was closed before.
func (b *Breaker) Trip() bool {
	if b.cooldown <= 0 {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	wasClosed := !now.Before(b.openUntil)
	b.openUntil = now.Add(b.cooldown)
	return wasClosed
}

// OpenUntil returns the end of the current cooldown, zero when closed.
func (b *Breaker) OpenUntil() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.now().Before(b.openUntil) {
		return b.openUntil
	}
	return time.Time{}
}
