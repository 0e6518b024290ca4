package llm

import (
	"fmt"
	"sync"
	"time"
)

// DefaultCooldown is how long the breaker stays open after a connection
// failure.
const DefaultCooldown = 120 * time.Second

// Breaker short-circuits calls for a cooldown period after the remote end
// was unreachable. The zero value is not usable; use NewBreaker.
type Breaker struct {
	mu       sync.Mutex
	cooldown time.Duration
	now      func() time.Time
	until    time.Time
	reason   string
}

// NewBreaker returns a closed breaker. A nil clock means time.Now.
func NewBreaker(cooldown time.Duration, now func() time.Time) *Breaker {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if now == nil {
		now = time.Now
	}
	return &Breaker{cooldown: cooldown, now: now}
}

// Allow returns nil when calls may proceed, otherwise an error wrapping
// ErrUnavailable with the reason the breaker opened.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.until.IsZero() {
		return nil
	}
	if !b.now().Before(b.until) {
		b.until = time.Time{}
		b.reason = ""
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnavailable, b.reason)
}

// Trip opens the breaker for one cooldown from now.
func (b *Breaker) Trip(reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.until = b.now().Add(b.cooldown)
	b.reason = reason
}

// Reset closes the breaker.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.until = time.Time{}
	b.reason = ""
}

// State reports whether the breaker is open, until when, and why.
func (b *Breaker) State() (open bool, until time.Time, reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.until.IsZero() || !b.now().Before(b.until) {
		return false, time.Time{}, ""
	}
	return true, b.until, b.reason
}
