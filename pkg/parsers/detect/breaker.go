// Package detect runs the staged parser detection pipeline against a live
// modem, bounded by a circuit breaker so a hostile or broken device cannot
// drag a poll cycle out indefinitely.
package detect

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// CircuitBreaker bounds the probe budget of one detection run: a hard
// attempt count, a wall-clock deadline, and a rate limiter spacing the
// probes out so the modem's tiny HTTP stack is not hammered.
type CircuitBreaker struct {
	mu          sync.Mutex
	maxAttempts int
	window      time.Duration
	limiter     *rate.Limiter

	attempts int
	deadline time.Time
}

const (
	DefaultMaxAttempts = 24
	DefaultWindow      = 30 * time.Second
)

// NewCircuitBreaker builds a breaker with the given budget. Zero values take
// the defaults; probesPerSecond <= 0 disables pacing.
func NewCircuitBreaker(maxAttempts int, window time.Duration, probesPerSecond float64) *CircuitBreaker {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if window <= 0 {
		window = DefaultWindow
	}
	limit := rate.Inf
	if probesPerSecond > 0 {
		limit = rate.Limit(probesPerSecond)
	}
	return &CircuitBreaker{
		maxAttempts: maxAttempts,
		window:      window,
		limiter:     rate.NewLimiter(limit, 1),
	}
}

// Attempt consumes one probe from the budget, waiting for the limiter. It
// returns false once the attempt count or the deadline is exhausted.
func (b *CircuitBreaker) Attempt(ctx context.Context) bool {
	b.mu.Lock()
	now := time.Now()
	if b.deadline.IsZero() {
		b.deadline = now.Add(b.window)
	}
	if b.attempts >= b.maxAttempts || now.After(b.deadline) {
		b.mu.Unlock()
		return false
	}
	b.attempts++
	b.mu.Unlock()

	return b.limiter.Wait(ctx) == nil
}

// Reset restores the full budget for a new detection run.
func (b *CircuitBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.attempts = 0
	b.deadline = time.Time{}
}

// Remaining reports how many probes the budget still allows.
func (b *CircuitBreaker) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.deadline.IsZero() && time.Now().After(b.deadline) {
		return 0
	}
	return b.maxAttempts - b.attempts
}
