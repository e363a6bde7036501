package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter defines the interface for request pacing
type Limiter interface {
	// Allow reports whether a request may proceed right now without waiting
	Allow() bool
	// Wait blocks until a request is allowed or ctx is done
	Wait(ctx context.Context) error
	// Done marks the end of the request admitted by the last Wait
	Done()
	// Reset restores the initial state, so the next request proceeds immediately
	Reset()
}

// Pacer enforces a fixed minimum delay between requests. Starts are spaced
// by the token bucket, and a request reported through Done also holds the
// next one back until delay has passed since it finished, so slow requests
// are still followed by a pause. The first request after construction or
// Reset is never delayed.
type Pacer struct {
	mu       sync.Mutex
	delay    time.Duration
	burst    int
	limiter  *rate.Limiter
	lastDone time.Time
}

// NewPacer creates a pacer allowing one request per delay, with up to burst
// requests admitted back to back. A non-positive delay disables pacing.
func NewPacer(delay time.Duration, burst int) *Pacer {
	if burst < 1 {
		burst = 1
	}
	p := &Pacer{delay: delay, burst: burst}
	p.limiter = p.newLimiter()
	return p
}

func (p *Pacer) newLimiter() *rate.Limiter {
	if p.delay <= 0 {
		return rate.NewLimiter(rate.Inf, p.burst)
	}
	return rate.NewLimiter(rate.Every(p.delay), p.burst)
}

func (p *Pacer) current() *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.limiter
}

// gap returns how long the next request must still wait after the end of
// the previous one
func (p *Pacer) gap() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.delay <= 0 || p.lastDone.IsZero() {
		return 0
	}
	return p.delay - time.Since(p.lastDone)
}

// Allow checks if a request can proceed now
func (p *Pacer) Allow() bool {
	if p.gap() > 0 {
		return false
	}
	return p.current().Allow()
}

// Wait blocks until the delay since the previous request has elapsed
func (p *Pacer) Wait(ctx context.Context) error {
	if d := p.gap(); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return p.current().Wait(ctx)
}

// Done records the end of a request
func (p *Pacer) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastDone = time.Now()
}

// Reset discards accumulated state
func (p *Pacer) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.limiter = p.newLimiter()
	p.lastDone = time.Time{}
}

// Delay returns the configured delay between requests
func (p *Pacer) Delay() time.Duration {
	return p.delay
}

// Unlimited returns a limiter that never blocks
func Unlimited() Limiter {
	return NewPacer(0, 1)
}
