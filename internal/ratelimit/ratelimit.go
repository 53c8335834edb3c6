// Package ratelimit provides a wrapper around golang.org/x/time/rate.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter wraps rate.Limiter with convenience constructors.
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a limiter allowing eventsPerMinute, with a small burst.
func New(eventsPerMinute int) *Limiter {
	rps := float64(eventsPerMinute) / 60.0
	burst := eventsPerMinute / 10
	if burst < 1 {
		burst = 1
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Wait blocks until an event is allowed or the context is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Allow reports whether an event may happen now.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// Tokens returns the currently available tokens.
func (l *Limiter) Tokens() float64 {
	return l.limiter.Tokens()
}
