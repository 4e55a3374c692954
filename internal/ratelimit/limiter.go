// Package ratelimit provides optional client-side pacing for outbound
// exchange requests. Exchanges publish per-window request budgets; a Limiter
// smooths traffic under those budgets before the transport ever sends.
package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces requests under a global budget, with optional per-endpoint
// buckets for endpoints the exchange weighs separately. Buckets are created
// on demand with the global budget.
type Limiter struct {
	global  *rate.Limiter
	buckets sync.Map

	mu       sync.Mutex
	requests int
	period   time.Duration

	admitted atomic.Int64
	denied   atomic.Int64
}

// New builds a limiter allowing the given number of requests per period.
func New(requests int, period time.Duration) *Limiter {
	return &Limiter{
		global:   rate.NewLimiter(perSecond(requests, period), requests),
		requests: requests,
		period:   period,
	}
}

func perSecond(requests int, period time.Duration) rate.Limit {
	return rate.Limit(float64(requests) / period.Seconds())
}

// Wait blocks until the global budget admits one request or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.global.Wait(ctx); err != nil {
		l.denied.Add(1)
		return err
	}
	l.admitted.Add(1)
	return nil
}

// WaitEndpoint blocks on the named endpoint's bucket, creating it on first
// use with the global budget.
func (l *Limiter) WaitEndpoint(ctx context.Context, endpoint string) error {
	if err := l.bucket(endpoint).Wait(ctx); err != nil {
		l.denied.Add(1)
		return err
	}
	l.admitted.Add(1)
	return nil
}

// Allow reports whether the global budget admits one request right now.
func (l *Limiter) Allow() bool {
	ok := l.global.Allow()
	if ok {
		l.admitted.Add(1)
	} else {
		l.denied.Add(1)
	}
	return ok
}

// SetLimit replaces the global budget. Existing endpoint buckets keep their
// own budgets.
func (l *Limiter) SetLimit(requests int, period time.Duration) {
	l.mu.Lock()
	l.requests = requests
	l.period = period
	l.mu.Unlock()
	l.global.SetLimit(perSecond(requests, period))
	l.global.SetBurst(requests)
}

// SetEndpointLimit gives the named endpoint its own budget, creating the
// bucket if needed.
func (l *Limiter) SetEndpointLimit(endpoint string, requests int, period time.Duration) {
	b := l.bucket(endpoint)
	b.SetLimit(perSecond(requests, period))
	b.SetBurst(requests)
}

func (l *Limiter) bucket(endpoint string) *rate.Limiter {
	if v, ok := l.buckets.Load(endpoint); ok {
		return v.(*rate.Limiter)
	}
	l.mu.Lock()
	requests, period := l.requests, l.period
	l.mu.Unlock()
	fresh := rate.NewLimiter(perSecond(requests, period), requests)
	actual, _ := l.buckets.LoadOrStore(endpoint, fresh)
	return actual.(*rate.Limiter)
}

// Stats is a point-in-time view of limiter activity.
type Stats struct {
	Admitted int64
	Denied   int64
}

// Stats returns the admission counters.
func (l *Limiter) Stats() Stats {
	return Stats{Admitted: l.admitted.Load(), Denied: l.denied.Load()}
}
