// Package ratelimit keeps scrapers polite by spacing requests per host.
package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// HostLimiter enforces a minimum delay between requests to the same host.
// Callers reserve a slot, so concurrent waiters on one host are serialized.
type HostLimiter struct {
	mu       sync.Mutex
	next     map[string]time.Time // earliest start of the next request, per host
	delayFor func(host string) time.Duration
}

// NewHostLimiter creates a limiter with the same delay for every host.
func NewHostLimiter(minDelay time.Duration) *HostLimiter {
	return NewHostLimiterFunc(func(string) time.Duration { return minDelay })
}

// NewHostLimiterFunc creates a limiter whose delay is chosen per host.
func NewHostLimiterFunc(delayFor func(host string) time.Duration) *HostLimiter {
	return &HostLimiter{
		next:     make(map[string]time.Time),
		delayFor: delayFor,
	}
}

// Wait blocks until host may be contacted again.
// Returns an error if the context is cancelled while waiting.
func (l *HostLimiter) Wait(ctx context.Context, host string) error {
	l.mu.Lock()
	now := time.Now()
	start := now
	if next, ok := l.next[host]; ok && next.After(now) {
		start = next
	}
	l.next[host] = start.Add(l.delayFor(host))
	l.mu.Unlock()

	remaining := start.Sub(now)
	if remaining <= 0 {
		return nil
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("rate limiter wait for %s: %w", host, ctx.Err())
	case <-timer.C:
		return nil
	}
}

// Transport is an http.RoundTripper that waits on a HostLimiter before
// every request. All clients scraping the same site should share one limiter.
type Transport struct {
	base    http.RoundTripper
	limiter *HostLimiter
}

// NewTransport wraps base (http.DefaultTransport when nil).
func NewTransport(base http.RoundTripper, limiter *HostLimiter) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{base: base, limiter: limiter}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context(), req.URL.Hostname()); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(req)
}
