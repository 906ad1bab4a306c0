// Package ratelimit provides a pluggable rate limiting interface.
//
// The pipeline talks to a single public API and must stay well below its
// fair-use ceiling. All outgoing calls go through a Limiter; the in-memory
// token bucket (MemoryLimiter) is the default implementation.
package ratelimit

import (
	"context"
	"time"
)

// Limiter decides whether a request identified by key should be allowed.
// Implementations must be safe for concurrent use.
type Limiter interface {
	// Allow returns true if the request should proceed.
	// The key is opaque; callers construct it (e.g. "odata", "resource").
	// Returning an error signals a limiter malfunction; callers should
	// treat errors as fail-open (permit the request) rather than stalling
	// the pipeline.
	Allow(ctx context.Context, key string) (bool, error)

	// Close releases resources (cleanup goroutines).
	Close() error
}

// NoopLimiter permits every request. Used when rate limiting is disabled.
type NoopLimiter struct{}

// Allow always returns true.
func (NoopLimiter) Allow(context.Context, string) (bool, error) { return true, nil }

// Close is a no-op.
func (NoopLimiter) Close() error { return nil }

// waitPoll is how long Wait sleeps between Allow attempts when the bucket
// is empty. Small enough to not distort the configured rate.
const waitPoll = 10 * time.Millisecond

// Wait blocks until the limiter admits a request for key or ctx is done.
// Limiter errors are treated as fail-open.
func Wait(ctx context.Context, l Limiter, key string) error {
	for {
		ok, err := l.Allow(ctx, key)
		if err != nil || ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitPoll):
		}
	}
}
