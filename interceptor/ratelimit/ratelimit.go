// Package ratelimit provides a rate-limiting server interceptor for
// rpc-core command dispatch, adapted from the teacher's token-bucket
// limiter. rpc-core has no metadata concept, so ByClient/ByMethodAndClient
// are dropped; ByCmd replaces ByMethod as the sole built-in KeyFunc.
package ratelimit

import (
	"errors"
	"time"

	"github.com/gostdlib/base/concurrency/sync"
	"github.com/gostdlib/base/context"

	"github.com/shuai132/rpc-core/interceptor"
)

// ErrRateLimited is returned when a request is rate limited.
var ErrRateLimited = errors.New("rate limited")

// KeyFunc extracts a rate limiting key from a ServerInfo. Different
// requests with the same key share rate limits.
type KeyFunc func(info *interceptor.ServerInfo) string

// ByCmd returns a KeyFunc that limits by command name.
func ByCmd() KeyFunc {
	return func(info *interceptor.ServerInfo) string {
		if info == nil {
			return "unknown"
		}
		return info.Cmd
	}
}

// Config configures a rate limiter.
type Config struct {
	// Rate is the number of requests allowed per second.
	Rate float64

	// Burst is the maximum number of requests that can be made at once.
	Burst int

	// KeyFunc extracts the rate limiting key from ServerInfo. If nil, all
	// requests share a single rate limit.
	KeyFunc KeyFunc
}

type bucket struct {
	tokens     float64
	lastUpdate time.Time
}

// Limiter implements rate limiting using the token bucket algorithm.
type Limiter struct {
	rate    float64
	burst   int
	keyFunc KeyFunc

	mu      sync.Mutex
	buckets map[string]*bucket
}

// New creates a new rate limiter with the given configuration.
func New(cfg Config) *Limiter {
	if cfg.Rate <= 0 {
		cfg.Rate = 100
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 10
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(info *interceptor.ServerInfo) string { return "" }
	}

	return &Limiter{
		rate:    cfg.Rate,
		burst:   cfg.Burst,
		keyFunc: cfg.KeyFunc,
		buckets: make(map[string]*bucket),
	}
}

func (l *Limiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(l.burst), lastUpdate: now}
		l.buckets[key] = b
	}

	elapsed := now.Sub(b.lastUpdate).Seconds()
	b.tokens += elapsed * l.rate
	if b.tokens > float64(l.burst) {
		b.tokens = float64(l.burst)
	}
	b.lastUpdate = now

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// ServerInterceptor returns an interceptor that rate limits command
// dispatch.
func (l *Limiter) ServerInterceptor() interceptor.ServerInterceptor {
	return func(ctx context.Context, data []byte, info *interceptor.ServerInfo, handler interceptor.Handler) ([]byte, error) {
		key := l.keyFunc(info)
		if !l.allow(key) {
			return nil, ErrRateLimited
		}
		return handler(ctx, data)
	}
}

// Cleanup removes rate limit entries that haven't been used for maxAge.
// Call this periodically to prevent memory growth from many unique keys.
func (l *Limiter) Cleanup(maxAge time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	for key, b := range l.buckets {
		if b.lastUpdate.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}

// Stats returns the number of tracked keys.
func (l *Limiter) Stats() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
