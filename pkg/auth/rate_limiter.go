package auth

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter provides rate limiting functionality
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

// KeyedLimiter keeps one token bucket per key. Idle buckets are evicted.
type KeyedLimiter struct {
	mu       sync.Mutex
	limiters map[string]*keyedEntry
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
}

type keyedEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewKeyedLimiter allows requestsPerMinute per key with a matching burst.
func NewKeyedLimiter(requestsPerMinute int) *KeyedLimiter {
	return &KeyedLimiter{
		limiters: make(map[string]*keyedEntry),
		limit:    rate.Limit(float64(requestsPerMinute) / 60.0),
		burst:    requestsPerMinute,
		idleTTL:  10 * time.Minute,
	}
}

// Allow consumes one token for key.
func (l *KeyedLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := time.Now()

	l.mu.Lock()
	entry, ok := l.limiters[key]
	if !ok {
		entry = &keyedEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = entry
		if len(l.limiters)%1024 == 0 {
			l.evictLocked(now)
		}
	}
	entry.lastSeen = now
	l.mu.Unlock()

	return entry.limiter.AllowN(now, 1), nil
}

// Reset forgets key.
func (l *KeyedLimiter) Reset(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.limiters, key)
	return nil
}

func (l *KeyedLimiter) evictLocked(now time.Time) {
	for key, entry := range l.limiters {
		if now.Sub(entry.lastSeen) > l.idleTTL {
			delete(l.limiters, key)
		}
	}
}

// IPRateLimiter limits by client address.
type IPRateLimiter struct {
	*KeyedLimiter
}

func NewIPRateLimiter(requestsPerMinute int) *IPRateLimiter {
	return &IPRateLimiter{KeyedLimiter: NewKeyedLimiter(requestsPerMinute)}
}

// UserRateLimiter limits by authenticated user id.
type UserRateLimiter struct {
	*KeyedLimiter
}

func NewUserRateLimiter(requestsPerMinute int) *UserRateLimiter {
	return &UserRateLimiter{KeyedLimiter: NewKeyedLimiter(requestsPerMinute)}
}

// CompositeRateLimiter requires every inner limiter to allow the request.
type CompositeRateLimiter struct {
	limiters []RateLimiter
}

func NewCompositeRateLimiter(limiters ...RateLimiter) *CompositeRateLimiter {
	return &CompositeRateLimiter{limiters: limiters}
}

// Allow checks limiters in order and stops at the first denial. Errors from a
// limiter that still allowed the request are returned alongside true.
func (l *CompositeRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	var firstErr error
	for _, limiter := range l.limiters {
		allowed, err := limiter.Allow(ctx, key)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		if !allowed {
			return false, firstErr
		}
	}
	return true, firstErr
}

func (l *CompositeRateLimiter) Reset(ctx context.Context, key string) error {
	for _, limiter := range l.limiters {
		if err := limiter.Reset(ctx, key); err != nil {
			return err
		}
	}
	return nil
}
