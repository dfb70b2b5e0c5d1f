package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/opensource-regtech/kestrel/internal/domain"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAfter time.Duration
}

// Limiter admits at most limit requests per key within each fixed window.
type Limiter struct {
	store  domain.CounterStore
	limit  int
	window time.Duration
}

// NewLimiter creates a limiter over store.
func NewLimiter(store domain.CounterStore, limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = 100
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{store: store, limit: limit, window: window}
}

// New creates a limiter and its store from configuration.
func New(cfg domain.RateLimitConfig) (*Limiter, error) {
	var store domain.CounterStore
	switch cfg.Store {
	case "", "memory":
		store = NewMemoryStore(cfg.MaxKeys)

	case "redis":
		rs, err := NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		store = rs

	default:
		return nil, fmt.Errorf("unsupported rate limit store: %s", cfg.Store)
	}
	return NewLimiter(store, cfg.Requests, cfg.Window), nil
}

// Allow counts one request for key. On a store error the decision allows
// the request and the error is returned for the caller to record.
func (l *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	count, ttl, err := l.store.Increment(ctx, key, l.window)
	if err != nil {
		return Decision{Allowed: true, Limit: l.limit, Remaining: l.limit, ResetAfter: l.window}, err
	}

	remaining := l.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:    count <= int64(l.limit),
		Limit:      l.limit,
		Remaining:  remaining,
		ResetAfter: ttl,
	}, nil
}

// Ping checks the underlying store.
func (l *Limiter) Ping(ctx context.Context) error {
	return l.store.Ping(ctx)
}

// Close closes the underlying store.
func (l *Limiter) Close() error {
	return l.store.Close()
}
