package domain

import (
	"context"
	"time"
)

// CounterStore keeps fixed-window request counters keyed by caller identity.
type CounterStore interface {
	// Increment atomically bumps the counter for key and returns the new
	// count together with the time left in the current window.
	Increment(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RateLimitConfig holds configuration for the request rate limiter.
type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Store is the counter store: "memory" or "redis"
	Store string `mapstructure:"store"`

	// Requests allowed per key within Window
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`

	// Memory store settings
	MaxKeys int `mapstructure:"max_keys"`

	// Redis settings
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
}
