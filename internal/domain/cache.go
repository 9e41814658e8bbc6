package domain

import (
	"context"
	"time"
)

// Cache defines the interface for caching operations. Sender profiles
// are the hot path: every scored transaction needs one, and the
// underlying aggregate query is the expensive part of feature
// extraction.
type Cache interface {
	// Get retrieves a value from cache.
	// Returns nil, nil if key not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in cache with expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache.
	Delete(ctx context.Context, key string) error

	// GetSenderProfile retrieves a cached sender history summary.
	GetSenderProfile(ctx context.Context, senderID string) (*SenderProfile, error)

	// SetSenderProfile caches a sender history summary.
	SetSenderProfile(ctx context.Context, senderID string, profile *SenderProfile, ttl time.Duration) error

	// IncrementCounter atomically increments a counter and returns the
	// new value. Used for alert rate tracking.
	IncrementCounter(ctx context.Context, key string, window time.Duration) (int64, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string

	// Local LRU cache settings
	LocalMaxSize int
	LocalTTL     time.Duration

	// Redis settings
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Two-phase settings
	EnableTwoPhase bool // If true, check local first, then Redis
}
