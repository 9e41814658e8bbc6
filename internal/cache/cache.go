package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/kestrelhq/kestrel/internal/domain"
)

// New creates a cache based on configuration.
func New(cfg domain.CacheConfig) (domain.Cache, error) {
	switch cfg.Type {
	case "memory", "":
		return NewLRUCache(cfg.LocalMaxSize), nil
	case "redis":
		redis, err := NewRedisCache(cfg)
		if err != nil {
			return nil, err
		}
		if cfg.EnableTwoPhase {
			return NewTwoPhaseCache(NewLRUCache(cfg.LocalMaxSize), redis), nil
		}
		return redis, nil
	default:
		return nil, fmt.Errorf("unknown cache type: %s", cfg.Type)
	}
}

// TwoPhaseCache layers a local LRU (L1) over Redis (L2). Reads check L1
// first and promote L2 hits; writes go to both layers.
type TwoPhaseCache struct {
	l1 *LRUCache
	l2 *RedisCache
}

// NewTwoPhaseCache creates a two-phase cache.
func NewTwoPhaseCache(l1 *LRUCache, l2 *RedisCache) *TwoPhaseCache {
	return &TwoPhaseCache{l1: l1, l2: l2}
}

// l1TTL bounds how long a promoted entry lives locally. Short so that
// cross-instance invalidation via L2 is not delayed for long.
const l1TTL = 30 * time.Second

// Get checks L1 first, falls back to L2 and promotes on hit.
func (c *TwoPhaseCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.l1.Get(ctx, key)
	if err == nil && data != nil {
		return data, nil
	}

	data, err = c.l2.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if data != nil {
		_ = c.l1.Set(ctx, key, data, l1TTL)
	}
	return data, nil
}

// Set writes to both layers.
func (c *TwoPhaseCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	localTTL := ttl
	if localTTL > l1TTL {
		localTTL = l1TTL
	}
	_ = c.l1.Set(ctx, key, value, localTTL)
	return c.l2.Set(ctx, key, value, ttl)
}

// Delete removes the key from both layers.
func (c *TwoPhaseCache) Delete(ctx context.Context, key string) error {
	_ = c.l1.Delete(ctx, key)
	return c.l2.Delete(ctx, key)
}

// GetSenderProfile retrieves a cached sender history summary.
func (c *TwoPhaseCache) GetSenderProfile(ctx context.Context, senderID string) (*domain.SenderProfile, error) {
	profile, err := c.l1.GetSenderProfile(ctx, senderID)
	if err == nil && profile != nil {
		return profile, nil
	}

	profile, err = c.l2.GetSenderProfile(ctx, senderID)
	if err != nil || profile == nil {
		return nil, err
	}
	_ = c.l1.SetSenderProfile(ctx, senderID, profile, l1TTL)
	return profile, nil
}

// SetSenderProfile caches a sender history summary in both layers.
func (c *TwoPhaseCache) SetSenderProfile(ctx context.Context, senderID string, profile *domain.SenderProfile, ttl time.Duration) error {
	localTTL := ttl
	if localTTL > l1TTL {
		localTTL = l1TTL
	}
	_ = c.l1.SetSenderProfile(ctx, senderID, profile, localTTL)
	return c.l2.SetSenderProfile(ctx, senderID, profile, ttl)
}

// IncrementCounter delegates to L2 so counts are shared across instances.
func (c *TwoPhaseCache) IncrementCounter(ctx context.Context, key string, window time.Duration) (int64, error) {
	return c.l2.IncrementCounter(ctx, key, window)
}

// Ping checks both layers.
func (c *TwoPhaseCache) Ping(ctx context.Context) error {
	if err := c.l1.Ping(ctx); err != nil {
		return err
	}
	return c.l2.Ping(ctx)
}

// Close closes both layers.
func (c *TwoPhaseCache) Close() error {
	_ = c.l1.Close()
	return c.l2.Close()
}
