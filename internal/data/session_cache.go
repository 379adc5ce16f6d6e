package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"CreditPulse/internal/model"

	"github.com/redis/go-redis/v9"
)

// Cache key prefixes
const (
	// CacheKeySession is the prefix for session profile caches: session:{token}
	CacheKeySession = "session"
)

// Cache TTL durations
const (
	// TTLSession is the TTL for cached session profiles (24 hours).
	// Matches the stale-session eviction horizon in the biz layer.
	TTLSession = 24 * time.Hour
)

// ErrSessionNotCached is returned when no cached profile exists for a token
var ErrSessionNotCached = errors.New("session cache: token not found")

// SessionCache persists the bearer-token -> customer-profile mapping so that
// session resolution survives a portal restart. Implementations must be
// thread-safe and handle serialization/deserialization.
type SessionCache interface {
	// GetProfile retrieves the cached profile for a bearer token.
	// Returns ErrSessionNotCached if the token is unknown.
	GetProfile(ctx context.Context, token string) (*model.Profile, error)

	// PutProfile caches the profile for a bearer token with the session TTL.
	PutProfile(ctx context.Context, token string, profile *model.Profile) error

	// DeleteProfile removes the cached profile (logout).
	DeleteProfile(ctx context.Context, token string) error
}

// redisSessionCache is the Redis-based implementation of SessionCache.
type redisSessionCache struct {
	client *redis.Client
}

// NewSessionCache creates a new Redis-based session cache.
// If the Redis client is nil, cache operations will gracefully fail.
func NewSessionCache(rdb *redis.Client) SessionCache {
	return &redisSessionCache{
		client: rdb,
	}
}

// GetProfile retrieves the cached profile for a bearer token.
func (c *redisSessionCache) GetProfile(ctx context.Context, token string) (*model.Profile, error) {
	if c.client == nil {
		return nil, errors.New("session cache: redis client is nil")
	}

	key := BuildCacheKey(CacheKeySession, token)
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotCached
		}
		return nil, fmt.Errorf("session cache: failed to get token: %w", err)
	}

	var profile model.Profile
	if err := json.Unmarshal([]byte(val), &profile); err != nil {
		return nil, fmt.Errorf("session cache: failed to unmarshal profile: %w", err)
	}

	return &profile, nil
}

// PutProfile caches the profile for a bearer token with the session TTL.
func (c *redisSessionCache) PutProfile(ctx context.Context, token string, profile *model.Profile) error {
	if c.client == nil {
		return errors.New("session cache: redis client is nil")
	}

	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("session cache: failed to marshal profile: %w", err)
	}

	key := BuildCacheKey(CacheKeySession, token)
	if err := c.client.Set(ctx, key, data, TTLSession).Err(); err != nil {
		return fmt.Errorf("session cache: failed to set token: %w", err)
	}

	return nil
}

// DeleteProfile removes the cached profile.
func (c *redisSessionCache) DeleteProfile(ctx context.Context, token string) error {
	if c.client == nil {
		return errors.New("session cache: redis client is nil")
	}

	key := BuildCacheKey(CacheKeySession, token)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("session cache: failed to delete token: %w", err)
	}

	return nil
}

// BuildCacheKey constructs a cache key with the appropriate prefix.
// Example:
//   - BuildCacheKey(CacheKeySession, "tok123") -> "session:tok123"
func BuildCacheKey(prefix string, parts ...string) string {
	key := prefix
	for _, part := range parts {
		key += ":" + part
	}
	return key
}
