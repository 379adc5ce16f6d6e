// Package data provides data access layer implementations.
// It wraps the remote commerce backend and the Redis session cache.
package data

import (
	"CreditPulse/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(
	NewData,
	NewRedisClient,
	NewSessionCache,
	NewBackendClient,
)

// Data contains all data layer dependencies.
type Data struct {
	// redisClient is the Redis client backing the session cache
	redisClient *redis.Client
	// sessions is the session cache interface for biz layer use
	sessions SessionCache
	// backend is the remote commerce backend client
	backend *BackendClient
}

// NewData creates a new Data instance with all data layer dependencies.
// Redis connection failure does not prevent application startup (graceful degradation).
func NewData(_ *conf.Data, logger log.Logger, rdb *redis.Client, sessions SessionCache, backend *BackendClient) (*Data, func(), error) {
	helper := log.NewHelper(logger)

	// Check if Redis is available
	if rdb == nil {
		helper.Warn("Redis client is nil, session caching will be unavailable")
	}

	d := &Data{
		redisClient: rdb,
		sessions:    sessions,
		backend:     backend,
	}

	cleanup := func() {
		helper.Info("closing the data resources")
		// Redis cleanup is handled by NewRedisClient's cleanup function
		// which is called automatically by Wire
	}

	return d, cleanup, nil
}

// GetSessionCache returns the session cache for biz layer use.
func (d *Data) GetSessionCache() SessionCache {
	return d.sessions
}

// GetBackendClient returns the remote commerce backend client.
func (d *Data) GetBackendClient() *BackendClient {
	return d.backend
}

// GetRedisClient returns the Redis client for advanced operations.
func (d *Data) GetRedisClient() *redis.Client {
	return d.redisClient
}
