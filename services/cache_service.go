package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheService is a Redis-backed cache for dashboard report payloads.
// Reports are cached under a namespace version; invalidation bumps the
// version instead of deleting keys, so stale entries simply age out.
// All methods are safe no-ops when Redis is not configured.
type CacheService struct {
	client *redis.Client
}

var cacheServiceInstance = &CacheService{}

// InitCacheService connects to Redis when a URL is configured. An empty
// URL leaves caching disabled.
func InitCacheService(redisURL string) (*CacheService, error) {
	if redisURL == "" {
		cacheServiceInstance = &CacheService{}
		return cacheServiceInstance, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse REDIS_URL: %w", err)
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	cacheServiceInstance = &CacheService{client: client}
	return cacheServiceInstance, nil
}

// GetCacheService returns the cache service instance
func GetCacheService() *CacheService {
	return cacheServiceInstance
}

// SetCacheService sets the cache service instance (primarily for testing)
func SetCacheService(c *CacheService) {
	cacheServiceInstance = c
}

// Enabled reports whether a Redis backend is connected
func (c *CacheService) Enabled() bool {
	return c != nil && c.client != nil
}

// GetReport loads a cached report payload into dest.
// Returns false on miss, disabled cache, or any Redis error.
func (c *CacheService) GetReport(ctx context.Context, key string, dest interface{}) bool {
	if !c.Enabled() {
		return false
	}

	payload, err := c.client.Get(ctx, c.reportKey(ctx, key)).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		log.Printf("Failed to decode cached report %q: %v", key, err)
		return false
	}
	return true
}

// SetReport caches a report payload with a short TTL
func (c *CacheService) SetReport(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if !c.Enabled() {
		return
	}

	payload, err := json.Marshal(value)
	if err != nil {
		log.Printf("Failed to encode report %q for caching: %v", key, err)
		return
	}
	if err := c.client.Set(ctx, c.reportKey(ctx, key), payload, ttl).Err(); err != nil {
		log.Printf("Failed to cache report %q: %v", key, err)
	}
}

// InvalidateReports drops all cached reports by bumping the namespace
// version. Called after every order mutation so dashboards refresh.
func (c *CacheService) InvalidateReports() {
	if !c.Enabled() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.client.Incr(ctx, "reports:version").Err(); err != nil {
		log.Printf("Failed to invalidate report cache: %v", err)
	}
}

// reportKey namespaces a report key under the current cache version
func (c *CacheService) reportKey(ctx context.Context, key string) string {
	version, err := c.client.Get(ctx, "reports:version").Int64()
	if err != nil {
		version = 0
	}
	return fmt.Sprintf("reports:%d:%s", version, key)
}
