package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/commerce/backend/internal/domain/receivable"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisDashboardCache caches dashboard views in Redis. This is suitable
// for distributed deployments where multiple instances serve the same
// tenant.
//
// Invalidation works through a per-tenant version counter: every cache
// key embeds the tenant's current version and Invalidate bumps the
// counter, so stale entries become unreachable and expire on their own.
type RedisDashboardCache struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisDashboardCache creates a Redis-backed dashboard cache
func NewRedisDashboardCache(cfg RedisConfig) (*RedisDashboardCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisDashboardCache{
		client:    client,
		keyPrefix: "dashboard:receivables:",
	}, nil
}

// NewRedisDashboardCacheWithClient creates a cache with an existing Redis client
func NewRedisDashboardCacheWithClient(client *redis.Client, keyPrefix string) *RedisDashboardCache {
	if keyPrefix == "" {
		keyPrefix = "dashboard:receivables:"
	}
	return &RedisDashboardCache{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Get returns the cached view for the criteria, or (nil, nil) on a miss
func (c *RedisDashboardCache) Get(ctx context.Context, tenantID uuid.UUID, criteria receivable.FilterCriteria) (*receivable.DashboardView, error) {
	key, err := c.viewKey(ctx, tenantID, criteria)
	if err != nil {
		return nil, err
	}

	payload, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read dashboard cache: %w", err)
	}

	var view receivable.DashboardView
	if err := json.Unmarshal(payload, &view); err != nil {
		return nil, fmt.Errorf("failed to decode cached dashboard: %w", err)
	}
	return &view, nil
}

// Set stores the view for the criteria with the given TTL
func (c *RedisDashboardCache) Set(ctx context.Context, tenantID uuid.UUID, criteria receivable.FilterCriteria, view *receivable.DashboardView, ttl time.Duration) error {
	key, err := c.viewKey(ctx, tenantID, criteria)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("failed to encode dashboard view: %w", err)
	}

	if err := c.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write dashboard cache: %w", err)
	}
	return nil
}

// Invalidate drops every cached view of the tenant
func (c *RedisDashboardCache) Invalidate(ctx context.Context, tenantID uuid.UUID) error {
	if err := c.client.Incr(ctx, c.versionKey(tenantID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate dashboard cache: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (c *RedisDashboardCache) Close() error {
	return c.client.Close()
}

func (c *RedisDashboardCache) versionKey(tenantID uuid.UUID) string {
	return c.keyPrefix + "ver:" + tenantID.String()
}

func (c *RedisDashboardCache) viewKey(ctx context.Context, tenantID uuid.UUID, criteria receivable.FilterCriteria) (string, error) {
	version, err := c.client.Get(ctx, c.versionKey(tenantID)).Int64()
	if err != nil && err != redis.Nil {
		return "", fmt.Errorf("failed to read cache version: %w", err)
	}
	return fmt.Sprintf("%s%s:%d:%s", c.keyPrefix, tenantID, version, criteriaKey(criteria)), nil
}

// criteriaKey flattens filter criteria into a stable cache key segment
func criteriaKey(criteria receivable.FilterCriteria) string {
	from, to := "", ""
	if criteria.DateFrom != nil {
		from = criteria.DateFrom.UTC().Format("20060102")
	}
	if criteria.DateTo != nil {
		to = criteria.DateTo.UTC().Format("20060102")
	}
	return fmt.Sprintf("%s:%s:%s:%s", criteria.Period, criteria.Seller, from, to)
}
