package cache

import (
	"fmt"

	appreceivable "github.com/commerce/backend/internal/application/receivable"
	"github.com/commerce/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// DashboardCacheFactory creates dashboard caches based on configuration
type DashboardCacheFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// DashboardCacheFactoryOption is a functional option for configuring the factory
type DashboardCacheFactoryOption func(*DashboardCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) DashboardCacheFactoryOption {
	return func(f *DashboardCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory
// cache when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) DashboardCacheFactoryOption {
	return func(f *DashboardCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewDashboardCacheFactory creates a new factory
func NewDashboardCacheFactory(cfg config.RedisConfig, opts ...DashboardCacheFactoryOption) *DashboardCacheFactory {
	f := &DashboardCacheFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisCache creates a Redis-backed dashboard cache
func (f *DashboardCacheFactory) CreateRedisCache() (appreceivable.DashboardCache, error) {
	cache, err := NewRedisDashboardCache(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis dashboard cache: %w", err)
	}
	return cache, nil
}

// CreateCache creates a dashboard cache. Redis is tried first; when it is
// unreachable and fallback is allowed, the in-memory cache is used instead.
func (f *DashboardCacheFactory) CreateCache() (appreceivable.DashboardCache, error) {
	cache, err := f.CreateRedisCache()
	if err == nil {
		f.logger.Info("using Redis dashboard cache")
		return cache, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for dashboard cache but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory dashboard cache. "+
		"Cached views will not be shared across instances.",
		zap.Error(err),
	)
	return NewInMemoryDashboardCache(), nil
}
