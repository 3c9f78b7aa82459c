package cache

import (
	"context"
	"time"

	"github.com/commerce/backend/internal/domain/receivable"
	"github.com/google/uuid"
)

// NoopDashboardCache satisfies the dashboard cache port without storing
// anything. Used when caching is disabled; every read is a miss.
type NoopDashboardCache struct{}

// NewNoopDashboardCache creates a NoopDashboardCache
func NewNoopDashboardCache() *NoopDashboardCache {
	return &NoopDashboardCache{}
}

// Get always reports a cache miss
func (NoopDashboardCache) Get(context.Context, uuid.UUID, receivable.FilterCriteria) (*receivable.DashboardView, error) {
	return nil, nil
}

// Set discards the view
func (NoopDashboardCache) Set(context.Context, uuid.UUID, receivable.FilterCriteria, *receivable.DashboardView, time.Duration) error {
	return nil
}

// Invalidate does nothing
func (NoopDashboardCache) Invalidate(context.Context, uuid.UUID) error {
	return nil
}
