package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/commerce/backend/internal/domain/receivable"
	"github.com/google/uuid"
)

// InMemoryDashboardCache caches dashboard views in process memory.
// Suitable for single-instance deployments and testing; entries are not
// shared across processes.
type InMemoryDashboardCache struct {
	mu      sync.RWMutex
	entries map[string]*dashboardEntry
}

type dashboardEntry struct {
	view      *receivable.DashboardView
	expiresAt time.Time
}

func (e *dashboardEntry) isExpired() bool {
	return time.Now().After(e.expiresAt)
}

// NewInMemoryDashboardCache creates an in-memory dashboard cache
func NewInMemoryDashboardCache() *InMemoryDashboardCache {
	return &InMemoryDashboardCache{
		entries: make(map[string]*dashboardEntry),
	}
}

// Get returns the cached view for the criteria, or (nil, nil) on a miss
func (c *InMemoryDashboardCache) Get(_ context.Context, tenantID uuid.UUID, criteria receivable.FilterCriteria) (*receivable.DashboardView, error) {
	key := c.key(tenantID, criteria)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	if entry.isExpired() {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, nil
	}
	return entry.view, nil
}

// Set stores the view for the criteria with the given TTL
func (c *InMemoryDashboardCache) Set(_ context.Context, tenantID uuid.UUID, criteria receivable.FilterCriteria, view *receivable.DashboardView, ttl time.Duration) error {
	key := c.key(tenantID, criteria)

	c.mu.Lock()
	c.entries[key] = &dashboardEntry{
		view:      view,
		expiresAt: time.Now().Add(ttl),
	}
	c.mu.Unlock()
	return nil
}

// Invalidate drops every cached view of the tenant
func (c *InMemoryDashboardCache) Invalidate(_ context.Context, tenantID uuid.UUID) error {
	prefix := tenantID.String() + ":"

	c.mu.Lock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
	return nil
}

func (c *InMemoryDashboardCache) key(tenantID uuid.UUID, criteria receivable.FilterCriteria) string {
	return tenantID.String() + ":" + criteriaKey(criteria)
}
