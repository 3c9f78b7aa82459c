package receivable

import (
	"context"
	"time"

	"github.com/commerce/backend/internal/domain/receivable"
	"github.com/google/uuid"
)

// TransactionManager runs a function inside one database transaction.
// Repository calls made with the callback's context join that transaction,
// so a payment insert and the receivable update commit or roll back
// together.
type TransactionManager interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// DashboardCache caches computed dashboard views per tenant and criteria.
// Get returns (nil, nil) on a miss; cache failures must never fail the
// request, implementations log and degrade instead.
type DashboardCache interface {
	Get(ctx context.Context, tenantID uuid.UUID, criteria receivable.FilterCriteria) (*receivable.DashboardView, error)
	Set(ctx context.Context, tenantID uuid.UUID, criteria receivable.FilterCriteria, view *receivable.DashboardView, ttl time.Duration) error
	Invalidate(ctx context.Context, tenantID uuid.UUID) error
}
