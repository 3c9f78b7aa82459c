package persistence

import (
	"context"
	"errors"

	"github.com/commerce/backend/internal/domain/order"
	"github.com/commerce/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormOrderGateway implements order.Gateway over the orders projection
type GormOrderGateway struct {
	db *gorm.DB
}

// NewGormOrderGateway creates a new GormOrderGateway
func NewGormOrderGateway(db *gorm.DB) *GormOrderGateway {
	return &GormOrderGateway{db: db}
}

// GetSummary loads the billing-relevant order fields.
// Returns (nil, nil) when the order does not exist.
func (g *GormOrderGateway) GetSummary(ctx context.Context, tenantID, orderID uuid.UUID) (*order.Summary, error) {
	var model models.OrderModel
	err := g.conn(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, orderID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToSummary(), nil
}

// MarkAccountsLaunched flags the order as already billed
func (g *GormOrderGateway) MarkAccountsLaunched(ctx context.Context, tenantID, orderID uuid.UUID) error {
	return g.setAccountsLaunched(ctx, tenantID, orderID, true)
}

// ClearAccountsLaunched releases the order for billing again
func (g *GormOrderGateway) ClearAccountsLaunched(ctx context.Context, tenantID, orderID uuid.UUID) error {
	return g.setAccountsLaunched(ctx, tenantID, orderID, false)
}

func (g *GormOrderGateway) setAccountsLaunched(ctx context.Context, tenantID, orderID uuid.UUID, launched bool) error {
	result := g.conn(ctx).Model(&models.OrderModel{}).
		Where("tenant_id = ? AND id = ?", tenantID, orderID).
		Update("accounts_launched", launched)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (g *GormOrderGateway) conn(ctx context.Context) *gorm.DB {
	return dbFromContext(ctx, g.db).WithContext(ctx)
}
