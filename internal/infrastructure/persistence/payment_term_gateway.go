package persistence

import (
	"context"
	"errors"

	"github.com/commerce/backend/internal/domain/paymentterm"
	"github.com/commerce/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPaymentTermGateway implements paymentterm.Gateway over the payment
// term projection
type GormPaymentTermGateway struct {
	db *gorm.DB
}

// NewGormPaymentTermGateway creates a new GormPaymentTermGateway
func NewGormPaymentTermGateway(db *gorm.DB) *GormPaymentTermGateway {
	return &GormPaymentTermGateway{db: db}
}

// GetTerm loads the schedule-relevant term fields.
// Returns (nil, nil) when the term does not exist.
func (g *GormPaymentTermGateway) GetTerm(ctx context.Context, tenantID, termID uuid.UUID) (*paymentterm.Term, error) {
	var model models.PaymentTermModel
	err := g.conn(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, termID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToTerm(), nil
}

func (g *GormPaymentTermGateway) conn(ctx context.Context) *gorm.DB {
	return dbFromContext(ctx, g.db).WithContext(ctx)
}
