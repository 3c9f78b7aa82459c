package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/commerce/backend/internal/domain/receivable"
	"github.com/commerce/backend/internal/domain/shared"
	"github.com/commerce/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPaymentRepository implements receivable.PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByIDForTenant finds a payment by ID.
// Returns (nil, nil) when the payment does not exist.
func (r *GormPaymentRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*receivable.Payment, error) {
	var model models.PaymentModel
	err := r.conn(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByReceivableID finds every payment recorded against the receivable,
// most recent first
func (r *GormPaymentRepository) FindByReceivableID(ctx context.Context, tenantID, receivableID uuid.UUID) ([]*receivable.Payment, error) {
	var paymentModels []models.PaymentModel
	err := r.conn(ctx).
		Where("tenant_id = ? AND receivable_id = ?", tenantID, receivableID).
		Order("payment_date DESC, created_at DESC").
		Find(&paymentModels).Error
	if err != nil {
		return nil, err
	}
	payments := make([]*receivable.Payment, len(paymentModels))
	for i := range paymentModels {
		payments[i] = paymentModels[i].ToDomain()
	}
	return payments, nil
}

// FindAllForTenant finds payments under the filter, with the total count.
// Reversed payments are excluded unless the filter asks for them.
func (r *GormPaymentRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter receivable.PaymentFilter) ([]*receivable.Payment, int64, error) {
	query := r.conn(ctx).Model(&models.PaymentModel{}).
		Where("tenant_id = ?", tenantID)
	query = applyPaymentFilter(query, filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orderBy := ValidateSortField(filter.OrderBy, PaymentSortFields, "payment_date")
	orderDir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(fmt.Sprintf("%s %s", orderBy, orderDir))

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var paymentModels []models.PaymentModel
	if err := query.Find(&paymentModels).Error; err != nil {
		return nil, 0, err
	}

	payments := make([]*receivable.Payment, len(paymentModels))
	for i := range paymentModels {
		payments[i] = paymentModels[i].ToDomain()
	}
	return payments, total, nil
}

// Save persists the payment
func (r *GormPaymentRepository) Save(ctx context.Context, payment *receivable.Payment) error {
	model := models.PaymentModelFromDomain(payment)
	return r.conn(ctx).Save(model).Error
}

// SaveWithLock persists the payment with a version check
func (r *GormPaymentRepository) SaveWithLock(ctx context.Context, payment *receivable.Payment) error {
	model := models.PaymentModelFromDomain(payment)
	result := r.conn(ctx).Model(&models.PaymentModel{}).
		Where("id = ? AND version = ?", payment.ID, payment.Version-1).
		Updates(map[string]interface{}{
			"status":          model.Status,
			"reversed_at":     model.ReversedAt,
			"reversal_reason": model.ReversalReason,
			"notes":           model.Notes,
			"version":         model.Version,
			"updated_at":      model.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// DeleteByReceivableID removes every payment of the receivable
func (r *GormPaymentRepository) DeleteByReceivableID(ctx context.Context, tenantID, receivableID uuid.UUID) error {
	return r.conn(ctx).
		Where("tenant_id = ? AND receivable_id = ?", tenantID, receivableID).
		Delete(&models.PaymentModel{}).Error
}

// GeneratePaymentNumber generates a unique payment number.
// Format: PAG-YYYYMMDD-NNNNN, sequential per tenant per day.
func (r *GormPaymentRepository) GeneratePaymentNumber(ctx context.Context, tenantID uuid.UUID) (string, error) {
	date := time.Now().Format("20060102")
	prefix := fmt.Sprintf("PAG-%s-", date)

	var maxNumber string
	if err := r.conn(ctx).
		Model(&models.PaymentModel{}).
		Select("payment_number").
		Where("tenant_id = ? AND payment_number LIKE ?", tenantID, prefix+"%").
		Order("payment_number DESC").
		Limit(1).
		Pluck("payment_number", &maxNumber).Error; err != nil {
		return "", err
	}

	var nextNum int
	if maxNumber != "" {
		parts := strings.Split(maxNumber, "-")
		if len(parts) == 3 {
			fmt.Sscanf(parts[2], "%d", &nextNum)
		}
	}
	nextNum++

	return fmt.Sprintf("%s%05d", prefix, nextNum), nil
}

func (r *GormPaymentRepository) conn(ctx context.Context) *gorm.DB {
	return dbFromContext(ctx, r.db).WithContext(ctx)
}

func applyPaymentFilter(query *gorm.DB, filter receivable.PaymentFilter) *gorm.DB {
	if filter.ReceivableID != nil {
		query = query.Where("receivable_id = ?", *filter.ReceivableID)
	}
	if filter.InstallmentID != nil {
		query = query.Where("installment_id = ?", *filter.InstallmentID)
	}
	if !filter.IncludeReversed {
		query = query.Where("status = ?", receivable.PaymentStatusActive.String())
	}
	if filter.PaidFrom != nil {
		query = query.Where("payment_date >= ?", *filter.PaidFrom)
	}
	if filter.PaidTo != nil {
		query = query.Where("payment_date <= ?", *filter.PaidTo)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("payment_number ILIKE ? OR reference ILIKE ?", like, like)
	}
	return query
}
