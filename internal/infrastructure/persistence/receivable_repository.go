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

// GormReceivableRepository implements receivable.ReceivableRepository using GORM
type GormReceivableRepository struct {
	db *gorm.DB
}

// NewGormReceivableRepository creates a new GormReceivableRepository
func NewGormReceivableRepository(db *gorm.DB) *GormReceivableRepository {
	return &GormReceivableRepository{db: db}
}

// FindByIDForTenant finds a receivable with its installments by ID.
// Returns (nil, nil) when the receivable does not exist.
func (r *GormReceivableRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*receivable.Receivable, error) {
	var model models.ReceivableModel
	err := r.conn(ctx).
		Preload("Installments", func(db *gorm.DB) *gorm.DB { return db.Order("number ASC") }).
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

// FindByInstallmentID finds the receivable owning the given installment
func (r *GormReceivableRepository) FindByInstallmentID(ctx context.Context, tenantID, installmentID uuid.UUID) (*receivable.Receivable, error) {
	var inst models.InstallmentModel
	err := r.conn(ctx).
		Where("id = ?", installmentID).
		First(&inst).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.FindByIDForTenant(ctx, tenantID, inst.ReceivableID)
}

// FindByOrderID finds receivables generated from the given order
func (r *GormReceivableRepository) FindByOrderID(ctx context.Context, tenantID, orderID uuid.UUID) ([]*receivable.Receivable, error) {
	var receivableModels []models.ReceivableModel
	err := r.conn(ctx).
		Preload("Installments", func(db *gorm.DB) *gorm.DB { return db.Order("number ASC") }).
		Where("tenant_id = ? AND order_id = ?", tenantID, orderID).
		Find(&receivableModels).Error
	if err != nil {
		return nil, err
	}
	receivables := make([]*receivable.Receivable, len(receivableModels))
	for i := range receivableModels {
		receivables[i] = receivableModels[i].ToDomain()
	}
	return receivables, nil
}

// FindAllForTenant finds receivables under the filter, with the total count
func (r *GormReceivableRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter receivable.ReceivableFilter) ([]*receivable.Receivable, int64, error) {
	query := r.conn(ctx).Model(&models.ReceivableModel{}).
		Where("tenant_id = ?", tenantID)
	query = applyReceivableFilter(query, filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orderBy := ValidateSortField(filter.OrderBy, ReceivableSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(fmt.Sprintf("%s %s", orderBy, orderDir))

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var receivableModels []models.ReceivableModel
	if err := query.
		Preload("Installments", func(db *gorm.DB) *gorm.DB { return db.Order("number ASC") }).
		Find(&receivableModels).Error; err != nil {
		return nil, 0, err
	}

	receivables := make([]*receivable.Receivable, len(receivableModels))
	for i := range receivableModels {
		receivables[i] = receivableModels[i].ToDomain()
	}
	return receivables, total, nil
}

// enrichedInstallmentRow is the scan target for the dashboard join
type enrichedInstallmentRow struct {
	models.InstallmentModel
	ReceivableNumber string
	ReceivableStatus string
	Description      string
	CustomerID       uuid.UUID
	OrderID          *uuid.UUID
	OrderNumber      string
	SellerID         *uuid.UUID
	InstallmentCount int
}

// ListEnrichedInstallments loads every installment of the tenant joined
// with its receivable and originating order context.
func (r *GormReceivableRepository) ListEnrichedInstallments(ctx context.Context, tenantID uuid.UUID) ([]receivable.EnrichedInstallment, error) {
	var rows []enrichedInstallmentRow
	err := r.conn(ctx).
		Table("receivable_installments AS i").
		Select(`i.*,
			r.receivable_number AS receivable_number,
			r.status AS receivable_status,
			r.description AS description,
			r.customer_id AS customer_id,
			r.order_id AS order_id,
			r.order_number AS order_number,
			o.seller_id AS seller_id,
			(SELECT COUNT(*) FROM receivable_installments c WHERE c.receivable_id = r.id) AS installment_count`).
		Joins("JOIN receivables r ON r.id = i.receivable_id").
		Joins("LEFT JOIN orders o ON o.id = r.order_id").
		Where("r.tenant_id = ?", tenantID).
		Order("i.due_date ASC, i.number ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	enriched := make([]receivable.EnrichedInstallment, len(rows))
	for i := range rows {
		enriched[i] = receivable.EnrichedInstallment{
			Installment:      *rows[i].InstallmentModel.ToDomain(),
			ReceivableNumber: rows[i].ReceivableNumber,
			ReceivableStatus: receivable.Status(rows[i].ReceivableStatus),
			Description:      rows[i].Description,
			CustomerID:       rows[i].CustomerID,
			OrderID:          rows[i].OrderID,
			OrderNumber:      rows[i].OrderNumber,
			SellerID:         rows[i].SellerID,
			InstallmentCount: rows[i].InstallmentCount,
		}
	}
	return enriched, nil
}

// Save persists the receivable and reconciles its installment set:
// installment rows no longer present on the aggregate are deleted.
func (r *GormReceivableRepository) Save(ctx context.Context, rec *receivable.Receivable) error {
	model := models.ReceivableModelFromDomain(rec)
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Installments").Save(&model).Error; err != nil {
			return err
		}
		return r.saveInstallments(tx, model)
	})
}

// SaveWithLock persists the receivable with a version check. The version
// was already incremented by the domain mutation, so the guard matches the
// previous value; zero rows affected means a concurrent writer won.
func (r *GormReceivableRepository) SaveWithLock(ctx context.Context, rec *receivable.Receivable) error {
	model := models.ReceivableModelFromDomain(rec)
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.ReceivableModel{}).
			Where("id = ? AND version = ?", rec.ID, rec.Version-1).
			Updates(map[string]interface{}{
				"description":        model.Description,
				"total_amount":       model.TotalAmount,
				"paid_amount":        model.PaidAmount,
				"outstanding_amount": model.OutstandingAmount,
				"due_date":           model.DueDate,
				"status":             model.Status,
				"paid_at":            model.PaidAt,
				"cancelled_at":       model.CancelledAt,
				"cancel_reason":      model.CancelReason,
				"notes":              model.Notes,
				"version":            model.Version,
				"updated_at":         model.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}
		return r.saveInstallments(tx, model)
	})
}

func (r *GormReceivableRepository) saveInstallments(tx *gorm.DB, model *models.ReceivableModel) error {
	currentIDs := make([]uuid.UUID, len(model.Installments))
	for i := range model.Installments {
		currentIDs[i] = model.Installments[i].ID
	}

	if len(currentIDs) > 0 {
		if err := tx.Where("receivable_id = ? AND id NOT IN ?", model.ID, currentIDs).
			Delete(&models.InstallmentModel{}).Error; err != nil {
			return err
		}
	} else {
		if err := tx.Where("receivable_id = ?", model.ID).
			Delete(&models.InstallmentModel{}).Error; err != nil {
			return err
		}
	}

	for i := range model.Installments {
		model.Installments[i].ReceivableID = model.ID
		if err := tx.Save(&model.Installments[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// Delete removes the receivable and its installments
func (r *GormReceivableRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("receivable_id = ?", id).
			Delete(&models.InstallmentModel{}).Error; err != nil {
			return err
		}
		result := tx.Where("tenant_id = ? AND id = ?", tenantID, id).
			Delete(&models.ReceivableModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// GenerateReceivableNumber generates a unique receivable number.
// Format: REC-YYYYMMDD-NNNNN, sequential per tenant per day.
func (r *GormReceivableRepository) GenerateReceivableNumber(ctx context.Context, tenantID uuid.UUID) (string, error) {
	date := time.Now().Format("20060102")
	prefix := fmt.Sprintf("REC-%s-", date)

	var maxNumber string
	if err := r.conn(ctx).
		Model(&models.ReceivableModel{}).
		Select("receivable_number").
		Where("tenant_id = ? AND receivable_number LIKE ?", tenantID, prefix+"%").
		Order("receivable_number DESC").
		Limit(1).
		Pluck("receivable_number", &maxNumber).Error; err != nil {
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

func (r *GormReceivableRepository) conn(ctx context.Context) *gorm.DB {
	return dbFromContext(ctx, r.db).WithContext(ctx)
}

func applyReceivableFilter(query *gorm.DB, filter receivable.ReceivableFilter) *gorm.DB {
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.OrderID != nil {
		query = query.Where("order_id = ?", *filter.OrderID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Overdue != nil && *filter.Overdue {
		today := receivable.StartOfDay(time.Now())
		query = query.Where("due_date < ? AND status IN ?", today,
			[]string{receivable.StatusOpen.String(), receivable.StatusPartial.String()})
	}
	if filter.DueFrom != nil {
		query = query.Where("due_date >= ?", *filter.DueFrom)
	}
	if filter.DueTo != nil {
		query = query.Where("due_date <= ?", *filter.DueTo)
	}
	if filter.IssueFrom != nil {
		query = query.Where("issue_date >= ?", *filter.IssueFrom)
	}
	if filter.IssueTo != nil {
		query = query.Where("issue_date <= ?", *filter.IssueTo)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("receivable_number ILIKE ? OR order_number ILIKE ? OR description ILIKE ?", like, like, like)
	}
	return query
}
