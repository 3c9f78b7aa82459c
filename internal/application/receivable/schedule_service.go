package receivable

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/commerce/backend/internal/domain/order"
	"github.com/commerce/backend/internal/domain/receivable"
	"github.com/commerce/backend/internal/domain/shared"
	"github.com/commerce/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ScheduleService edits and deletes installments after generation
type ScheduleService struct {
	receivableRepo receivable.ReceivableRepository
	paymentRepo    receivable.PaymentRepository
	orderGateway   order.Gateway
	txManager      TransactionManager
	eventPublisher shared.EventPublisher
	cache          DashboardCache
	logger         *zap.Logger
}

// NewScheduleService creates a new ScheduleService
func NewScheduleService(
	receivableRepo receivable.ReceivableRepository,
	paymentRepo receivable.PaymentRepository,
	orderGateway order.Gateway,
	txManager TransactionManager,
	eventPublisher shared.EventPublisher,
	cache DashboardCache,
	logger *zap.Logger,
) *ScheduleService {
	return &ScheduleService{
		receivableRepo: receivableRepo,
		paymentRepo:    paymentRepo,
		orderGateway:   orderGateway,
		txManager:      txManager,
		eventPublisher: eventPublisher,
		cache:          cache,
		logger:         logger,
	}
}

// EditInstallmentRequest changes an installment's amount and/or due date
type EditInstallmentRequest struct {
	TenantID      uuid.UUID
	InstallmentID uuid.UUID
	NewAmount     *decimal.Decimal
	NewDueDate    *time.Time
	Notes         string
}

// EditInstallmentResult reports the edit outcome. When the receivable came
// from an order, Divergence compares the new installment total against the
// order total; divergence never blocks the save.
type EditInstallmentResult struct {
	Changed    bool                         `json:"changed"`
	Receivable *receivable.Receivable       `json:"receivable"`
	Divergence *receivable.DivergenceReport `json:"divergence,omitempty"`
}

// EditInstallment applies an installment edit. Edits that change nothing
// (same due date, amount within one cent) succeed without persisting.
func (s *ScheduleService) EditInstallment(ctx context.Context, req EditInstallmentRequest) (*EditInstallmentResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "receivable.edit_installment",
		attribute.String("tenant_id", req.TenantID.String()),
		attribute.String("installment_id", req.InstallmentID.String()))
	defer span.End()

	r, err := s.receivableRepo.FindByInstallmentID(ctx, req.TenantID, req.InstallmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load receivable: %w", err)
	}
	if r == nil {
		return nil, shared.NewDomainError("INSTALLMENT_NOT_FOUND", "Installment not found")
	}

	_, err = r.EditInstallment(req.InstallmentID, req.NewAmount, req.NewDueDate, req.Notes)
	if errors.Is(err, shared.ErrNothingChanged) {
		return &EditInstallmentResult{Changed: false, Receivable: r}, nil
	}
	if err != nil {
		return nil, err
	}

	err = s.txManager.WithinTransaction(ctx, func(txCtx context.Context) error {
		return s.receivableRepo.SaveWithLock(txCtx, r)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	result := &EditInstallmentResult{Changed: true, Receivable: r}
	if r.OrderID != nil {
		if summary, gwErr := s.orderGateway.GetSummary(ctx, req.TenantID, *r.OrderID); gwErr == nil && summary != nil {
			report := receivable.CheckOrderDivergence(summary.TotalAmount, r.InstallmentsTotal())
			result.Divergence = &report
		} else if gwErr != nil {
			s.logger.Warn("failed to load order for divergence check", zap.Error(gwErr))
		}
	}

	s.invalidate(ctx, r.TenantID)
	s.logger.Info("installment edited",
		zap.String("receivable_number", r.ReceivableNumber),
		zap.String("installment_id", req.InstallmentID.String()))
	return result, nil
}

// DeleteInstallmentResult reports a deletion, including whether the whole
// receivable was removed because its last installment went away.
type DeleteInstallmentResult struct {
	ReceivableDeleted bool       `json:"receivable_deleted"`
	ReceivableID      uuid.UUID  `json:"receivable_id"`
	OrderReleased     *uuid.UUID `json:"order_released,omitempty"`
}

// DeleteInstallment removes one installment. Deleting the last installment
// cascades: the receivable and its payment records are removed and the
// originating order's billed flag is cleared so accounts can be generated
// again.
func (s *ScheduleService) DeleteInstallment(ctx context.Context, tenantID, installmentID uuid.UUID) (*DeleteInstallmentResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "receivable.delete_installment",
		attribute.String("tenant_id", tenantID.String()),
		attribute.String("installment_id", installmentID.String()))
	defer span.End()

	r, err := s.receivableRepo.FindByInstallmentID(ctx, tenantID, installmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load receivable: %w", err)
	}
	if r == nil {
		return nil, shared.NewDomainError("INSTALLMENT_NOT_FOUND", "Installment not found")
	}

	remaining, err := r.RemoveInstallment(installmentID)
	if err != nil {
		return nil, err
	}

	result := &DeleteInstallmentResult{ReceivableID: r.ID}

	err = s.txManager.WithinTransaction(ctx, func(txCtx context.Context) error {
		if remaining > 0 {
			return s.receivableRepo.SaveWithLock(txCtx, r)
		}

		if err := s.paymentRepo.DeleteByReceivableID(txCtx, tenantID, r.ID); err != nil {
			return fmt.Errorf("failed to delete payment records: %w", err)
		}
		if err := s.receivableRepo.Delete(txCtx, tenantID, r.ID); err != nil {
			return fmt.Errorf("failed to delete receivable: %w", err)
		}
		if r.OrderID != nil {
			if err := s.orderGateway.ClearAccountsLaunched(txCtx, tenantID, *r.OrderID); err != nil {
				return fmt.Errorf("failed to release order billed flag: %w", err)
			}
			result.OrderReleased = r.OrderID
		}
		result.ReceivableDeleted = true
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if result.ReceivableDeleted {
		if err := s.eventPublisher.Publish(ctx, receivable.NewReceivableDeletedEvent(r)); err != nil {
			s.logger.Warn("failed to publish domain events", zap.Error(err))
		}
	}
	s.invalidate(ctx, tenantID)
	s.logger.Info("installment deleted",
		zap.String("receivable_number", r.ReceivableNumber),
		zap.Bool("receivable_deleted", result.ReceivableDeleted))
	return result, nil
}

func (s *ScheduleService) invalidate(ctx context.Context, tenantID uuid.UUID) {
	if err := s.cache.Invalidate(ctx, tenantID); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}
