package receivable

import (
	"context"
	"fmt"
	"time"

	"github.com/commerce/backend/internal/domain/order"
	"github.com/commerce/backend/internal/domain/paymentterm"
	"github.com/commerce/backend/internal/domain/receivable"
	"github.com/commerce/backend/internal/domain/shared"
	"github.com/commerce/backend/internal/domain/shared/valueobject"
	"github.com/commerce/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// EntryService creates receivables, either generated from a sales order or
// entered manually, and handles cancellation.
type EntryService struct {
	receivableRepo receivable.ReceivableRepository
	orderGateway   order.Gateway
	termGateway    paymentterm.Gateway
	txManager      TransactionManager
	eventPublisher shared.EventPublisher
	cache          DashboardCache
	logger         *zap.Logger
}

// NewEntryService creates a new EntryService
func NewEntryService(
	receivableRepo receivable.ReceivableRepository,
	orderGateway order.Gateway,
	termGateway paymentterm.Gateway,
	txManager TransactionManager,
	eventPublisher shared.EventPublisher,
	cache DashboardCache,
	logger *zap.Logger,
) *EntryService {
	return &EntryService{
		receivableRepo: receivableRepo,
		orderGateway:   orderGateway,
		termGateway:    termGateway,
		txManager:      txManager,
		eventPublisher: eventPublisher,
		cache:          cache,
		logger:         logger,
	}
}

// GenerateFromOrderRequest asks for an installment schedule to be generated
// from a sales order's total.
type GenerateFromOrderRequest struct {
	TenantID         uuid.UUID
	OrderID          uuid.UUID
	InstallmentCount int
	IntervalDays     int        // 0 means the 30-day default
	FirstDueDate     *time.Time // nil means due on the order date
	PaymentTypeID    *uuid.UUID
	PaymentTermID    *uuid.UUID
	Notes            string
}

// GenerateFromOrder creates a receivable with its installment schedule from
// an order. The order is flagged as billed in the same transaction so the
// schedule cannot be generated twice.
func (s *EntryService) GenerateFromOrder(ctx context.Context, req GenerateFromOrderRequest) (*receivable.Receivable, error) {
	ctx, span := telemetry.StartSpan(ctx, "receivable.generate_from_order",
		attribute.String("tenant_id", req.TenantID.String()),
		attribute.String("order_id", req.OrderID.String()))
	defer span.End()

	summary, err := s.orderGateway.GetSummary(ctx, req.TenantID, req.OrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if summary == nil {
		return nil, shared.NewDomainError("ORDER_NOT_FOUND", "Order not found")
	}
	if summary.AccountsLaunched {
		return nil, shared.NewDomainError("ACCOUNTS_ALREADY_LAUNCHED", "Receivables were already generated for this order")
	}

	total, err := valueobject.NewMoney(summary.TotalAmount, valueobject.BRL)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_AMOUNT", err.Error())
	}

	term, err := s.buildTerm(ctx, req.TenantID, req.PaymentTermID, req.InstallmentCount, req.IntervalDays)
	if err != nil {
		return nil, err
	}
	issueDate := summary.OrderDate
	if req.FirstDueDate != nil {
		term.FirstPaymentDays = daysBetween(issueDate, *req.FirstDueDate)
	}

	installments, err := receivable.GenerateInstallments(total, issueDate, term)
	if err != nil {
		return nil, err
	}

	number, err := s.receivableRepo.GenerateReceivableNumber(ctx, req.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate receivable number: %w", err)
	}

	description := fmt.Sprintf("Pedido %s", summary.OrderNumber)
	r, err := receivable.NewReceivable(req.TenantID, number, summary.CustomerID, description, total, issueDate, installments)
	if err != nil {
		return nil, err
	}
	r.LinkOrder(summary.ID, summary.OrderNumber)
	r.PaymentTypeID = req.PaymentTypeID
	r.PaymentTermID = req.PaymentTermID
	r.Notes = req.Notes

	err = s.txManager.WithinTransaction(ctx, func(txCtx context.Context) error {
		if err := s.receivableRepo.Save(txCtx, r); err != nil {
			return fmt.Errorf("failed to save receivable: %w", err)
		}
		if err := s.orderGateway.MarkAccountsLaunched(txCtx, req.TenantID, summary.ID); err != nil {
			return fmt.Errorf("failed to flag order as billed: %w", err)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publishAndInvalidate(ctx, r)
	s.logger.Info("receivable generated from order",
		zap.String("receivable_number", r.ReceivableNumber),
		zap.String("order_number", summary.OrderNumber),
		zap.Int("installments", len(r.Installments)))
	return r, nil
}

// CreateManualRequest is a hand-entered receivable outside any order
type CreateManualRequest struct {
	TenantID         uuid.UUID
	CustomerID       uuid.UUID
	Description      string
	TotalAmount      decimal.Decimal
	IssueDate        time.Time // zero means today
	InstallmentCount int       // 0 means a single installment, or the term's count
	IntervalDays     int       // 0 means the 30-day default, or the term's interval
	FirstDueDate     *time.Time
	PaymentTermID    *uuid.UUID // catalog term providing the schedule defaults
	PaymentTypeID    *uuid.UUID
	Notes            string
}

// CreateManual creates a receivable from manual input. A referenced payment
// term provides the schedule defaults; without one, missing fields fall
// back to a single cash installment due on the issue date.
func (s *EntryService) CreateManual(ctx context.Context, req CreateManualRequest) (*receivable.Receivable, error) {
	ctx, span := telemetry.StartSpan(ctx, "receivable.create_manual",
		attribute.String("tenant_id", req.TenantID.String()))
	defer span.End()

	if req.Description == "" {
		return nil, shared.NewDomainError("INVALID_DESCRIPTION", "Description is required")
	}

	total, err := valueobject.NewMoney(req.TotalAmount, valueobject.BRL)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_AMOUNT", err.Error())
	}

	issueDate := req.IssueDate
	if issueDate.IsZero() {
		issueDate = receivable.StartOfDay(time.Now())
	}

	count := req.InstallmentCount
	if req.PaymentTermID == nil && count == 0 {
		count = 1
	}
	term, err := s.buildTerm(ctx, req.TenantID, req.PaymentTermID, count, req.IntervalDays)
	if err != nil {
		return nil, err
	}
	if req.FirstDueDate != nil {
		term.FirstPaymentDays = daysBetween(issueDate, *req.FirstDueDate)
	}

	installments, err := receivable.GenerateInstallments(total, issueDate, term)
	if err != nil {
		return nil, err
	}

	number, err := s.receivableRepo.GenerateReceivableNumber(ctx, req.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate receivable number: %w", err)
	}

	r, err := receivable.NewReceivable(req.TenantID, number, req.CustomerID, req.Description, total, issueDate, installments)
	if err != nil {
		return nil, err
	}
	r.PaymentTypeID = req.PaymentTypeID
	r.PaymentTermID = req.PaymentTermID
	r.Notes = req.Notes

	err = s.txManager.WithinTransaction(ctx, func(txCtx context.Context) error {
		return s.receivableRepo.Save(txCtx, r)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save receivable: %w", err)
	}

	s.publishAndInvalidate(ctx, r)
	s.logger.Info("manual receivable created",
		zap.String("receivable_number", r.ReceivableNumber),
		zap.String("customer_id", req.CustomerID.String()))
	return r, nil
}

// Cancel cancels a receivable. Irreversible.
func (s *EntryService) Cancel(ctx context.Context, tenantID, receivableID uuid.UUID, reason string) (*receivable.Receivable, error) {
	r, err := s.receivableRepo.FindByIDForTenant(ctx, tenantID, receivableID)
	if err != nil {
		return nil, fmt.Errorf("failed to load receivable: %w", err)
	}
	if r == nil {
		return nil, shared.NewDomainError("RECEIVABLE_NOT_FOUND", "Receivable not found")
	}

	if err := r.Cancel(reason); err != nil {
		return nil, err
	}

	err = s.txManager.WithinTransaction(ctx, func(txCtx context.Context) error {
		return s.receivableRepo.SaveWithLock(txCtx, r)
	})
	if err != nil {
		return nil, err
	}

	s.publishAndInvalidate(ctx, r)
	s.logger.Info("receivable cancelled",
		zap.String("receivable_number", r.ReceivableNumber),
		zap.String("reason", reason))
	return r, nil
}

// buildTerm resolves the schedule parameters for generation. A referenced
// catalog term supplies the defaults; explicit count and interval values
// from the request override them.
func (s *EntryService) buildTerm(ctx context.Context, tenantID uuid.UUID, termID *uuid.UUID, count, intervalDays int) (receivable.PaymentTerm, error) {
	if termID == nil {
		term := receivable.CustomTerm(count)
		if intervalDays > 0 {
			term.IntervalDays = intervalDays
		}
		return term, nil
	}

	stored, err := s.termGateway.GetTerm(ctx, tenantID, *termID)
	if err != nil {
		return receivable.PaymentTerm{}, fmt.Errorf("failed to load payment term: %w", err)
	}
	if stored == nil {
		return receivable.PaymentTerm{}, shared.NewDomainError("PAYMENT_TERM_NOT_FOUND", "Payment term not found")
	}
	if !stored.Active {
		return receivable.PaymentTerm{}, shared.NewDomainError("INVALID_TERM", "Payment term is inactive")
	}

	term := receivable.PaymentTerm{
		ID:               stored.ID.String(),
		Name:             stored.Name,
		InstallmentCount: stored.InstallmentCount,
		IntervalDays:     stored.IntervalDays,
		FirstPaymentDays: stored.FirstPaymentDays,
	}
	if count > 0 {
		term.InstallmentCount = count
	}
	if intervalDays > 0 {
		term.IntervalDays = intervalDays
	}
	return term, nil
}

func (s *EntryService) publishAndInvalidate(ctx context.Context, r *receivable.Receivable) {
	if err := s.eventPublisher.Publish(ctx, r.GetDomainEvents()...); err != nil {
		s.logger.Warn("failed to publish domain events", zap.Error(err))
	}
	r.ClearDomainEvents()
	if err := s.cache.Invalidate(ctx, r.TenantID); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}

// daysBetween counts whole days from a to b, negative-clamped to zero
func daysBetween(a, b time.Time) int {
	days := int(receivable.StartOfDay(b).Sub(receivable.StartOfDay(a)).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
