package receivable

import (
	"context"
	"fmt"
	"time"

	"github.com/commerce/backend/internal/domain/receivable"
	"github.com/commerce/backend/internal/domain/shared"
	"github.com/commerce/backend/internal/domain/shared/valueobject"
	"github.com/commerce/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// PaymentService applies and reverses payments. Every mutation commits the
// payment record and the receivable state in one transaction, with
// version-checked saves guarding concurrent writers.
type PaymentService struct {
	receivableRepo receivable.ReceivableRepository
	paymentRepo    receivable.PaymentRepository
	txManager      TransactionManager
	eventPublisher shared.EventPublisher
	cache          DashboardCache
	logger         *zap.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	receivableRepo receivable.ReceivableRepository,
	paymentRepo receivable.PaymentRepository,
	txManager TransactionManager,
	eventPublisher shared.EventPublisher,
	cache DashboardCache,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		receivableRepo: receivableRepo,
		paymentRepo:    paymentRepo,
		txManager:      txManager,
		eventPublisher: eventPublisher,
		cache:          cache,
		logger:         logger,
	}
}

// ApplyPaymentRequest records a payment against a receivable or one of its
// installments. At least one of ReceivableID and InstallmentID is required;
// when both come in the installment must belong to the receivable.
// For TOTAL payments Amount is ignored and the target's full outstanding
// balance is applied; PARCIAL payments require a positive Amount.
type ApplyPaymentRequest struct {
	TenantID      uuid.UUID
	ReceivableID  *uuid.UUID
	InstallmentID *uuid.UUID
	Kind          receivable.PaymentKind
	Amount        decimal.Decimal
	Adjustments   receivable.PaymentAdjustments
	Method        string
	PaymentDate   time.Time // zero means today
	Reference     string
	Notes         string
	ReceivedBy    *uuid.UUID
}

// ApplyPaymentResult is the outcome of a payment application
type ApplyPaymentResult struct {
	Payment    *receivable.Payment    `json:"payment"`
	Receivable *receivable.Receivable `json:"receivable"`
}

// ApplyPayment validates, records and applies a payment
func (s *PaymentService) ApplyPayment(ctx context.Context, req ApplyPaymentRequest) (*ApplyPaymentResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "receivable.apply_payment",
		attribute.String("tenant_id", req.TenantID.String()))
	defer span.End()

	if req.ReceivableID == nil && req.InstallmentID == nil {
		return nil, shared.NewDomainError("INVALID_TARGET", "A receivable_id or installment_id is required")
	}

	r, err := s.resolveReceivable(ctx, req.TenantID, req.ReceivableID, req.InstallmentID)
	if err != nil {
		return nil, err
	}

	applied, err := s.resolveAppliedAmount(r, req)
	if err != nil {
		return nil, err
	}

	paymentDate := req.PaymentDate
	if paymentDate.IsZero() {
		paymentDate = time.Now()
	}

	number, err := s.paymentRepo.GeneratePaymentNumber(ctx, req.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate payment number: %w", err)
	}

	payment, err := receivable.NewPayment(req.TenantID, number, r.ID, req.InstallmentID,
		req.Kind, applied, req.Adjustments, req.Method, paymentDate)
	if err != nil {
		return nil, err
	}
	payment.Reference = req.Reference
	payment.Notes = req.Notes
	payment.ReceivedBy = req.ReceivedBy

	if req.InstallmentID != nil {
		err = r.ApplyPaymentToInstallment(*req.InstallmentID, applied)
	} else {
		err = r.ApplyPayment(applied)
	}
	if err != nil {
		return nil, err
	}

	err = s.txManager.WithinTransaction(ctx, func(txCtx context.Context) error {
		if err := s.paymentRepo.Save(txCtx, payment); err != nil {
			return fmt.Errorf("failed to save payment: %w", err)
		}
		if err := s.receivableRepo.SaveWithLock(txCtx, r); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publishAndInvalidate(ctx, r)
	s.logger.Info("payment applied",
		zap.String("payment_number", payment.PaymentNumber),
		zap.String("receivable_number", r.ReceivableNumber),
		zap.String("applied_amount", payment.AppliedAmount.StringFixed(2)),
		zap.String("status", r.Status.String()))
	return &ApplyPaymentResult{Payment: payment, Receivable: r}, nil
}

// ReversePaymentResult is the outcome of a payment reversal
type ReversePaymentResult struct {
	Payment    *receivable.Payment    `json:"payment"`
	Receivable *receivable.Receivable `json:"receivable"`
}

// ReversePayment undoes a payment. The payment row is kept and flagged
// REVERTIDO; the applied amount is restored to the target's outstanding
// balance in the same transaction.
func (s *PaymentService) ReversePayment(ctx context.Context, tenantID, paymentID uuid.UUID, reason string) (*ReversePaymentResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "receivable.reverse_payment",
		attribute.String("tenant_id", tenantID.String()),
		attribute.String("payment_id", paymentID.String()))
	defer span.End()

	payment, err := s.paymentRepo.FindByIDForTenant(ctx, tenantID, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	if payment == nil {
		return nil, shared.NewDomainError("PAYMENT_NOT_FOUND", "Payment not found")
	}

	if err := payment.MarkReversed(reason); err != nil {
		return nil, err
	}

	r, err := s.receivableRepo.FindByIDForTenant(ctx, tenantID, payment.ReceivableID)
	if err != nil {
		return nil, fmt.Errorf("failed to load receivable: %w", err)
	}
	if r == nil {
		return nil, shared.NewDomainError("RECEIVABLE_NOT_FOUND", "Receivable not found")
	}

	// Compensation uses the applied amount; adjustments were never part of
	// the outstanding balance.
	if err := r.RevertPayment(payment.InstallmentID, valueobject.NewMoneyBRL(payment.AppliedAmount)); err != nil {
		return nil, err
	}

	err = s.txManager.WithinTransaction(ctx, func(txCtx context.Context) error {
		if err := s.paymentRepo.SaveWithLock(txCtx, payment); err != nil {
			return err
		}
		return s.receivableRepo.SaveWithLock(txCtx, r)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publishAndInvalidate(ctx, r)
	s.logger.Info("payment reversed",
		zap.String("payment_number", payment.PaymentNumber),
		zap.String("receivable_number", r.ReceivableNumber),
		zap.String("reason", reason))
	return &ReversePaymentResult{Payment: payment, Receivable: r}, nil
}

func (s *PaymentService) resolveReceivable(ctx context.Context, tenantID uuid.UUID, receivableID, installmentID *uuid.UUID) (*receivable.Receivable, error) {
	var r *receivable.Receivable
	var err error
	if installmentID != nil {
		r, err = s.receivableRepo.FindByInstallmentID(ctx, tenantID, *installmentID)
	} else {
		r, err = s.receivableRepo.FindByIDForTenant(ctx, tenantID, *receivableID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load receivable: %w", err)
	}
	if r == nil {
		return nil, shared.NewDomainError("RECEIVABLE_NOT_FOUND", "Receivable not found")
	}
	// When both identifiers come in, the installment must belong to the
	// addressed receivable.
	if installmentID != nil && receivableID != nil && r.ID != *receivableID {
		return nil, shared.NewDomainError("INSTALLMENT_MISMATCH", "Installment does not belong to the receivable")
	}
	return r, nil
}

func (s *PaymentService) resolveAppliedAmount(r *receivable.Receivable, req ApplyPaymentRequest) (valueobject.Money, error) {
	if req.Kind == receivable.PaymentKindTotal {
		outstanding := r.OutstandingAmount
		if req.InstallmentID != nil {
			inst, err := r.FindInstallment(*req.InstallmentID)
			if err != nil {
				return valueobject.Money{}, shared.NewDomainError("INSTALLMENT_NOT_FOUND", "Installment not found in receivable")
			}
			outstanding = inst.OutstandingAmount
		}
		return valueobject.NewMoneyBRL(outstanding), nil
	}
	if !req.Amount.IsPositive() {
		return valueobject.Money{}, shared.NewDomainError("INVALID_AMOUNT", "Partial payments require a positive amount")
	}
	return valueobject.NewMoneyBRL(req.Amount), nil
}

func (s *PaymentService) publishAndInvalidate(ctx context.Context, r *receivable.Receivable) {
	if err := s.eventPublisher.Publish(ctx, r.GetDomainEvents()...); err != nil {
		s.logger.Warn("failed to publish domain events", zap.Error(err))
	}
	r.ClearDomainEvents()
	if err := s.cache.Invalidate(ctx, r.TenantID); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}
