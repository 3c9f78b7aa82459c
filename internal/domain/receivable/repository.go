package receivable

import (
	"context"
	"time"

	"github.com/commerce/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ReceivableFilter narrows receivable listings
type ReceivableFilter struct {
	shared.Filter
	CustomerID *uuid.UUID
	OrderID    *uuid.UUID
	Status     *Status
	Overdue    *bool
	DueFrom    *time.Time
	DueTo      *time.Time
	IssueFrom  *time.Time
	IssueTo    *time.Time
}

// PaymentFilter narrows payment listings
type PaymentFilter struct {
	shared.Filter
	ReceivableID    *uuid.UUID
	InstallmentID   *uuid.UUID
	IncludeReversed bool
	PaidFrom        *time.Time
	PaidTo          *time.Time
}

// ReceivableRepository persists Receivable aggregates with their
// installments. Save reconciles the installment set: rows missing from the
// aggregate are deleted, so RemoveInstallment takes effect on save.
type ReceivableRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Receivable, error)
	FindByInstallmentID(ctx context.Context, tenantID, installmentID uuid.UUID) (*Receivable, error)
	FindByOrderID(ctx context.Context, tenantID, orderID uuid.UUID) ([]*Receivable, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter ReceivableFilter) ([]*Receivable, int64, error)
	ListEnrichedInstallments(ctx context.Context, tenantID uuid.UUID) ([]EnrichedInstallment, error)
	Save(ctx context.Context, r *Receivable) error
	SaveWithLock(ctx context.Context, r *Receivable) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	GenerateReceivableNumber(ctx context.Context, tenantID uuid.UUID) (string, error)
}

// PaymentRepository persists payment records
type PaymentRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Payment, error)
	FindByReceivableID(ctx context.Context, tenantID, receivableID uuid.UUID) ([]*Payment, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter PaymentFilter) ([]*Payment, int64, error)
	Save(ctx context.Context, p *Payment) error
	SaveWithLock(ctx context.Context, p *Payment) error
	DeleteByReceivableID(ctx context.Context, tenantID, receivableID uuid.UUID) error
	GeneratePaymentNumber(ctx context.Context, tenantID uuid.UUID) (string, error)
}
