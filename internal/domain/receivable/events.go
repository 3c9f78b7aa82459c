package receivable

import (
	"github.com/commerce/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventTypeReceivableCreated   = "receivable.created"
	EventTypeReceivablePaid      = "receivable.paid"
	EventTypeReceivableCancelled = "receivable.cancelled"
	EventTypeReceivableDeleted   = "receivable.deleted"
	EventTypePaymentApplied      = "receivable.payment_applied"
	EventTypePaymentReversed     = "receivable.payment_reversed"
)

const aggregateTypeReceivable = "Receivable"

// ReceivableCreatedEvent is raised when a new receivable enters the system,
// whether generated from an order or entered manually.
type ReceivableCreatedEvent struct {
	shared.BaseDomainEvent
	ReceivableNumber string          `json:"receivable_number"`
	CustomerID       uuid.UUID       `json:"customer_id"`
	OrderID          *uuid.UUID      `json:"order_id,omitempty"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	InstallmentCount int             `json:"installment_count"`
}

func NewReceivableCreatedEvent(r *Receivable) *ReceivableCreatedEvent {
	return &ReceivableCreatedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeReceivableCreated, aggregateTypeReceivable, r.ID, r.TenantID),
		ReceivableNumber: r.ReceivableNumber,
		CustomerID:       r.CustomerID,
		OrderID:          r.OrderID,
		TotalAmount:      r.TotalAmount,
		InstallmentCount: len(r.Installments),
	}
}

// PaymentAppliedEvent is raised for every payment application. InstallmentID
// is uuid.Nil for payments applied against the receivable as a whole.
type PaymentAppliedEvent struct {
	shared.BaseDomainEvent
	ReceivableNumber  string          `json:"receivable_number"`
	InstallmentID     uuid.UUID       `json:"installment_id,omitempty"`
	Amount            decimal.Decimal `json:"amount"`
	OutstandingAmount decimal.Decimal `json:"outstanding_amount"`
	Status            Status          `json:"status"`
}

func NewPaymentAppliedEvent(r *Receivable, installmentID uuid.UUID, amount decimal.Decimal) *PaymentAppliedEvent {
	return &PaymentAppliedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypePaymentApplied, aggregateTypeReceivable, r.ID, r.TenantID),
		ReceivableNumber:  r.ReceivableNumber,
		InstallmentID:     installmentID,
		Amount:            amount,
		OutstandingAmount: r.OutstandingAmount,
		Status:            r.Status,
	}
}

// PaymentReversedEvent is raised when a payment is reversed and its amount
// restored to the target's outstanding balance.
type PaymentReversedEvent struct {
	shared.BaseDomainEvent
	ReceivableNumber  string          `json:"receivable_number"`
	InstallmentID     *uuid.UUID      `json:"installment_id,omitempty"`
	Amount            decimal.Decimal `json:"amount"`
	OutstandingAmount decimal.Decimal `json:"outstanding_amount"`
	Status            Status          `json:"status"`
}

func NewPaymentReversedEvent(r *Receivable, installmentID *uuid.UUID, amount decimal.Decimal) *PaymentReversedEvent {
	return &PaymentReversedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypePaymentReversed, aggregateTypeReceivable, r.ID, r.TenantID),
		ReceivableNumber:  r.ReceivableNumber,
		InstallmentID:     installmentID,
		Amount:            amount,
		OutstandingAmount: r.OutstandingAmount,
		Status:            r.Status,
	}
}

// ReceivablePaidEvent is raised when the last outstanding cent is settled
type ReceivablePaidEvent struct {
	shared.BaseDomainEvent
	ReceivableNumber string          `json:"receivable_number"`
	CustomerID       uuid.UUID       `json:"customer_id"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
}

func NewReceivablePaidEvent(r *Receivable) *ReceivablePaidEvent {
	return &ReceivablePaidEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeReceivablePaid, aggregateTypeReceivable, r.ID, r.TenantID),
		ReceivableNumber: r.ReceivableNumber,
		CustomerID:       r.CustomerID,
		TotalAmount:      r.TotalAmount,
	}
}

// ReceivableCancelledEvent is raised on cancellation
type ReceivableCancelledEvent struct {
	shared.BaseDomainEvent
	ReceivableNumber string `json:"receivable_number"`
	Reason           string `json:"reason"`
}

func NewReceivableCancelledEvent(r *Receivable) *ReceivableCancelledEvent {
	return &ReceivableCancelledEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeReceivableCancelled, aggregateTypeReceivable, r.ID, r.TenantID),
		ReceivableNumber: r.ReceivableNumber,
		Reason:           r.CancelReason,
	}
}

// ReceivableDeletedEvent is raised after a receivable and its installments
// are removed. OrderID lets subscribers clear the originating order's
// accounts-launched flag so accounts can be regenerated.
type ReceivableDeletedEvent struct {
	shared.BaseDomainEvent
	ReceivableNumber string     `json:"receivable_number"`
	OrderID          *uuid.UUID `json:"order_id,omitempty"`
}

func NewReceivableDeletedEvent(r *Receivable) *ReceivableDeletedEvent {
	return &ReceivableDeletedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeReceivableDeleted, aggregateTypeReceivable, r.ID, r.TenantID),
		ReceivableNumber: r.ReceivableNumber,
		OrderID:          r.OrderID,
	}
}
