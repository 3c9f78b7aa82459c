package receivable

import (
	"fmt"
	"time"

	"github.com/commerce/backend/internal/domain/shared"
	"github.com/commerce/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentKind distinguishes a full settlement from a partial one
type PaymentKind string

const (
	PaymentKindTotal   PaymentKind = "TOTAL"
	PaymentKindPartial PaymentKind = "PARCIAL"
)

// IsValid checks if the kind is a valid PaymentKind
func (k PaymentKind) IsValid() bool {
	return k == PaymentKindTotal || k == PaymentKindPartial
}

// PaymentStatus represents the lifecycle of a payment record
type PaymentStatus string

const (
	PaymentStatusActive   PaymentStatus = "ATIVO"
	PaymentStatusReversed PaymentStatus = "REVERTIDO"
)

func (s PaymentStatus) String() string {
	return string(s)
}

// PaymentAdjustments are the monetary corrections captured with a payment.
// Interest and fine increase the recorded amount, discount and fee reduce
// it. None of them changes the amount applied against the outstanding
// balance.
type PaymentAdjustments struct {
	Interest decimal.Decimal `json:"interest"`
	Discount decimal.Decimal `json:"discount"`
	Fine     decimal.Decimal `json:"fine"`
	Fee      decimal.Decimal `json:"fee"`
}

// Validate rejects negative adjustment components
func (a PaymentAdjustments) Validate() error {
	if a.Interest.IsNegative() || a.Discount.IsNegative() || a.Fine.IsNegative() || a.Fee.IsNegative() {
		return shared.NewDomainError("INVALID_ADJUSTMENT", "Adjustment values cannot be negative")
	}
	return nil
}

// Net returns the signed total the adjustments add to the applied amount
func (a PaymentAdjustments) Net() decimal.Decimal {
	return a.Interest.Add(a.Fine).Sub(a.Discount).Sub(a.Fee)
}

// IsZero reports whether every component is zero
func (a PaymentAdjustments) IsZero() bool {
	return a.Interest.IsZero() && a.Discount.IsZero() && a.Fine.IsZero() && a.Fee.IsZero()
}

// Payment is the immutable record of one payment application. Reversal
// never deletes a payment; it flips the status to REVERSED and keeps the
// record for audit.
type Payment struct {
	shared.TenantAggregateRoot
	PaymentNumber  string             `json:"payment_number"`
	ReceivableID   uuid.UUID          `json:"receivable_id"`
	InstallmentID  *uuid.UUID         `json:"installment_id,omitempty"` // nil when applied to the receivable as a whole
	Kind           PaymentKind        `json:"kind"`
	Amount         decimal.Decimal    `json:"amount"`         // recorded: applied plus net adjustments
	AppliedAmount  decimal.Decimal    `json:"applied_amount"` // portion that reduced the outstanding balance
	Adjustments    PaymentAdjustments `json:"adjustments"`
	Method         string             `json:"method"`
	Reference      string             `json:"reference,omitempty"`
	PaymentDate    time.Time          `json:"payment_date"`
	Notes          string             `json:"notes,omitempty"`
	ReceivedBy     *uuid.UUID         `json:"received_by,omitempty"`
	Status         PaymentStatus      `json:"status"`
	ReversedAt     *time.Time         `json:"reversed_at,omitempty"`
	ReversalReason string             `json:"reversal_reason,omitempty"`
}

// NewPayment creates an active payment record. The applied amount is what
// the caller settles against the outstanding balance; the recorded Amount
// is derived from it and the adjustments.
func NewPayment(
	tenantID uuid.UUID,
	paymentNumber string,
	receivableID uuid.UUID,
	installmentID *uuid.UUID,
	kind PaymentKind,
	applied valueobject.Money,
	adjustments PaymentAdjustments,
	method string,
	paymentDate time.Time,
) (*Payment, error) {
	if paymentNumber == "" {
		return nil, shared.NewDomainError("INVALID_PAYMENT_NUMBER", "Payment number cannot be empty")
	}
	if receivableID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_RECEIVABLE", "Receivable ID cannot be empty")
	}
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_KIND", fmt.Sprintf("Unknown payment kind %q", kind))
	}
	if !applied.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if err := adjustments.Validate(); err != nil {
		return nil, err
	}
	if method == "" {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Payment method is required")
	}

	recorded := applied.Amount().Add(adjustments.Net())
	if recorded.IsNegative() {
		return nil, shared.NewDomainError("INVALID_ADJUSTMENT", "Adjustments cannot reduce the recorded amount below zero")
	}

	return &Payment{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		PaymentNumber:       paymentNumber,
		ReceivableID:        receivableID,
		InstallmentID:       installmentID,
		Kind:                kind,
		Amount:              recorded,
		AppliedAmount:       applied.Amount(),
		Adjustments:         adjustments,
		Method:              method,
		PaymentDate:         paymentDate,
		Status:              PaymentStatusActive,
	}, nil
}

// IsActive reports whether the payment still counts toward paid totals
func (p *Payment) IsActive() bool {
	return p.Status == PaymentStatusActive
}

// MarkReversed flags the payment as reversed. The caller is responsible
// for compensating the receivable in the same transaction.
func (p *Payment) MarkReversed(reason string) error {
	if p.Status == PaymentStatusReversed {
		return shared.NewDomainError("ALREADY_REVERSED", "Payment has already been reversed")
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Reversal reason is required")
	}

	now := time.Now()
	p.Status = PaymentStatusReversed
	p.ReversedAt = &now
	p.ReversalReason = reason
	p.UpdatedAt = now
	p.IncrementVersion()
	return nil
}
