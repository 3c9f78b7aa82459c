package models

import (
	"time"

	"github.com/commerce/backend/internal/domain/order"
	"github.com/commerce/backend/internal/domain/paymentterm"
	"github.com/commerce/backend/internal/domain/receivable"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReceivableModel is the persistence model for receivables
type ReceivableModel struct {
	TenantAggregateModel
	ReceivableNumber  string          `gorm:"type:varchar(32);not null;index"`
	Description       string          `gorm:"type:varchar(255);not null"`
	OrderID           *uuid.UUID      `gorm:"type:uuid;index"`
	OrderNumber       string          `gorm:"type:varchar(32)"`
	CustomerID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	PaymentTypeID     *uuid.UUID      `gorm:"type:uuid"`
	PaymentTermID     *uuid.UUID      `gorm:"type:uuid"`
	TotalAmount       decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	PaidAmount        decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	OutstandingAmount decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	IssueDate         time.Time       `gorm:"not null"`
	DueDate           time.Time       `gorm:"not null;index"`
	Status            string          `gorm:"type:varchar(16);not null;index"`
	PaidAt            *time.Time
	CancelledAt       *time.Time
	CancelReason      string             `gorm:"type:varchar(255)"`
	Notes             string             `gorm:"type:text"`
	Installments      []InstallmentModel `gorm:"foreignKey:ReceivableID"`
}

// TableName specifies the table name
func (ReceivableModel) TableName() string {
	return "receivables"
}

// ToDomain converts the model to a domain Receivable
func (m *ReceivableModel) ToDomain() *receivable.Receivable {
	r := &receivable.Receivable{
		ReceivableNumber:  m.ReceivableNumber,
		Description:       m.Description,
		OrderID:           m.OrderID,
		OrderNumber:       m.OrderNumber,
		CustomerID:        m.CustomerID,
		PaymentTypeID:     m.PaymentTypeID,
		PaymentTermID:     m.PaymentTermID,
		TotalAmount:       m.TotalAmount,
		PaidAmount:        m.PaidAmount,
		OutstandingAmount: m.OutstandingAmount,
		IssueDate:         m.IssueDate,
		DueDate:           m.DueDate,
		Status:            receivable.Status(m.Status),
		PaidAt:            m.PaidAt,
		CancelledAt:       m.CancelledAt,
		CancelReason:      m.CancelReason,
		Notes:             m.Notes,
	}
	m.PopulateTenantAggregateRoot(&r.TenantAggregateRoot)
	r.Installments = make([]receivable.Installment, len(m.Installments))
	for i := range m.Installments {
		r.Installments[i] = *m.Installments[i].ToDomain()
	}
	return r
}

// ReceivableModelFromDomain converts a domain Receivable to the model
func ReceivableModelFromDomain(r *receivable.Receivable) *ReceivableModel {
	m := &ReceivableModel{
		ReceivableNumber:  r.ReceivableNumber,
		Description:       r.Description,
		OrderID:           r.OrderID,
		OrderNumber:       r.OrderNumber,
		CustomerID:        r.CustomerID,
		PaymentTypeID:     r.PaymentTypeID,
		PaymentTermID:     r.PaymentTermID,
		TotalAmount:       r.TotalAmount,
		PaidAmount:        r.PaidAmount,
		OutstandingAmount: r.OutstandingAmount,
		IssueDate:         r.IssueDate,
		DueDate:           r.DueDate,
		Status:            r.Status.String(),
		PaidAt:            r.PaidAt,
		CancelledAt:       r.CancelledAt,
		CancelReason:      r.CancelReason,
		Notes:             r.Notes,
	}
	m.FromDomainTenantAggregateRoot(r.TenantAggregateRoot)
	m.Installments = make([]InstallmentModel, len(r.Installments))
	for i := range r.Installments {
		m.Installments[i] = *InstallmentModelFromDomain(&r.Installments[i])
	}
	return m
}

// InstallmentModel is the persistence model for installments
type InstallmentModel struct {
	BaseModel
	ReceivableID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	Number            int             `gorm:"not null"`
	Amount            decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	PaidAmount        decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	OutstandingAmount decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	DueDate           time.Time       `gorm:"not null;index"`
	Status            string          `gorm:"type:varchar(16);not null;index"`
	PaidAt            *time.Time
	Notes             string `gorm:"type:text"`
}

// TableName specifies the table name
func (InstallmentModel) TableName() string {
	return "receivable_installments"
}

// ToDomain converts the model to a domain Installment
func (m *InstallmentModel) ToDomain() *receivable.Installment {
	return &receivable.Installment{
		BaseEntity:        m.BaseModel.ToDomain(),
		ReceivableID:      m.ReceivableID,
		Number:            m.Number,
		Amount:            m.Amount,
		PaidAmount:        m.PaidAmount,
		OutstandingAmount: m.OutstandingAmount,
		DueDate:           m.DueDate,
		Status:            receivable.Status(m.Status),
		PaidAt:            m.PaidAt,
		Notes:             m.Notes,
	}
}

// InstallmentModelFromDomain converts a domain Installment to the model
func InstallmentModelFromDomain(i *receivable.Installment) *InstallmentModel {
	m := &InstallmentModel{
		ReceivableID:      i.ReceivableID,
		Number:            i.Number,
		Amount:            i.Amount,
		PaidAmount:        i.PaidAmount,
		OutstandingAmount: i.OutstandingAmount,
		DueDate:           i.DueDate,
		Status:            i.Status.String(),
		PaidAt:            i.PaidAt,
		Notes:             i.Notes,
	}
	m.FromDomainBaseEntity(i.BaseEntity)
	return m
}

// PaymentModel is the persistence model for payment records
type PaymentModel struct {
	TenantAggregateModel
	PaymentNumber  string          `gorm:"type:varchar(32);not null;index"`
	ReceivableID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	InstallmentID  *uuid.UUID      `gorm:"type:uuid;index"`
	Kind           string          `gorm:"type:varchar(16);not null"`
	Amount         decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	AppliedAmount  decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	Interest       decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	Discount       decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	Fine           decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	Fee            decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	Method         string          `gorm:"type:varchar(32);not null"`
	Reference      string          `gorm:"type:varchar(128)"`
	PaymentDate    time.Time       `gorm:"not null;index"`
	Notes          string          `gorm:"type:text"`
	ReceivedBy     *uuid.UUID      `gorm:"type:uuid"`
	Status         string          `gorm:"type:varchar(16);not null;index"`
	ReversedAt     *time.Time
	ReversalReason string `gorm:"type:varchar(255)"`
}

// TableName specifies the table name
func (PaymentModel) TableName() string {
	return "receivable_payments"
}

// ToDomain converts the model to a domain Payment
func (m *PaymentModel) ToDomain() *receivable.Payment {
	p := &receivable.Payment{
		PaymentNumber: m.PaymentNumber,
		ReceivableID:  m.ReceivableID,
		InstallmentID: m.InstallmentID,
		Kind:          receivable.PaymentKind(m.Kind),
		Amount:        m.Amount,
		AppliedAmount: m.AppliedAmount,
		Adjustments: receivable.PaymentAdjustments{
			Interest: m.Interest,
			Discount: m.Discount,
			Fine:     m.Fine,
			Fee:      m.Fee,
		},
		Method:         m.Method,
		Reference:      m.Reference,
		PaymentDate:    m.PaymentDate,
		Notes:          m.Notes,
		ReceivedBy:     m.ReceivedBy,
		Status:         receivable.PaymentStatus(m.Status),
		ReversedAt:     m.ReversedAt,
		ReversalReason: m.ReversalReason,
	}
	m.PopulateTenantAggregateRoot(&p.TenantAggregateRoot)
	return p
}

// PaymentModelFromDomain converts a domain Payment to the model
func PaymentModelFromDomain(p *receivable.Payment) *PaymentModel {
	m := &PaymentModel{
		PaymentNumber:  p.PaymentNumber,
		ReceivableID:   p.ReceivableID,
		InstallmentID:  p.InstallmentID,
		Kind:           string(p.Kind),
		Amount:         p.Amount,
		AppliedAmount:  p.AppliedAmount,
		Interest:       p.Adjustments.Interest,
		Discount:       p.Adjustments.Discount,
		Fine:           p.Adjustments.Fine,
		Fee:            p.Adjustments.Fee,
		Method:         p.Method,
		Reference:      p.Reference,
		PaymentDate:    p.PaymentDate,
		Notes:          p.Notes,
		ReceivedBy:     p.ReceivedBy,
		Status:         string(p.Status),
		ReversedAt:     p.ReversedAt,
		ReversalReason: p.ReversalReason,
	}
	m.FromDomainTenantAggregateRoot(p.TenantAggregateRoot)
	return m
}

// OrderModel is the read-side projection of sales orders the receivables
// subsystem consumes. Order CRUD lives elsewhere; this table is only read
// and has its accounts_launched flag toggled here.
type OrderModel struct {
	BaseModel
	TenantID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	OrderNumber      string          `gorm:"type:varchar(32);not null;index"`
	CustomerID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	SellerID         *uuid.UUID      `gorm:"type:uuid;index"`
	TotalAmount      decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	OrderDate        time.Time       `gorm:"not null"`
	AccountsLaunched bool            `gorm:"not null;default:false"`
}

// TableName specifies the table name
func (OrderModel) TableName() string {
	return "orders"
}

// ToSummary converts the model to the billing view of the order
func (m *OrderModel) ToSummary() *order.Summary {
	return &order.Summary{
		ID:               m.ID,
		TenantID:         m.TenantID,
		OrderNumber:      m.OrderNumber,
		CustomerID:       m.CustomerID,
		SellerID:         m.SellerID,
		TotalAmount:      m.TotalAmount,
		OrderDate:        m.OrderDate,
		AccountsLaunched: m.AccountsLaunched,
	}
}

// PaymentTermModel is the read-side projection of the payment term catalog.
// Terms are maintained elsewhere; the receivables subsystem only resolves
// them into schedule parameters.
type PaymentTermModel struct {
	BaseModel
	TenantID         uuid.UUID `gorm:"type:uuid;not null;index"`
	Name             string    `gorm:"type:varchar(64);not null"`
	InstallmentCount int       `gorm:"not null"`
	IntervalDays     int       `gorm:"not null"`
	FirstPaymentDays int       `gorm:"not null;default:0"`
	Active           bool      `gorm:"not null;default:true"`
}

// TableName specifies the table name
func (PaymentTermModel) TableName() string {
	return "payment_terms"
}

// ToTerm converts the model to the schedule view of the term
func (m *PaymentTermModel) ToTerm() *paymentterm.Term {
	return &paymentterm.Term{
		ID:               m.ID,
		TenantID:         m.TenantID,
		Name:             m.Name,
		InstallmentCount: m.InstallmentCount,
		IntervalDays:     m.IntervalDays,
		FirstPaymentDays: m.FirstPaymentDays,
		Active:           m.Active,
	}
}
