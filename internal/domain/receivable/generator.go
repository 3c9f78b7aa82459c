package receivable

import (
	"fmt"
	"time"

	"github.com/commerce/backend/internal/domain/shared"
	"github.com/commerce/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// DefaultIntervalDays is the spacing between consecutive installments when
// the payment term does not specify one.
const DefaultIntervalDays = 30

// PaymentTerm describes how a total breaks into an installment schedule.
// FirstPaymentDays of zero makes the first installment due on the issue
// date (cash-like terms).
type PaymentTerm struct {
	ID               string `json:"id,omitempty"`
	Name             string `json:"name"`
	InstallmentCount int    `json:"installment_count"`
	IntervalDays     int    `json:"interval_days"`
	FirstPaymentDays int    `json:"first_payment_days"`
}

// Validate checks the term is usable for schedule generation
func (t PaymentTerm) Validate() error {
	if t.InstallmentCount < 1 {
		return shared.NewDomainError("INVALID_TERM", "Installment count must be at least 1")
	}
	if t.IntervalDays < 0 || t.FirstPaymentDays < 0 {
		return shared.NewDomainError("INVALID_TERM", "Term day offsets cannot be negative")
	}
	return nil
}

// CustomTerm builds an ad-hoc term for the given installment count using
// the default 30-day interval, for manual entries without a stored term.
func CustomTerm(installmentCount int) PaymentTerm {
	return PaymentTerm{
		Name:             fmt.Sprintf("%dx", installmentCount),
		InstallmentCount: installmentCount,
		IntervalDays:     DefaultIntervalDays,
		FirstPaymentDays: 0,
	}
}

// GenerateInstallments splits a total into the term's installment schedule.
// Amounts are cent-exact and always sum to the total; when the division
// leaves remainder cents they land on the last installment. Due dates run
// from issueDate + FirstPaymentDays, spaced IntervalDays apart.
func GenerateInstallments(total valueobject.Money, issueDate time.Time, term PaymentTerm) ([]Installment, error) {
	if !total.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Total amount must be positive")
	}
	if err := term.Validate(); err != nil {
		return nil, err
	}

	parts, err := total.Split(term.InstallmentCount)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_TERM", err.Error())
	}

	firstDue := issueDate.AddDate(0, 0, term.FirstPaymentDays)
	installments := make([]Installment, term.InstallmentCount)
	for k := range installments {
		amount := parts[k].Amount()
		installments[k] = Installment{
			BaseEntity:        shared.NewBaseEntity(),
			Number:            k + 1,
			Amount:            amount,
			PaidAmount:        decimal.Zero,
			OutstandingAmount: amount,
			DueDate:           firstDue.AddDate(0, 0, k*term.IntervalDays),
			Status:            StatusOpen,
		}
	}
	return installments, nil
}
