package receivable

import (
	"fmt"
	"sort"
	"time"

	"github.com/commerce/backend/internal/domain/shared"
	"github.com/commerce/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents the stored status of a receivable or installment
type Status string

const (
	StatusOpen      Status = "ABERTA"    // No payment applied yet
	StatusPartial   Status = "PARCIAL"   // Partially paid, 0 < paid < total
	StatusPaid      Status = "PAGA"      // Fully paid, outstanding = 0
	StatusCancelled Status = "CANCELADA" // Cancelled, irreversible
)

// DisplayStatusOverdue is the derived display label for overdue open/partial
// records. It is never stored; see DisplayStatus.
const DisplayStatusOverdue = "VENCIDA"

// IsValid checks if the status is a valid Status
func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusPartial, StatusPaid, StatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true if the status is a terminal state
func (s Status) IsTerminal() bool {
	return s == StatusPaid || s == StatusCancelled
}

// CanApplyPayment returns true if payments can be applied in this status
func (s Status) CanApplyPayment() bool {
	return s == StatusOpen || s == StatusPartial
}

// editEpsilon is the threshold below which an amount edit is treated as a
// no-op (sub-cent differences carry no billing meaning).
var editEpsilon = decimal.NewFromFloat(0.01)

// Installment is one scheduled sub-payment of a Receivable. It lives inside
// the Receivable aggregate; all mutations go through the aggregate root so
// the parent totals stay consistent.
type Installment struct {
	shared.BaseEntity
	ReceivableID      uuid.UUID       `json:"receivable_id"`
	Number            int             `json:"number"` // 1-based, unique within the receivable
	Amount            decimal.Decimal `json:"amount"`
	PaidAmount        decimal.Decimal `json:"paid_amount"`
	OutstandingAmount decimal.Decimal `json:"outstanding_amount"`
	DueDate           time.Time       `json:"due_date"`
	Status            Status          `json:"status"`
	PaidAt            *time.Time      `json:"paid_at,omitempty"`
	Notes             string          `json:"notes,omitempty"`
}

// IsOverdue reports whether the installment is past due at the given time.
// Derived on every read, never stored.
func (i *Installment) IsOverdue(now time.Time) bool {
	return IsOverdue(i.Status, i.DueDate, now)
}

// DisplayStatus returns the user-facing status label at the given time
func (i *Installment) DisplayStatus(now time.Time) string {
	return DisplayStatus(i.Status, i.DueDate, now)
}

// applyPayment applies the given amount against the installment's
// outstanding balance and updates its status.
func (i *Installment) applyPayment(amount valueobject.Money) error {
	if !i.Status.CanApplyPayment() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot apply payment to installment in %s status", i.Status))
	}
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if amount.Amount().GreaterThan(i.OutstandingAmount) {
		return shared.NewDomainError("EXCEEDS_OUTSTANDING",
			fmt.Sprintf("Payment amount %s exceeds outstanding amount %s", amount.StringFixed(2), i.OutstandingAmount.StringFixed(2)))
	}

	i.PaidAmount = i.PaidAmount.Add(amount.Amount())
	i.OutstandingAmount = i.Amount.Sub(i.PaidAmount)

	if i.OutstandingAmount.IsZero() {
		now := time.Now()
		i.Status = StatusPaid
		i.PaidAt = &now
	} else {
		i.Status = StatusPartial
	}
	i.UpdatedAt = time.Now()
	return nil
}

// revertPayment undoes a previously applied amount, restoring the
// installment's balances and status to their pre-payment shape.
func (i *Installment) revertPayment(amount valueobject.Money) error {
	if amount.Amount().GreaterThan(i.PaidAmount) {
		return shared.NewDomainError("INVALID_REVERSAL",
			fmt.Sprintf("Reversal amount %s exceeds paid amount %s", amount.StringFixed(2), i.PaidAmount.StringFixed(2)))
	}

	i.PaidAmount = i.PaidAmount.Sub(amount.Amount())
	i.OutstandingAmount = i.Amount.Sub(i.PaidAmount)
	i.PaidAt = nil

	if i.PaidAmount.IsZero() {
		i.Status = StatusOpen
	} else {
		i.Status = StatusPartial
	}
	i.UpdatedAt = time.Now()
	return nil
}

// Receivable is the aggregate root for a billing record: money owed by a
// customer, split into one or more installments, settled by payments.
type Receivable struct {
	shared.TenantAggregateRoot
	ReceivableNumber  string          `json:"receivable_number"`
	Description       string          `json:"description"`
	OrderID           *uuid.UUID      `json:"order_id,omitempty"` // Originating sales order, nil for manual entries
	OrderNumber       string          `json:"order_number,omitempty"`
	CustomerID        uuid.UUID       `json:"customer_id"`
	PaymentTypeID     *uuid.UUID      `json:"payment_type_id,omitempty"`
	PaymentTermID     *uuid.UUID      `json:"payment_term_id,omitempty"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	PaidAmount        decimal.Decimal `json:"paid_amount"`
	OutstandingAmount decimal.Decimal `json:"outstanding_amount"`
	IssueDate         time.Time       `json:"issue_date"`
	DueDate           time.Time       `json:"due_date"` // Earliest unpaid installment due date
	Status            Status          `json:"status"`
	PaidAt            *time.Time      `json:"paid_at,omitempty"`
	CancelledAt       *time.Time      `json:"cancelled_at,omitempty"`
	CancelReason      string          `json:"cancel_reason,omitempty"`
	Notes             string          `json:"notes,omitempty"`
	Installments      []Installment   `json:"installments"`
}

// NewReceivable creates a new receivable with its installment schedule.
// The installments are usually produced by GenerateInstallments; their sum
// must equal the total amount exactly.
func NewReceivable(
	tenantID uuid.UUID,
	receivableNumber string,
	customerID uuid.UUID,
	description string,
	totalAmount valueobject.Money,
	issueDate time.Time,
	installments []Installment,
) (*Receivable, error) {
	if receivableNumber == "" {
		return nil, shared.NewDomainError("INVALID_RECEIVABLE_NUMBER", "Receivable number cannot be empty")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if !totalAmount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Total amount must be positive")
	}
	if len(installments) == 0 {
		return nil, shared.NewDomainError("INVALID_INSTALLMENTS", "At least one installment is required")
	}

	sum := decimal.Zero
	for _, inst := range installments {
		sum = sum.Add(inst.Amount)
	}
	if !sum.Equal(totalAmount.Amount()) {
		return nil, shared.NewDomainError("INSTALLMENT_SUM_MISMATCH",
			fmt.Sprintf("Installments sum %s does not match total amount %s", sum.StringFixed(2), totalAmount.StringFixed(2)))
	}

	r := &Receivable{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		ReceivableNumber:    receivableNumber,
		Description:         description,
		CustomerID:          customerID,
		TotalAmount:         totalAmount.Amount(),
		PaidAmount:          decimal.Zero,
		OutstandingAmount:   totalAmount.Amount(),
		IssueDate:           issueDate,
		Status:              StatusOpen,
		Installments:        make([]Installment, len(installments)),
	}
	copy(r.Installments, installments)
	for idx := range r.Installments {
		r.Installments[idx].ReceivableID = r.ID
	}
	r.DueDate = r.earliestDueDate()

	r.AddDomainEvent(NewReceivableCreatedEvent(r))
	return r, nil
}

// LinkOrder associates the receivable with its originating sales order
func (r *Receivable) LinkOrder(orderID uuid.UUID, orderNumber string) {
	r.OrderID = &orderID
	r.OrderNumber = orderNumber
}

// FindInstallment returns a pointer into the aggregate's installment slice
func (r *Receivable) FindInstallment(installmentID uuid.UUID) (*Installment, error) {
	for idx := range r.Installments {
		if r.Installments[idx].ID == installmentID {
			return &r.Installments[idx], nil
		}
	}
	return nil, shared.ErrNotFound
}

// ApplyPaymentToInstallment applies a payment amount against one specific
// installment and recomputes the receivable aggregates from the installment
// set.
func (r *Receivable) ApplyPaymentToInstallment(installmentID uuid.UUID, amount valueobject.Money) error {
	if !r.Status.CanApplyPayment() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot apply payment to receivable in %s status", r.Status))
	}

	inst, err := r.FindInstallment(installmentID)
	if err != nil {
		return shared.NewDomainError("INSTALLMENT_NOT_FOUND", "Installment not found in receivable")
	}
	if err := inst.applyPayment(amount); err != nil {
		return err
	}

	r.recalculate()
	r.AddDomainEvent(NewPaymentAppliedEvent(r, inst.ID, amount.Amount()))
	if r.Status == StatusPaid {
		r.AddDomainEvent(NewReceivablePaidEvent(r))
	}
	return nil
}

// ApplyPayment applies a general (not installment-specific) payment. The
// amount is allocated against open installments oldest due date first, so
// both the receivable and every installment keep the conservation
// invariant amount == paid + outstanding.
func (r *Receivable) ApplyPayment(amount valueobject.Money) error {
	if !r.Status.CanApplyPayment() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot apply payment to receivable in %s status", r.Status))
	}
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if amount.Amount().GreaterThan(r.OutstandingAmount) {
		return shared.NewDomainError("EXCEEDS_OUTSTANDING",
			fmt.Sprintf("Payment amount %s exceeds outstanding amount %s", amount.StringFixed(2), r.OutstandingAmount.StringFixed(2)))
	}

	remaining := amount.Amount()
	for _, inst := range r.installmentsByDueDate() {
		if remaining.IsZero() {
			break
		}
		if !inst.Status.CanApplyPayment() {
			continue
		}
		slice := decimal.Min(remaining, inst.OutstandingAmount)
		if err := inst.applyPayment(valueobject.NewMoneyBRL(slice)); err != nil {
			return err
		}
		remaining = remaining.Sub(slice)
	}

	r.recalculate()
	r.AddDomainEvent(NewPaymentAppliedEvent(r, uuid.Nil, amount.Amount()))
	if r.Status == StatusPaid {
		r.AddDomainEvent(NewReceivablePaidEvent(r))
	}
	return nil
}

// RevertPayment undoes a payment's effect. For installment-targeted
// payments the compensation is applied to that installment; general
// payments are reverted newest due date first, mirroring the allocation
// order of ApplyPayment.
func (r *Receivable) RevertPayment(installmentID *uuid.UUID, amount valueobject.Money) error {
	if r.Status == StatusCancelled {
		return shared.NewDomainError("INVALID_STATE", "Cannot revert payment on a cancelled receivable")
	}

	if installmentID != nil {
		inst, err := r.FindInstallment(*installmentID)
		if err != nil {
			return shared.NewDomainError("INSTALLMENT_NOT_FOUND", "Installment not found in receivable")
		}
		if err := inst.revertPayment(amount); err != nil {
			return err
		}
	} else {
		remaining := amount.Amount()
		ordered := r.installmentsByDueDate()
		for idx := len(ordered) - 1; idx >= 0 && !remaining.IsZero(); idx-- {
			inst := ordered[idx]
			if inst.PaidAmount.IsZero() {
				continue
			}
			slice := decimal.Min(remaining, inst.PaidAmount)
			if err := inst.revertPayment(valueobject.NewMoneyBRL(slice)); err != nil {
				return err
			}
			remaining = remaining.Sub(slice)
		}
		if !remaining.IsZero() {
			return shared.NewDomainError("INVALID_REVERSAL", "Reversal amount exceeds total paid amount")
		}
	}

	r.recalculate()
	r.AddDomainEvent(NewPaymentReversedEvent(r, installmentID, amount.Amount()))
	return nil
}

// EditResult reports an installment edit outcome, including the advisory
// divergence check against the originating order total.
type EditResult struct {
	Changed           bool            `json:"changed"`
	InstallmentsTotal decimal.Decimal `json:"installments_total"`
}

// EditInstallment changes an installment's amount and/or due date.
// Differences below one cent are treated as no changes. Editing an amount
// does not rebalance sibling installments; the total is re-based on the
// installment sum and the caller surfaces any divergence from the
// originating order.
func (r *Receivable) EditInstallment(installmentID uuid.UUID, newAmount *decimal.Decimal, newDueDate *time.Time, notes string) (*EditResult, error) {
	inst, err := r.FindInstallment(installmentID)
	if err != nil {
		return nil, shared.NewDomainError("INSTALLMENT_NOT_FOUND", "Installment not found in receivable")
	}
	if inst.Status.IsTerminal() {
		return nil, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot edit installment in %s status", inst.Status))
	}

	amountChanged := newAmount != nil && newAmount.Sub(inst.Amount).Abs().GreaterThanOrEqual(editEpsilon)
	dueDateChanged := newDueDate != nil && !StartOfDay(*newDueDate).Equal(StartOfDay(inst.DueDate))
	if !amountChanged && !dueDateChanged {
		return nil, shared.ErrNothingChanged
	}

	if amountChanged {
		if !newAmount.IsPositive() {
			return nil, shared.NewDomainError("INVALID_AMOUNT", "Installment amount must be positive")
		}
		if newAmount.LessThan(inst.PaidAmount) {
			return nil, shared.NewDomainError("INVALID_AMOUNT", "Installment amount cannot be lower than the amount already paid")
		}
		inst.Amount = *newAmount
		inst.OutstandingAmount = inst.Amount.Sub(inst.PaidAmount)
	}
	if dueDateChanged {
		inst.DueDate = *newDueDate
	}
	if notes != "" {
		inst.Notes = notes
	}
	inst.UpdatedAt = time.Now()

	r.TotalAmount = r.InstallmentsTotal()
	r.recalculate()
	return &EditResult{Changed: true, InstallmentsTotal: r.TotalAmount}, nil
}

// RemoveInstallment removes one installment from the aggregate. Paid
// installments must have their payments reversed first. Returns the number
// of installments remaining; the caller cascades the receivable deletion
// when zero remain.
func (r *Receivable) RemoveInstallment(installmentID uuid.UUID) (int, error) {
	idx := -1
	for i := range r.Installments {
		if r.Installments[i].ID == installmentID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return 0, shared.NewDomainError("INSTALLMENT_NOT_FOUND", "Installment not found in receivable")
	}
	if r.Installments[idx].Status == StatusPaid {
		return 0, shared.NewDomainError("INSTALLMENT_PAID", "Cannot delete a paid installment; reverse its payments first")
	}

	r.Installments = append(r.Installments[:idx], r.Installments[idx+1:]...)
	remaining := len(r.Installments)
	if remaining > 0 {
		r.TotalAmount = r.InstallmentsTotal()
		r.recalculate()
	}
	return remaining, nil
}

// Cancel cancels the receivable. Terminal and irreversible: open
// installments are marked cancelled too, paid ones keep their history.
func (r *Receivable) Cancel(reason string) error {
	if r.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel receivable in %s status", r.Status))
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Cancel reason is required")
	}

	now := time.Now()
	r.Status = StatusCancelled
	r.CancelledAt = &now
	r.CancelReason = reason
	for idx := range r.Installments {
		if !r.Installments[idx].Status.IsTerminal() {
			r.Installments[idx].Status = StatusCancelled
			r.Installments[idx].UpdatedAt = now
		}
	}
	r.UpdatedAt = now
	r.IncrementVersion()

	r.AddDomainEvent(NewReceivableCancelledEvent(r))
	return nil
}

// InstallmentsTotal returns the sum of all installment amounts
func (r *Receivable) InstallmentsTotal() decimal.Decimal {
	sum := decimal.Zero
	for idx := range r.Installments {
		sum = sum.Add(r.Installments[idx].Amount)
	}
	return sum
}

// IsOverdue reports whether the receivable is past due at the given time
func (r *Receivable) IsOverdue(now time.Time) bool {
	return IsOverdue(r.Status, r.DueDate, now)
}

// recalculate rebuilds the receivable's aggregate amounts, status, due
// date and paid-at from the installment set. Receivable status reflects
// the weakest installment: any unpaid installment keeps it out of PAGA.
func (r *Receivable) recalculate() {
	paid := decimal.Zero
	outstanding := decimal.Zero
	for idx := range r.Installments {
		paid = paid.Add(r.Installments[idx].PaidAmount)
		outstanding = outstanding.Add(r.Installments[idx].OutstandingAmount)
	}
	r.PaidAmount = paid
	r.OutstandingAmount = outstanding

	if r.Status == StatusCancelled {
		r.UpdatedAt = time.Now()
		r.IncrementVersion()
		return
	}

	switch {
	case outstanding.IsZero():
		if r.Status != StatusPaid {
			now := time.Now()
			r.PaidAt = &now
		}
		r.Status = StatusPaid
	case paid.IsPositive():
		r.Status = StatusPartial
		r.PaidAt = nil
	default:
		r.Status = StatusOpen
		r.PaidAt = nil
	}

	r.DueDate = r.earliestDueDate()
	r.UpdatedAt = time.Now()
	r.IncrementVersion()
}

// earliestDueDate returns the earliest unpaid installment due date, or the
// earliest overall when everything is settled.
func (r *Receivable) earliestDueDate() time.Time {
	var earliestUnpaid, earliest *time.Time
	for idx := range r.Installments {
		due := r.Installments[idx].DueDate
		if earliest == nil || due.Before(*earliest) {
			d := due
			earliest = &d
		}
		if r.Installments[idx].Status.CanApplyPayment() {
			if earliestUnpaid == nil || due.Before(*earliestUnpaid) {
				d := due
				earliestUnpaid = &d
			}
		}
	}
	if earliestUnpaid != nil {
		return *earliestUnpaid
	}
	if earliest != nil {
		return *earliest
	}
	return r.IssueDate
}

// installmentsByDueDate returns pointers to the installments ordered by due
// date then number, for deterministic general-payment allocation.
func (r *Receivable) installmentsByDueDate() []*Installment {
	ordered := make([]*Installment, len(r.Installments))
	for idx := range r.Installments {
		ordered[idx] = &r.Installments[idx]
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].DueDate.Equal(ordered[j].DueDate) {
			return ordered[i].Number < ordered[j].Number
		}
		return ordered[i].DueDate.Before(ordered[j].DueDate)
	})
	return ordered
}
