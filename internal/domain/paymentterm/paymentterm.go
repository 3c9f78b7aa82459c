// Package paymentterm exposes the read-side view of the tenant's payment
// term catalog. Term CRUD lives elsewhere; the receivables subsystem only
// resolves a term into its schedule parameters.
package paymentterm

import (
	"context"

	"github.com/google/uuid"
)

// Term is the slice of a payment term relevant to schedule generation
type Term struct {
	ID               uuid.UUID `json:"id"`
	TenantID         uuid.UUID `json:"tenant_id"`
	Name             string    `json:"name"`
	InstallmentCount int       `json:"installment_count"`
	IntervalDays     int       `json:"interval_days"`
	FirstPaymentDays int       `json:"first_payment_days"`
	Active           bool      `json:"active"`
}

// Gateway is the port the receivables subsystem uses to reach payment terms
type Gateway interface {
	// GetTerm loads a term by id. Returns (nil, nil) when it does not exist.
	GetTerm(ctx context.Context, tenantID, termID uuid.UUID) (*Term, error)
}
