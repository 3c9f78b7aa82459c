// Package order exposes the read-side view of sales orders that the
// receivables subsystem needs: enough to generate installments from an
// order and to release the order for regeneration after a cleanup.
package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Summary is the slice of a sales order relevant to billing
type Summary struct {
	ID               uuid.UUID       `json:"id"`
	TenantID         uuid.UUID       `json:"tenant_id"`
	OrderNumber      string          `json:"order_number"`
	CustomerID       uuid.UUID       `json:"customer_id"`
	SellerID         *uuid.UUID      `json:"seller_id,omitempty"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	OrderDate        time.Time       `json:"order_date"`
	AccountsLaunched bool            `json:"accounts_launched"` // receivables already generated for this order
}

// Gateway is the port the receivables subsystem uses to reach orders
type Gateway interface {
	GetSummary(ctx context.Context, tenantID, orderID uuid.UUID) (*Summary, error)
	// MarkAccountsLaunched flags the order as billed so installments are
	// not generated twice.
	MarkAccountsLaunched(ctx context.Context, tenantID, orderID uuid.UUID) error
	// ClearAccountsLaunched releases the order after its receivables were
	// deleted, allowing regeneration.
	ClearAccountsLaunched(ctx context.Context, tenantID, orderID uuid.UUID) error
}
