package event

import (
	"context"

	"github.com/commerce/backend/internal/domain/receivable"
	"github.com/commerce/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ReceivableAuditHandler writes an audit log line for every receivable
// lifecycle event. Financial mutations need a trace even when no other
// subscriber cares about the event.
type ReceivableAuditHandler struct {
	logger *zap.Logger
}

// NewReceivableAuditHandler creates a new audit handler
func NewReceivableAuditHandler(logger *zap.Logger) *ReceivableAuditHandler {
	return &ReceivableAuditHandler{logger: logger}
}

// Handle logs the event with its aggregate context
func (h *ReceivableAuditHandler) Handle(_ context.Context, evt shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_type", evt.EventType()),
		zap.String("event_id", evt.EventID().String()),
		zap.String("tenant_id", evt.TenantID().String()),
		zap.String("aggregate_id", evt.AggregateID().String()),
		zap.Time("occurred_at", evt.OccurredAt()),
	}

	switch e := evt.(type) {
	case *receivable.PaymentAppliedEvent:
		fields = append(fields,
			zap.String("installment_id", e.InstallmentID.String()),
			zap.String("amount", e.Amount.String()),
		)
	case *receivable.PaymentReversedEvent:
		fields = append(fields, zap.String("amount", e.Amount.String()))
		if e.InstallmentID != nil {
			fields = append(fields, zap.String("installment_id", e.InstallmentID.String()))
		}
	case *receivable.ReceivableCancelledEvent:
		fields = append(fields, zap.String("reason", e.Reason))
	case *receivable.ReceivableDeletedEvent:
		if e.OrderID != nil {
			fields = append(fields, zap.String("order_id", e.OrderID.String()))
		}
	}

	h.logger.Info("receivable event", fields...)
	return nil
}

// EventTypes subscribes to every receivable lifecycle event
func (h *ReceivableAuditHandler) EventTypes() []string {
	return []string{
		receivable.EventTypeReceivableCreated,
		receivable.EventTypeReceivablePaid,
		receivable.EventTypeReceivableCancelled,
		receivable.EventTypeReceivableDeleted,
		receivable.EventTypePaymentApplied,
		receivable.EventTypePaymentReversed,
	}
}

var _ shared.EventHandler = (*ReceivableAuditHandler)(nil)
