package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// ReceivableSortFields contains allowed sort fields for receivables
var ReceivableSortFields = map[string]bool{
	"id":                true,
	"created_at":        true,
	"updated_at":        true,
	"receivable_number": true,
	"customer_id":       true,
	"order_number":      true,
	"total_amount":      true,
	"paid_amount":       true,
	"issue_date":        true,
	"due_date":          true,
	"status":            true,
}

// InstallmentSortFields contains allowed sort fields for installments
var InstallmentSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"number":     true,
	"amount":     true,
	"due_date":   true,
	"status":     true,
}

// PaymentSortFields contains allowed sort fields for payments
var PaymentSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"updated_at":     true,
	"payment_number": true,
	"amount":         true,
	"applied_amount": true,
	"payment_date":   true,
	"method":         true,
	"status":         true,
}
