package receivable

import "github.com/shopspring/decimal"

// DivergenceReport compares a receivable's installment total against the
// total of its originating order. Divergence is advisory: edits are saved
// regardless, the report just surfaces the gap.
type DivergenceReport struct {
	OrderTotal        decimal.Decimal `json:"order_total"`
	InstallmentsTotal decimal.Decimal `json:"installments_total"`
	Difference        decimal.Decimal `json:"difference"` // installments minus order, signed
	Diverges          bool            `json:"diverges"`
}

// CheckOrderDivergence builds the report for the given totals. Differences
// under one cent count as aligned.
func CheckOrderDivergence(orderTotal, installmentsTotal decimal.Decimal) DivergenceReport {
	diff := installmentsTotal.Sub(orderTotal)
	return DivergenceReport{
		OrderTotal:        orderTotal,
		InstallmentsTotal: installmentsTotal,
		Difference:        diff,
		Diverges:          diff.Abs().GreaterThanOrEqual(editEpsilon),
	}
}
