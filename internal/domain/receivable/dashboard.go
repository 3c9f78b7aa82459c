package receivable

import (
	"fmt"
	"sort"
	"time"

	"github.com/commerce/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PeriodFilter selects the due-date window for dashboard aggregation
type PeriodFilter string

const (
	PeriodAll     PeriodFilter = "all"
	PeriodToday   PeriodFilter = "today"
	PeriodWeek    PeriodFilter = "week"
	PeriodMonth   PeriodFilter = "month"
	PeriodQuarter PeriodFilter = "quarter"
	PeriodYear    PeriodFilter = "year"
	PeriodCustom  PeriodFilter = "custom"
)

// IsValid checks if the period is a known PeriodFilter
func (p PeriodFilter) IsValid() bool {
	switch p {
	case PeriodAll, PeriodToday, PeriodWeek, PeriodMonth, PeriodQuarter, PeriodYear, PeriodCustom:
		return true
	}
	return false
}

// Seller filter sentinels. Anything else in FilterCriteria.Seller is
// parsed as a seller UUID.
const (
	SellerAll  = "all"
	SellerNone = "none"
)

// FilterCriteria narrows the installment set feeding the dashboard
type FilterCriteria struct {
	Period   PeriodFilter `json:"period"`
	DateFrom *time.Time   `json:"date_from,omitempty"` // custom period only
	DateTo   *time.Time   `json:"date_to,omitempty"`   // custom period only
	Seller   string       `json:"seller"`              // "all", "none", or a seller UUID
}

// DefaultFilterCriteria matches everything
func DefaultFilterCriteria() FilterCriteria {
	return FilterCriteria{Period: PeriodAll, Seller: SellerAll}
}

// Validate checks the criteria are coherent
func (c FilterCriteria) Validate() error {
	if !c.Period.IsValid() {
		return shared.NewDomainError("INVALID_PERIOD", "Unknown period filter")
	}
	if c.Period == PeriodCustom && c.DateFrom == nil && c.DateTo == nil {
		return shared.NewDomainError("INVALID_PERIOD", "Custom period requires at least one of date_from or date_to")
	}
	if c.Seller != SellerAll && c.Seller != SellerNone {
		if _, err := uuid.Parse(c.Seller); err != nil {
			return shared.NewDomainError("INVALID_SELLER", "Seller filter must be 'all', 'none' or a seller ID")
		}
	}
	return nil
}

// DateRange resolves the criteria's due-date window at the reference time.
// Named periods run from the period start through the end of today; weeks
// start on Sunday. Nil bounds mean unbounded.
func (c FilterCriteria) DateRange(now time.Time) (from, to *time.Time) {
	endOfToday := EndOfDay(now)
	today := StartOfDay(now)

	switch c.Period {
	case PeriodToday:
		return &today, &endOfToday
	case PeriodWeek:
		start := today.AddDate(0, 0, -int(now.Weekday()))
		return &start, &endOfToday
	case PeriodMonth:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return &start, &endOfToday
	case PeriodQuarter:
		quarterMonth := time.Month((int(now.Month())-1)/3*3 + 1)
		start := time.Date(now.Year(), quarterMonth, 1, 0, 0, 0, 0, now.Location())
		return &start, &endOfToday
	case PeriodYear:
		start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
		return &start, &endOfToday
	case PeriodCustom:
		if c.DateFrom != nil {
			start := StartOfDay(*c.DateFrom)
			from = &start
		}
		if c.DateTo != nil {
			end := EndOfDay(*c.DateTo)
			to = &end
		}
		return from, to
	default:
		return nil, nil
	}
}

// EnrichedInstallment is an installment joined with the receivable and
// order context the dashboard and listings need.
type EnrichedInstallment struct {
	Installment
	ReceivableNumber string     `json:"receivable_number"`
	ReceivableStatus Status     `json:"receivable_status"`
	Description      string     `json:"description"`
	CustomerID       uuid.UUID  `json:"customer_id"`
	OrderID          *uuid.UUID `json:"order_id,omitempty"`
	OrderNumber      string     `json:"order_number,omitempty"`
	SellerID         *uuid.UUID `json:"seller_id,omitempty"`
	InstallmentCount int        `json:"installment_count"`
}

// DisplayNumber renders the listing identifier as <document>/<NNN>, the
// document being the order number when the installment came from an order
// and the receivable number otherwise.
func (e EnrichedInstallment) DisplayNumber() string {
	doc := e.OrderNumber
	if doc == "" {
		doc = e.ReceivableNumber
	}
	return fmt.Sprintf("%s/%03d", doc, e.Number)
}

// MatchesSeller applies the criteria's seller filter to the installment
func (e EnrichedInstallment) MatchesSeller(seller string) bool {
	switch seller {
	case SellerAll:
		return true
	case SellerNone:
		return e.SellerID == nil
	default:
		return e.SellerID != nil && e.SellerID.String() == seller
	}
}

// DashboardSummary carries the aggregate figures for the filtered set
type DashboardSummary struct {
	TotalPending     decimal.Decimal `json:"total_pending"`  // outstanding on ABERTA and PARCIAL
	TotalOverdue     decimal.Decimal `json:"total_overdue"`  // outstanding on overdue subset
	TotalReceived    decimal.Decimal `json:"total_received"` // amounts of PAGA installments
	OverdueCount     int             `json:"overdue_count"`
	InstallmentCount int             `json:"installment_count"`
}

// DashboardView is the full dashboard payload for one criteria evaluation
type DashboardView struct {
	Summary     DashboardSummary      `json:"summary"`
	Overdue     []EnrichedInstallment `json:"overdue"`
	Upcoming    []EnrichedInstallment `json:"upcoming"`
	Criteria    FilterCriteria        `json:"criteria"`
	GeneratedAt time.Time             `json:"generated_at"`
}

// BuildDashboard aggregates the installment set under the given criteria.
// Cancelled installments count toward InstallmentCount but never toward the
// money aggregates; reversed payments are already excluded because paid
// amounts are read from installment state.
func BuildDashboard(installments []EnrichedInstallment, criteria FilterCriteria, now time.Time) DashboardView {
	from, to := criteria.DateRange(now)

	summary := DashboardSummary{
		TotalPending:  decimal.Zero,
		TotalOverdue:  decimal.Zero,
		TotalReceived: decimal.Zero,
	}
	var overdue, upcoming []EnrichedInstallment

	for _, inst := range installments {
		if !inst.MatchesSeller(criteria.Seller) {
			continue
		}
		if from != nil && inst.DueDate.Before(*from) {
			continue
		}
		if to != nil && !inst.DueDate.Before(*to) {
			continue
		}

		summary.InstallmentCount++

		if inst.Status == StatusCancelled {
			continue
		}

		if inst.Status == StatusPaid {
			summary.TotalReceived = summary.TotalReceived.Add(inst.Amount)
			continue
		}

		summary.TotalPending = summary.TotalPending.Add(inst.OutstandingAmount)
		if inst.IsOverdue(now) {
			summary.TotalOverdue = summary.TotalOverdue.Add(inst.OutstandingAmount)
			summary.OverdueCount++
			overdue = append(overdue, inst)
		} else {
			upcoming = append(upcoming, inst)
		}
	}

	byDueDate := func(list []EnrichedInstallment) func(i, j int) bool {
		return func(i, j int) bool {
			if list[i].DueDate.Equal(list[j].DueDate) {
				return list[i].DisplayNumber() < list[j].DisplayNumber()
			}
			return list[i].DueDate.Before(list[j].DueDate)
		}
	}
	sort.Slice(overdue, byDueDate(overdue))
	sort.Slice(upcoming, byDueDate(upcoming))

	return DashboardView{
		Summary:     summary,
		Overdue:     overdue,
		Upcoming:    upcoming,
		Criteria:    criteria,
		GeneratedAt: now,
	}
}
