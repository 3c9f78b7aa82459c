package receivable

import (
	"testing"
	"time"

	"github.com/commerce/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func enriched(number int, amount float64, due time.Time, status Status, sellerID *uuid.UUID) EnrichedInstallment {
	amt := decimal.NewFromFloat(amount)
	paid := decimal.Zero
	outstanding := amt
	if status == StatusPaid {
		paid, outstanding = amt, decimal.Zero
	}
	return EnrichedInstallment{
		Installment: Installment{
			BaseEntity:        shared.NewBaseEntity(),
			Number:            number,
			Amount:            amt,
			PaidAmount:        paid,
			OutstandingAmount: outstanding,
			DueDate:           due,
			Status:            status,
		},
		ReceivableNumber: "REC-20240101-00001",
		OrderNumber:      "287422",
		SellerID:         sellerID,
	}
}

func TestFilterCriteria_DateRange(t *testing.T) {
	// Wednesday
	now := time.Date(2024, time.June, 12, 15, 0, 0, 0, time.UTC)

	t.Run("all is unbounded", func(t *testing.T) {
		from, to := FilterCriteria{Period: PeriodAll}.DateRange(now)
		assert.Nil(t, from)
		assert.Nil(t, to)
	})

	t.Run("today", func(t *testing.T) {
		from, to := FilterCriteria{Period: PeriodToday}.DateRange(now)
		assert.Equal(t, date(2024, time.June, 12), *from)
		assert.Equal(t, date(2024, time.June, 13), *to)
	})

	t.Run("week starts on Sunday", func(t *testing.T) {
		from, _ := FilterCriteria{Period: PeriodWeek}.DateRange(now)
		assert.Equal(t, date(2024, time.June, 9), *from)
	})

	t.Run("week on a Sunday starts today", func(t *testing.T) {
		sunday := time.Date(2024, time.June, 9, 10, 0, 0, 0, time.UTC)
		from, _ := FilterCriteria{Period: PeriodWeek}.DateRange(sunday)
		assert.Equal(t, date(2024, time.June, 9), *from)
	})

	t.Run("month", func(t *testing.T) {
		from, _ := FilterCriteria{Period: PeriodMonth}.DateRange(now)
		assert.Equal(t, date(2024, time.June, 1), *from)
	})

	t.Run("quarter", func(t *testing.T) {
		from, _ := FilterCriteria{Period: PeriodQuarter}.DateRange(now)
		assert.Equal(t, date(2024, time.April, 1), *from)
	})

	t.Run("year", func(t *testing.T) {
		from, _ := FilterCriteria{Period: PeriodYear}.DateRange(now)
		assert.Equal(t, date(2024, time.January, 1), *from)
	})

	t.Run("custom", func(t *testing.T) {
		dateFrom := date(2024, time.March, 10)
		dateTo := date(2024, time.March, 20)
		from, to := FilterCriteria{Period: PeriodCustom, DateFrom: &dateFrom, DateTo: &dateTo}.DateRange(now)
		assert.Equal(t, date(2024, time.March, 10), *from)
		assert.Equal(t, date(2024, time.March, 21), *to)
	})

	t.Run("custom open-ended", func(t *testing.T) {
		dateFrom := date(2024, time.March, 10)
		from, to := FilterCriteria{Period: PeriodCustom, DateFrom: &dateFrom}.DateRange(now)
		assert.NotNil(t, from)
		assert.Nil(t, to)
	})
}

func TestFilterCriteria_Validate(t *testing.T) {
	tests := []struct {
		name     string
		criteria FilterCriteria
		ok       bool
	}{
		{"defaults", DefaultFilterCriteria(), true},
		{"seller uuid", FilterCriteria{Period: PeriodAll, Seller: uuid.New().String()}, true},
		{"seller none", FilterCriteria{Period: PeriodAll, Seller: SellerNone}, true},
		{"bad period", FilterCriteria{Period: "fortnight", Seller: SellerAll}, false},
		{"custom without bounds", FilterCriteria{Period: PeriodCustom, Seller: SellerAll}, false},
		{"bad seller", FilterCriteria{Period: PeriodAll, Seller: "vendedor-1"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.criteria.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestBuildDashboard_Aggregates(t *testing.T) {
	now := time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)
	installments := []EnrichedInstallment{
		enriched(1, 100.00, date(2024, time.June, 1), StatusOpen, nil),     // overdue
		enriched(2, 200.00, date(2024, time.June, 20), StatusOpen, nil),    // upcoming
		enriched(3, 150.00, date(2024, time.May, 10), StatusPaid, nil),     // received
		enriched(4, 80.00, date(2024, time.June, 5), StatusCancelled, nil), // counted, no money
	}

	view := BuildDashboard(installments, DefaultFilterCriteria(), now)

	assert.Equal(t, "300.00", view.Summary.TotalPending.StringFixed(2))
	assert.Equal(t, "100.00", view.Summary.TotalOverdue.StringFixed(2))
	assert.Equal(t, "150.00", view.Summary.TotalReceived.StringFixed(2))
	assert.Equal(t, 1, view.Summary.OverdueCount)
	assert.Equal(t, 4, view.Summary.InstallmentCount,
		"cancelled installments count, they just carry no money")
	require.Len(t, view.Overdue, 1)
	require.Len(t, view.Upcoming, 1)
}

func TestBuildDashboard_PartialCountsOutstandingOnly(t *testing.T) {
	now := time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)
	inst := enriched(1, 100.00, date(2024, time.June, 20), StatusPartial, nil)
	inst.PaidAmount = decimal.NewFromFloat(40)
	inst.OutstandingAmount = decimal.NewFromFloat(60)

	view := BuildDashboard([]EnrichedInstallment{inst}, DefaultFilterCriteria(), now)
	assert.Equal(t, "60.00", view.Summary.TotalPending.StringFixed(2))
}

func TestBuildDashboard_SellerFilter(t *testing.T) {
	now := time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)
	seller := uuid.New()
	installments := []EnrichedInstallment{
		enriched(1, 100.00, date(2024, time.June, 20), StatusOpen, &seller),
		enriched(2, 200.00, date(2024, time.June, 21), StatusOpen, nil),
	}

	t.Run("specific seller", func(t *testing.T) {
		view := BuildDashboard(installments, FilterCriteria{Period: PeriodAll, Seller: seller.String()}, now)
		assert.Equal(t, "100.00", view.Summary.TotalPending.StringFixed(2))
	})
	t.Run("none keeps unassigned", func(t *testing.T) {
		view := BuildDashboard(installments, FilterCriteria{Period: PeriodAll, Seller: SellerNone}, now)
		assert.Equal(t, "200.00", view.Summary.TotalPending.StringFixed(2))
	})
	t.Run("all keeps everything", func(t *testing.T) {
		view := BuildDashboard(installments, DefaultFilterCriteria(), now)
		assert.Equal(t, "300.00", view.Summary.TotalPending.StringFixed(2))
	})
}

func TestBuildDashboard_PeriodWindow(t *testing.T) {
	now := time.Date(2024, time.June, 12, 12, 0, 0, 0, time.UTC)
	installments := []EnrichedInstallment{
		enriched(1, 50.00, date(2024, time.June, 12), StatusOpen, nil),
		enriched(2, 70.00, date(2024, time.June, 13), StatusOpen, nil), // outside "today"
	}

	view := BuildDashboard(installments, FilterCriteria{Period: PeriodToday, Seller: SellerAll}, now)
	assert.Equal(t, "50.00", view.Summary.TotalPending.StringFixed(2))
	assert.Equal(t, 1, view.Summary.InstallmentCount)
}

func TestBuildDashboard_UpcomingSortedByDueDate(t *testing.T) {
	now := time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)
	installments := []EnrichedInstallment{
		enriched(1, 10.00, date(2024, time.July, 10), StatusOpen, nil),
		enriched(2, 10.00, date(2024, time.June, 20), StatusOpen, nil),
		enriched(3, 10.00, date(2024, time.June, 25), StatusOpen, nil),
	}

	view := BuildDashboard(installments, DefaultFilterCriteria(), now)
	require.Len(t, view.Upcoming, 3)
	assert.Equal(t, date(2024, time.June, 20), view.Upcoming[0].DueDate)
	assert.Equal(t, date(2024, time.June, 25), view.Upcoming[1].DueDate)
	assert.Equal(t, date(2024, time.July, 10), view.Upcoming[2].DueDate)
}

func TestEnrichedInstallment_DisplayNumber(t *testing.T) {
	inst := enriched(3, 10.00, date(2024, time.June, 20), StatusOpen, nil)
	assert.Equal(t, "287422/003", inst.DisplayNumber())

	inst.OrderNumber = ""
	assert.Equal(t, "REC-20240101-00001/003", inst.DisplayNumber())
}
