package receivable

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/commerce/backend/internal/domain/receivable"
	"github.com/commerce/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// dashboardCacheTTL bounds staleness between mutations on other instances
// and their cache invalidation.
const dashboardCacheTTL = 5 * time.Minute

// QueryService serves the read side: dashboard, listings and details
type QueryService struct {
	receivableRepo receivable.ReceivableRepository
	paymentRepo    receivable.PaymentRepository
	cache          DashboardCache
	logger         *zap.Logger
}

// NewQueryService creates a new QueryService
func NewQueryService(
	receivableRepo receivable.ReceivableRepository,
	paymentRepo receivable.PaymentRepository,
	cache DashboardCache,
	logger *zap.Logger,
) *QueryService {
	return &QueryService{
		receivableRepo: receivableRepo,
		paymentRepo:    paymentRepo,
		cache:          cache,
		logger:         logger,
	}
}

// GetDashboard evaluates the dashboard for the given criteria, serving
// from cache when a fresh view exists.
func (s *QueryService) GetDashboard(ctx context.Context, tenantID uuid.UUID, criteria receivable.FilterCriteria) (*receivable.DashboardView, error) {
	if err := criteria.Validate(); err != nil {
		return nil, err
	}

	if cached, err := s.cache.Get(ctx, tenantID, criteria); err != nil {
		s.logger.Warn("dashboard cache read failed", zap.Error(err))
	} else if cached != nil {
		return cached, nil
	}

	installments, err := s.receivableRepo.ListEnrichedInstallments(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list installments: %w", err)
	}

	view := receivable.BuildDashboard(installments, criteria, time.Now())
	if err := s.cache.Set(ctx, tenantID, criteria, &view, dashboardCacheTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.Error(err))
	}
	return &view, nil
}

// InstallmentListItem is one row of the installments listing
type InstallmentListItem struct {
	receivable.EnrichedInstallment
	DisplayNumber string `json:"display_number"`
	DisplayStatus string `json:"display_status"`
}

// ListInstallments returns every non-cancelled installment of the tenant
// with its display number and derived status.
func (s *QueryService) ListInstallments(ctx context.Context, tenantID uuid.UUID) ([]InstallmentListItem, error) {
	installments, err := s.receivableRepo.ListEnrichedInstallments(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list installments: %w", err)
	}

	now := time.Now()
	items := make([]InstallmentListItem, 0, len(installments))
	for _, inst := range installments {
		if inst.Status == receivable.StatusCancelled {
			continue
		}
		items = append(items, InstallmentListItem{
			EnrichedInstallment: inst,
			DisplayNumber:       inst.DisplayNumber(),
			DisplayStatus:       inst.DisplayStatus(now),
		})
	}
	return items, nil
}

// ListReceivables returns the tenant's receivables under the given filter
func (s *QueryService) ListReceivables(ctx context.Context, tenantID uuid.UUID, filter receivable.ReceivableFilter) (*shared.Paginated[*receivable.Receivable], error) {
	normalizePagination(&filter.Filter)
	items, total, err := s.receivableRepo.FindAllForTenant(ctx, tenantID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list receivables: %w", err)
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

// ReceivableDetails is the full view of one receivable. Degraded is set
// when the payment history could not be loaded; the core fields are then
// reconstructed from the receivable and installment state alone.
type ReceivableDetails struct {
	Receivable *receivable.Receivable `json:"receivable"`
	Payments   []*receivable.Payment  `json:"payments"`
	Degraded   bool                   `json:"degraded"`
}

// GetReceivableDetails loads a receivable with installments and payment
// history. Read failures degrade the response instead of failing it: a
// broken joined read falls back to rebuilding the receivable from the
// installment listing, and a broken payment read serves the details
// without history.
func (s *QueryService) GetReceivableDetails(ctx context.Context, tenantID, receivableID uuid.UUID) (*ReceivableDetails, error) {
	degraded := false
	r, err := s.receivableRepo.FindByIDForTenant(ctx, tenantID, receivableID)
	if err != nil {
		s.logger.Warn("receivable read failed, rebuilding from installment listing",
			zap.String("receivable_id", receivableID.String()), zap.Error(err))
		r, err = s.rebuildReceivable(ctx, tenantID, receivableID)
		if err != nil {
			return nil, err
		}
		degraded = true
	}
	if r == nil {
		return nil, shared.NewDomainError("RECEIVABLE_NOT_FOUND", "Receivable not found")
	}

	details := &ReceivableDetails{Receivable: r, Payments: []*receivable.Payment{}, Degraded: degraded}
	payments, err := s.paymentRepo.FindByReceivableID(ctx, tenantID, receivableID)
	if err != nil {
		s.logger.Warn("payment history unavailable, serving degraded details",
			zap.String("receivable_id", receivableID.String()), zap.Error(err))
		details.Degraded = true
		return details, nil
	}
	details.Payments = payments
	return details, nil
}

// rebuildReceivable reassembles the receivable header from the enriched
// installment listing. The result carries the stored state only, so
// derived fields like paid-at timestamps are absent.
func (s *QueryService) rebuildReceivable(ctx context.Context, tenantID, receivableID uuid.UUID) (*receivable.Receivable, error) {
	installments, err := s.receivableRepo.ListEnrichedInstallments(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list installments: %w", err)
	}

	var own []receivable.EnrichedInstallment
	for _, inst := range installments {
		if inst.ReceivableID == receivableID {
			own = append(own, inst)
		}
	}
	if len(own) == 0 {
		return nil, shared.NewDomainError("RECEIVABLE_NOT_FOUND", "Receivable not found")
	}
	sort.Slice(own, func(i, j int) bool { return own[i].Number < own[j].Number })

	head := own[0]
	r := &receivable.Receivable{
		ReceivableNumber:  head.ReceivableNumber,
		Description:       head.Description,
		CustomerID:        head.CustomerID,
		OrderID:           head.OrderID,
		OrderNumber:       head.OrderNumber,
		Status:            head.ReceivableStatus,
		TotalAmount:       decimal.Zero,
		PaidAmount:        decimal.Zero,
		OutstandingAmount: decimal.Zero,
	}
	r.ID = receivableID
	r.TenantID = tenantID
	for _, inst := range own {
		r.Installments = append(r.Installments, inst.Installment)
		r.TotalAmount = r.TotalAmount.Add(inst.Amount)
		r.PaidAmount = r.PaidAmount.Add(inst.PaidAmount)
		r.OutstandingAmount = r.OutstandingAmount.Add(inst.OutstandingAmount)
	}
	r.DueDate = earliestUnpaidDueDate(own)
	return r, nil
}

func earliestUnpaidDueDate(installments []receivable.EnrichedInstallment) time.Time {
	var earliestUnpaid, earliest *time.Time
	for idx := range installments {
		due := installments[idx].DueDate
		if earliest == nil || due.Before(*earliest) {
			d := due
			earliest = &d
		}
		if installments[idx].Status == receivable.StatusPaid || installments[idx].Status == receivable.StatusCancelled {
			continue
		}
		if earliestUnpaid == nil || due.Before(*earliestUnpaid) {
			d := due
			earliestUnpaid = &d
		}
	}
	if earliestUnpaid != nil {
		return *earliestUnpaid
	}
	if earliest != nil {
		return *earliest
	}
	return time.Time{}
}

// ListPayments returns the payment history under the given filter,
// including reversed records when asked for.
func (s *QueryService) ListPayments(ctx context.Context, tenantID uuid.UUID, filter receivable.PaymentFilter) (*shared.Paginated[*receivable.Payment], error) {
	normalizePagination(&filter.Filter)
	items, total, err := s.paymentRepo.FindAllForTenant(ctx, tenantID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

func normalizePagination(f *shared.Filter) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 || f.PageSize > 200 {
		f.PageSize = 20
	}
}
