package receivable

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/commerce/backend/internal/domain/order"
	"github.com/commerce/backend/internal/domain/paymentterm"
	"github.com/commerce/backend/internal/domain/receivable"
	"github.com/commerce/backend/internal/domain/shared"
	"github.com/commerce/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeReceivableRepo struct {
	store       map[uuid.UUID]*receivable.Receivable
	seq         int
	findErr     error
	listErr     error
	saveLockErr error
	deleted     []uuid.UUID
}

func newFakeReceivableRepo() *fakeReceivableRepo {
	return &fakeReceivableRepo{store: map[uuid.UUID]*receivable.Receivable{}}
}

func (f *fakeReceivableRepo) FindByIDForTenant(_ context.Context, tenantID, id uuid.UUID) (*receivable.Receivable, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	r, ok := f.store[id]
	if !ok || r.TenantID != tenantID {
		return nil, nil
	}
	return r, nil
}

func (f *fakeReceivableRepo) FindByInstallmentID(_ context.Context, tenantID, installmentID uuid.UUID) (*receivable.Receivable, error) {
	for _, r := range f.store {
		if r.TenantID != tenantID {
			continue
		}
		if _, err := r.FindInstallment(installmentID); err == nil {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeReceivableRepo) FindByOrderID(_ context.Context, tenantID, orderID uuid.UUID) ([]*receivable.Receivable, error) {
	var out []*receivable.Receivable
	for _, r := range f.store {
		if r.TenantID == tenantID && r.OrderID != nil && *r.OrderID == orderID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReceivableRepo) FindAllForTenant(_ context.Context, tenantID uuid.UUID, _ receivable.ReceivableFilter) ([]*receivable.Receivable, int64, error) {
	var out []*receivable.Receivable
	for _, r := range f.store {
		if r.TenantID == tenantID {
			out = append(out, r)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeReceivableRepo) ListEnrichedInstallments(_ context.Context, tenantID uuid.UUID) ([]receivable.EnrichedInstallment, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []receivable.EnrichedInstallment
	for _, r := range f.store {
		if r.TenantID != tenantID {
			continue
		}
		for _, inst := range r.Installments {
			out = append(out, receivable.EnrichedInstallment{
				Installment:      inst,
				ReceivableNumber: r.ReceivableNumber,
				ReceivableStatus: r.Status,
				Description:      r.Description,
				CustomerID:       r.CustomerID,
				OrderID:          r.OrderID,
				OrderNumber:      r.OrderNumber,
				InstallmentCount: len(r.Installments),
			})
		}
	}
	return out, nil
}

func (f *fakeReceivableRepo) Save(_ context.Context, r *receivable.Receivable) error {
	f.store[r.ID] = r
	return nil
}

func (f *fakeReceivableRepo) SaveWithLock(_ context.Context, r *receivable.Receivable) error {
	if f.saveLockErr != nil {
		return f.saveLockErr
	}
	f.store[r.ID] = r
	return nil
}

func (f *fakeReceivableRepo) Delete(_ context.Context, _, id uuid.UUID) error {
	delete(f.store, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeReceivableRepo) GenerateReceivableNumber(_ context.Context, _ uuid.UUID) (string, error) {
	f.seq++
	return fmt.Sprintf("REC-20240101-%05d", f.seq), nil
}

type fakePaymentRepo struct {
	store   map[uuid.UUID]*receivable.Payment
	seq     int
	findErr error
	deleted []uuid.UUID
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{store: map[uuid.UUID]*receivable.Payment{}}
}

func (f *fakePaymentRepo) FindByIDForTenant(_ context.Context, tenantID, id uuid.UUID) (*receivable.Payment, error) {
	p, ok := f.store[id]
	if !ok || p.TenantID != tenantID {
		return nil, nil
	}
	return p, nil
}

func (f *fakePaymentRepo) FindByReceivableID(_ context.Context, tenantID, receivableID uuid.UUID) ([]*receivable.Payment, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	var out []*receivable.Payment
	for _, p := range f.store {
		if p.TenantID == tenantID && p.ReceivableID == receivableID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePaymentRepo) FindAllForTenant(_ context.Context, tenantID uuid.UUID, filter receivable.PaymentFilter) ([]*receivable.Payment, int64, error) {
	var out []*receivable.Payment
	for _, p := range f.store {
		if p.TenantID != tenantID {
			continue
		}
		if !filter.IncludeReversed && !p.IsActive() {
			continue
		}
		out = append(out, p)
	}
	return out, int64(len(out)), nil
}

func (f *fakePaymentRepo) Save(_ context.Context, p *receivable.Payment) error {
	f.store[p.ID] = p
	return nil
}

func (f *fakePaymentRepo) SaveWithLock(_ context.Context, p *receivable.Payment) error {
	f.store[p.ID] = p
	return nil
}

func (f *fakePaymentRepo) DeleteByReceivableID(_ context.Context, _, receivableID uuid.UUID) error {
	for id, p := range f.store {
		if p.ReceivableID == receivableID {
			delete(f.store, id)
		}
	}
	f.deleted = append(f.deleted, receivableID)
	return nil
}

func (f *fakePaymentRepo) GeneratePaymentNumber(_ context.Context, _ uuid.UUID) (string, error) {
	f.seq++
	return fmt.Sprintf("PAG-20240101-%05d", f.seq), nil
}

type fakeOrderGateway struct {
	orders  map[uuid.UUID]*order.Summary
	cleared []uuid.UUID
}

func newFakeOrderGateway() *fakeOrderGateway {
	return &fakeOrderGateway{orders: map[uuid.UUID]*order.Summary{}}
}

func (f *fakeOrderGateway) GetSummary(_ context.Context, tenantID, orderID uuid.UUID) (*order.Summary, error) {
	o, ok := f.orders[orderID]
	if !ok || o.TenantID != tenantID {
		return nil, nil
	}
	return o, nil
}

func (f *fakeOrderGateway) MarkAccountsLaunched(_ context.Context, _, orderID uuid.UUID) error {
	if o, ok := f.orders[orderID]; ok {
		o.AccountsLaunched = true
	}
	return nil
}

func (f *fakeOrderGateway) ClearAccountsLaunched(_ context.Context, _, orderID uuid.UUID) error {
	if o, ok := f.orders[orderID]; ok {
		o.AccountsLaunched = false
	}
	f.cleared = append(f.cleared, orderID)
	return nil
}

type fakeTermGateway struct {
	terms map[uuid.UUID]*paymentterm.Term
}

func newFakeTermGateway() *fakeTermGateway {
	return &fakeTermGateway{terms: map[uuid.UUID]*paymentterm.Term{}}
}

func (f *fakeTermGateway) GetTerm(_ context.Context, tenantID, termID uuid.UUID) (*paymentterm.Term, error) {
	t, ok := f.terms[termID]
	if !ok || t.TenantID != tenantID {
		return nil, nil
	}
	return t, nil
}

type fakeTxManager struct{}

func (fakeTxManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakePublisher struct {
	events []shared.DomainEvent
}

func (f *fakePublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	f.events = append(f.events, events...)
	return nil
}

func (f *fakePublisher) eventTypes() []string {
	types := make([]string, 0, len(f.events))
	for _, ev := range f.events {
		types = append(types, ev.EventType())
	}
	return types
}

type fakeCache struct {
	views       map[string]*receivable.DashboardView
	invalidated int
	hits        int
}

func newFakeCache() *fakeCache {
	return &fakeCache{views: map[string]*receivable.DashboardView{}}
}

func (f *fakeCache) key(tenantID uuid.UUID, c receivable.FilterCriteria) string {
	return fmt.Sprintf("%s|%s|%s", tenantID, c.Period, c.Seller)
}

func (f *fakeCache) Get(_ context.Context, tenantID uuid.UUID, c receivable.FilterCriteria) (*receivable.DashboardView, error) {
	v := f.views[f.key(tenantID, c)]
	if v != nil {
		f.hits++
	}
	return v, nil
}

func (f *fakeCache) Set(_ context.Context, tenantID uuid.UUID, c receivable.FilterCriteria, view *receivable.DashboardView, _ time.Duration) error {
	f.views[f.key(tenantID, c)] = view
	return nil
}

func (f *fakeCache) Invalidate(_ context.Context, _ uuid.UUID) error {
	f.views = map[string]*receivable.DashboardView{}
	f.invalidated++
	return nil
}

type serviceFixture struct {
	tenantID    uuid.UUID
	receivables *fakeReceivableRepo
	payments    *fakePaymentRepo
	orders      *fakeOrderGateway
	terms       *fakeTermGateway
	publisher   *fakePublisher
	cache       *fakeCache
	entry       *EntryService
	payment     *PaymentService
	schedule    *ScheduleService
	query       *QueryService
}

func newServiceFixture() *serviceFixture {
	f := &serviceFixture{
		tenantID:    uuid.New(),
		receivables: newFakeReceivableRepo(),
		payments:    newFakePaymentRepo(),
		orders:      newFakeOrderGateway(),
		terms:       newFakeTermGateway(),
		publisher:   &fakePublisher{},
		cache:       newFakeCache(),
	}
	logger := zap.NewNop()
	tx := fakeTxManager{}
	f.entry = NewEntryService(f.receivables, f.orders, f.terms, tx, f.publisher, f.cache, logger)
	f.payment = NewPaymentService(f.receivables, f.payments, tx, f.publisher, f.cache, logger)
	f.schedule = NewScheduleService(f.receivables, f.payments, f.orders, tx, f.publisher, f.cache, logger)
	f.query = NewQueryService(f.receivables, f.payments, f.cache, logger)
	return f
}

func (f *serviceFixture) seedOrder(total float64) *order.Summary {
	o := &order.Summary{
		ID:          uuid.New(),
		TenantID:    f.tenantID,
		OrderNumber: "287422",
		CustomerID:  uuid.New(),
		TotalAmount: decimal.NewFromFloat(total),
		OrderDate:   time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
	f.orders.orders[o.ID] = o
	return o
}

func (f *serviceFixture) seedTerm(count, intervalDays, firstPaymentDays int) *paymentterm.Term {
	term := &paymentterm.Term{
		ID:               uuid.New(),
		TenantID:         f.tenantID,
		Name:             fmt.Sprintf("%dx a cada %dd", count, intervalDays),
		InstallmentCount: count,
		IntervalDays:     intervalDays,
		FirstPaymentDays: firstPaymentDays,
		Active:           true,
	}
	f.terms.terms[term.ID] = term
	return term
}

func (f *serviceFixture) seedReceivable(t *testing.T, total float64, count int) *receivable.Receivable {
	t.Helper()
	money := valueobject.NewMoneyBRLFromFloat(total)
	issue := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	installments, err := receivable.GenerateInstallments(money, issue, receivable.PaymentTerm{
		InstallmentCount: count,
		IntervalDays:     30,
	})
	require.NoError(t, err)
	r, err := receivable.NewReceivable(f.tenantID, fmt.Sprintf("REC-SEED-%d", len(f.receivables.store)+1),
		uuid.New(), "Venda balcão", money, issue, installments)
	require.NoError(t, err)
	r.ClearDomainEvents()
	require.NoError(t, f.receivables.Save(context.Background(), r))
	return r
}

func TestEntryService_GenerateFromOrder(t *testing.T) {
	f := newServiceFixture()
	o := f.seedOrder(300.00)

	r, err := f.entry.GenerateFromOrder(context.Background(), GenerateFromOrderRequest{
		TenantID:         f.tenantID,
		OrderID:          o.ID,
		InstallmentCount: 3,
	})
	require.NoError(t, err)

	assert.Len(t, r.Installments, 3)
	assert.Equal(t, "Pedido 287422", r.Description)
	require.NotNil(t, r.OrderID)
	assert.Equal(t, o.ID, *r.OrderID)
	assert.True(t, o.AccountsLaunched, "order must be flagged as billed")
	assert.Contains(t, f.publisher.eventTypes(), receivable.EventTypeReceivableCreated)
	assert.Equal(t, 1, f.cache.invalidated)
}

func TestEntryService_GenerateFromOrder_AlreadyLaunched(t *testing.T) {
	f := newServiceFixture()
	o := f.seedOrder(300.00)
	o.AccountsLaunched = true

	_, err := f.entry.GenerateFromOrder(context.Background(), GenerateFromOrderRequest{
		TenantID: f.tenantID, OrderID: o.ID, InstallmentCount: 2,
	})
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "ACCOUNTS_ALREADY_LAUNCHED", domainErr.Code)
}

func TestEntryService_GenerateFromOrder_NotFound(t *testing.T) {
	f := newServiceFixture()
	_, err := f.entry.GenerateFromOrder(context.Background(), GenerateFromOrderRequest{
		TenantID: f.tenantID, OrderID: uuid.New(), InstallmentCount: 1,
	})
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "ORDER_NOT_FOUND", domainErr.Code)
}

func TestEntryService_CreateManual_Defaults(t *testing.T) {
	f := newServiceFixture()

	r, err := f.entry.CreateManual(context.Background(), CreateManualRequest{
		TenantID:    f.tenantID,
		CustomerID:  uuid.New(),
		Description: "Conserto de geladeira",
		TotalAmount: decimal.NewFromFloat(250.00),
	})
	require.NoError(t, err)

	require.Len(t, r.Installments, 1)
	assert.Equal(t, receivable.StatusOpen, r.Status)
	assert.Equal(t, "250.00", r.Installments[0].Amount.StringFixed(2))
	assert.Nil(t, r.OrderID)
}

func TestEntryService_CreateManual_WithPaymentTerm(t *testing.T) {
	f := newServiceFixture()
	term := f.seedTerm(3, 15, 10)
	issue := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

	r, err := f.entry.CreateManual(context.Background(), CreateManualRequest{
		TenantID:      f.tenantID,
		CustomerID:    uuid.New(),
		Description:   "Serviço de instalação",
		TotalAmount:   decimal.NewFromFloat(300.00),
		IssueDate:     issue,
		PaymentTermID: &term.ID,
	})
	require.NoError(t, err)

	require.Len(t, r.Installments, 3)
	assert.Equal(t, issue.AddDate(0, 0, 10), r.Installments[0].DueDate)
	assert.Equal(t, issue.AddDate(0, 0, 25), r.Installments[1].DueDate)
	require.NotNil(t, r.PaymentTermID)
	assert.Equal(t, term.ID, *r.PaymentTermID)

	t.Run("explicit count overrides the term", func(t *testing.T) {
		r, err := f.entry.CreateManual(context.Background(), CreateManualRequest{
			TenantID:         f.tenantID,
			CustomerID:       uuid.New(),
			Description:      "Serviço de instalação",
			TotalAmount:      decimal.NewFromFloat(200.00),
			IssueDate:        issue,
			InstallmentCount: 2,
			PaymentTermID:    &term.ID,
		})
		require.NoError(t, err)
		require.Len(t, r.Installments, 2)
		assert.Equal(t, issue.AddDate(0, 0, 10), r.Installments[0].DueDate)
	})

	t.Run("unknown term", func(t *testing.T) {
		unknown := uuid.New()
		_, err := f.entry.CreateManual(context.Background(), CreateManualRequest{
			TenantID:      f.tenantID,
			CustomerID:    uuid.New(),
			Description:   "Serviço avulso",
			TotalAmount:   decimal.NewFromFloat(50.00),
			PaymentTermID: &unknown,
		})
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "PAYMENT_TERM_NOT_FOUND", domainErr.Code)
	})

	t.Run("inactive term", func(t *testing.T) {
		inactive := f.seedTerm(2, 30, 0)
		inactive.Active = false
		_, err := f.entry.CreateManual(context.Background(), CreateManualRequest{
			TenantID:      f.tenantID,
			CustomerID:    uuid.New(),
			Description:   "Serviço avulso",
			TotalAmount:   decimal.NewFromFloat(50.00),
			PaymentTermID: &inactive.ID,
		})
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_TERM", domainErr.Code)
	})
}

func TestEntryService_GenerateFromOrder_WithPaymentTerm(t *testing.T) {
	f := newServiceFixture()
	o := f.seedOrder(300.00)
	term := f.seedTerm(3, 30, 30)

	r, err := f.entry.GenerateFromOrder(context.Background(), GenerateFromOrderRequest{
		TenantID:      f.tenantID,
		OrderID:       o.ID,
		PaymentTermID: &term.ID,
	})
	require.NoError(t, err)

	require.Len(t, r.Installments, 3)
	assert.Equal(t, o.OrderDate.AddDate(0, 0, 30), r.Installments[0].DueDate)
	assert.Equal(t, o.OrderDate.AddDate(0, 0, 90), r.Installments[2].DueDate)
	require.NotNil(t, r.PaymentTermID)
	assert.Equal(t, term.ID, *r.PaymentTermID)
}

func TestEntryService_CreateManual_RequiresDescription(t *testing.T) {
	f := newServiceFixture()
	_, err := f.entry.CreateManual(context.Background(), CreateManualRequest{
		TenantID: f.tenantID, CustomerID: uuid.New(), TotalAmount: decimal.NewFromFloat(10),
	})
	assert.Error(t, err)
}

func TestEntryService_Cancel(t *testing.T) {
	f := newServiceFixture()
	r := f.seedReceivable(t, 100.00, 1)

	cancelled, err := f.entry.Cancel(context.Background(), f.tenantID, r.ID, "pedido devolvido")
	require.NoError(t, err)
	assert.Equal(t, receivable.StatusCancelled, cancelled.Status)
	assert.Contains(t, f.publisher.eventTypes(), receivable.EventTypeReceivableCancelled)
}

func TestPaymentService_ApplyPayment_TotalOnInstallment(t *testing.T) {
	f := newServiceFixture()
	r := f.seedReceivable(t, 300.00, 3)
	instID := r.Installments[0].ID

	result, err := f.payment.ApplyPayment(context.Background(), ApplyPaymentRequest{
		TenantID:      f.tenantID,
		InstallmentID: &instID,
		Kind:          receivable.PaymentKindTotal,
		Method:        "PIX",
	})
	require.NoError(t, err)

	assert.Equal(t, "100.00", result.Payment.AppliedAmount.StringFixed(2))
	inst, _ := result.Receivable.FindInstallment(instID)
	assert.Equal(t, receivable.StatusPaid, inst.Status)
	assert.Equal(t, receivable.StatusPartial, result.Receivable.Status)
	assert.Len(t, f.payments.store, 1)
	assert.Equal(t, 1, f.cache.invalidated)
}

func TestPaymentService_ApplyPayment_PartialWithAdjustments(t *testing.T) {
	f := newServiceFixture()
	r := f.seedReceivable(t, 100.00, 1)
	instID := r.Installments[0].ID

	result, err := f.payment.ApplyPayment(context.Background(), ApplyPaymentRequest{
		TenantID:      f.tenantID,
		InstallmentID: &instID,
		Kind:          receivable.PaymentKindPartial,
		Amount:        decimal.NewFromFloat(50.00),
		Adjustments: receivable.PaymentAdjustments{
			Interest: decimal.NewFromFloat(2.00),
			Discount: decimal.NewFromFloat(1.00),
		},
		Method: "DINHEIRO",
	})
	require.NoError(t, err)

	// recorded carries adjustments, applied does not
	assert.Equal(t, "51.00", result.Payment.Amount.StringFixed(2))
	assert.Equal(t, "50.00", result.Payment.AppliedAmount.StringFixed(2))
	assert.Equal(t, "50.00", result.Receivable.OutstandingAmount.StringFixed(2))
	assert.Equal(t, receivable.StatusPartial, result.Receivable.Status)
}

func TestPaymentService_ApplyPayment_TargetValidation(t *testing.T) {
	f := newServiceFixture()
	r := f.seedReceivable(t, 100.00, 1)
	instID := r.Installments[0].ID

	t.Run("matching pair settles the installment", func(t *testing.T) {
		paired := f.seedReceivable(t, 60.00, 1)
		pairedInstID := paired.Installments[0].ID
		result, err := f.payment.ApplyPayment(context.Background(), ApplyPaymentRequest{
			TenantID: f.tenantID, ReceivableID: &paired.ID, InstallmentID: &pairedInstID,
			Kind: receivable.PaymentKindTotal, Method: "PIX",
		})
		require.NoError(t, err)
		inst, _ := result.Receivable.FindInstallment(pairedInstID)
		assert.Equal(t, receivable.StatusPaid, inst.Status)
	})
	t.Run("installment from another receivable is rejected", func(t *testing.T) {
		other := f.seedReceivable(t, 80.00, 1)
		strangerID := other.Installments[0].ID
		_, err := f.payment.ApplyPayment(context.Background(), ApplyPaymentRequest{
			TenantID: f.tenantID, ReceivableID: &r.ID, InstallmentID: &strangerID,
			Kind: receivable.PaymentKindTotal, Method: "PIX",
		})
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INSTALLMENT_MISMATCH", domainErr.Code)
	})
	t.Run("no target", func(t *testing.T) {
		_, err := f.payment.ApplyPayment(context.Background(), ApplyPaymentRequest{
			TenantID: f.tenantID, Kind: receivable.PaymentKindTotal, Method: "PIX",
		})
		assert.Error(t, err)
	})
	t.Run("overpayment", func(t *testing.T) {
		_, err := f.payment.ApplyPayment(context.Background(), ApplyPaymentRequest{
			TenantID: f.tenantID, InstallmentID: &instID,
			Kind: receivable.PaymentKindPartial, Amount: decimal.NewFromFloat(100.01), Method: "PIX",
		})
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "EXCEEDS_OUTSTANDING", domainErr.Code)
	})
}

func TestPaymentService_ReversePayment_RoundTrip(t *testing.T) {
	f := newServiceFixture()
	r := f.seedReceivable(t, 100.00, 1)
	instID := r.Installments[0].ID

	applied, err := f.payment.ApplyPayment(context.Background(), ApplyPaymentRequest{
		TenantID: f.tenantID, InstallmentID: &instID,
		Kind: receivable.PaymentKindTotal, Method: "PIX",
	})
	require.NoError(t, err)
	require.Equal(t, receivable.StatusPaid, applied.Receivable.Status)

	result, err := f.payment.ReversePayment(context.Background(), f.tenantID, applied.Payment.ID, "valor duplicado")
	require.NoError(t, err)

	assert.Equal(t, receivable.PaymentStatusReversed, result.Payment.Status)
	assert.Equal(t, receivable.StatusOpen, result.Receivable.Status)
	assert.Equal(t, "100.00", result.Receivable.OutstandingAmount.StringFixed(2))
	assert.Contains(t, f.publisher.eventTypes(), receivable.EventTypePaymentReversed)

	t.Run("double reversal rejected", func(t *testing.T) {
		_, err := f.payment.ReversePayment(context.Background(), f.tenantID, applied.Payment.ID, "de novo")
		assert.Error(t, err)
	})
}

func TestScheduleService_EditInstallment(t *testing.T) {
	f := newServiceFixture()
	o := f.seedOrder(300.00)
	r, err := f.entry.GenerateFromOrder(context.Background(), GenerateFromOrderRequest{
		TenantID: f.tenantID, OrderID: o.ID, InstallmentCount: 3,
	})
	require.NoError(t, err)
	instID := r.Installments[0].ID

	t.Run("amount edit reports divergence from order", func(t *testing.T) {
		newAmount := decimal.NewFromFloat(150.00)
		result, err := f.schedule.EditInstallment(context.Background(), EditInstallmentRequest{
			TenantID: f.tenantID, InstallmentID: instID, NewAmount: &newAmount,
		})
		require.NoError(t, err)
		assert.True(t, result.Changed)
		require.NotNil(t, result.Divergence)
		assert.True(t, result.Divergence.Diverges)
		assert.Equal(t, "50.00", result.Divergence.Difference.StringFixed(2))
	})

	t.Run("no-op succeeds without divergence", func(t *testing.T) {
		result, err := f.schedule.EditInstallment(context.Background(), EditInstallmentRequest{
			TenantID: f.tenantID, InstallmentID: instID,
		})
		require.NoError(t, err)
		assert.False(t, result.Changed)
		assert.Nil(t, result.Divergence)
	})

	t.Run("unknown installment", func(t *testing.T) {
		_, err := f.schedule.EditInstallment(context.Background(), EditInstallmentRequest{
			TenantID: f.tenantID, InstallmentID: uuid.New(),
		})
		assert.Error(t, err)
	})
}

func TestScheduleService_DeleteInstallment(t *testing.T) {
	t.Run("middle installment keeps receivable", func(t *testing.T) {
		f := newServiceFixture()
		r := f.seedReceivable(t, 300.00, 3)

		result, err := f.schedule.DeleteInstallment(context.Background(), f.tenantID, r.Installments[1].ID)
		require.NoError(t, err)
		assert.False(t, result.ReceivableDeleted)
		assert.Len(t, f.receivables.store[r.ID].Installments, 2)
		assert.Equal(t, "200.00", f.receivables.store[r.ID].TotalAmount.StringFixed(2))
	})

	t.Run("last installment cascades and releases the order", func(t *testing.T) {
		f := newServiceFixture()
		o := f.seedOrder(100.00)
		r, err := f.entry.GenerateFromOrder(context.Background(), GenerateFromOrderRequest{
			TenantID: f.tenantID, OrderID: o.ID, InstallmentCount: 1,
		})
		require.NoError(t, err)
		require.True(t, o.AccountsLaunched)

		result, err := f.schedule.DeleteInstallment(context.Background(), f.tenantID, r.Installments[0].ID)
		require.NoError(t, err)

		assert.True(t, result.ReceivableDeleted)
		assert.False(t, o.AccountsLaunched, "billed flag must be cleared")
		assert.Empty(t, f.receivables.store)
		assert.Contains(t, f.payments.deleted, r.ID)
		assert.Contains(t, f.publisher.eventTypes(), receivable.EventTypeReceivableDeleted)
	})

	t.Run("paid installment rejected", func(t *testing.T) {
		f := newServiceFixture()
		r := f.seedReceivable(t, 100.00, 1)
		instID := r.Installments[0].ID
		_, err := f.payment.ApplyPayment(context.Background(), ApplyPaymentRequest{
			TenantID: f.tenantID, InstallmentID: &instID,
			Kind: receivable.PaymentKindTotal, Method: "PIX",
		})
		require.NoError(t, err)

		_, err = f.schedule.DeleteInstallment(context.Background(), f.tenantID, instID)
		assert.Error(t, err)
	})
}

func TestQueryService_GetDashboard_CachesViews(t *testing.T) {
	f := newServiceFixture()
	f.seedReceivable(t, 300.00, 3)
	criteria := receivable.DefaultFilterCriteria()

	first, err := f.query.GetDashboard(context.Background(), f.tenantID, criteria)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Summary.InstallmentCount)
	assert.Equal(t, 0, f.cache.hits)

	_, err = f.query.GetDashboard(context.Background(), f.tenantID, criteria)
	require.NoError(t, err)
	assert.Equal(t, 1, f.cache.hits)
}

func TestQueryService_GetDashboard_InvalidatedByPayment(t *testing.T) {
	f := newServiceFixture()
	r := f.seedReceivable(t, 100.00, 1)
	criteria := receivable.DefaultFilterCriteria()

	_, err := f.query.GetDashboard(context.Background(), f.tenantID, criteria)
	require.NoError(t, err)

	instID := r.Installments[0].ID
	_, err = f.payment.ApplyPayment(context.Background(), ApplyPaymentRequest{
		TenantID: f.tenantID, InstallmentID: &instID,
		Kind: receivable.PaymentKindTotal, Method: "PIX",
	})
	require.NoError(t, err)

	view, err := f.query.GetDashboard(context.Background(), f.tenantID, criteria)
	require.NoError(t, err)
	assert.Equal(t, "100.00", view.Summary.TotalReceived.StringFixed(2))
	assert.True(t, view.Summary.TotalPending.IsZero())
}

func TestQueryService_GetDashboard_RejectsBadCriteria(t *testing.T) {
	f := newServiceFixture()
	_, err := f.query.GetDashboard(context.Background(), f.tenantID, receivable.FilterCriteria{
		Period: "fortnight", Seller: receivable.SellerAll,
	})
	assert.Error(t, err)
}

func TestQueryService_ListInstallments_DisplayFields(t *testing.T) {
	f := newServiceFixture()
	o := f.seedOrder(200.00)
	_, err := f.entry.GenerateFromOrder(context.Background(), GenerateFromOrderRequest{
		TenantID: f.tenantID, OrderID: o.ID, InstallmentCount: 2,
	})
	require.NoError(t, err)

	items, err := f.query.ListInstallments(context.Background(), f.tenantID)
	require.NoError(t, err)
	require.Len(t, items, 2)

	numbers := []string{items[0].DisplayNumber, items[1].DisplayNumber}
	assert.Contains(t, numbers, "287422/001")
	assert.Contains(t, numbers, "287422/002")
}

func TestQueryService_GetReceivableDetails(t *testing.T) {
	f := newServiceFixture()
	r := f.seedReceivable(t, 100.00, 1)
	instID := r.Installments[0].ID
	_, err := f.payment.ApplyPayment(context.Background(), ApplyPaymentRequest{
		TenantID: f.tenantID, InstallmentID: &instID,
		Kind: receivable.PaymentKindPartial, Amount: decimal.NewFromFloat(40), Method: "PIX",
	})
	require.NoError(t, err)

	details, err := f.query.GetReceivableDetails(context.Background(), f.tenantID, r.ID)
	require.NoError(t, err)
	assert.False(t, details.Degraded)
	assert.Len(t, details.Payments, 1)

	t.Run("degrades when payment history fails", func(t *testing.T) {
		f.payments.findErr = errors.New("relation does not exist")
		details, err := f.query.GetReceivableDetails(context.Background(), f.tenantID, r.ID)
		require.NoError(t, err)
		assert.True(t, details.Degraded)
		assert.Empty(t, details.Payments)
		assert.Equal(t, "40.00", details.Receivable.PaidAmount.StringFixed(2))
	})

	t.Run("rebuilds from installment listing when the joined read fails", func(t *testing.T) {
		f.payments.findErr = nil
		f.receivables.findErr = errors.New("relation does not exist")
		defer func() { f.receivables.findErr = nil }()

		details, err := f.query.GetReceivableDetails(context.Background(), f.tenantID, r.ID)
		require.NoError(t, err)
		assert.True(t, details.Degraded)
		assert.Equal(t, r.ReceivableNumber, details.Receivable.ReceivableNumber)
		require.Len(t, details.Receivable.Installments, 1)
		assert.Equal(t, "100.00", details.Receivable.TotalAmount.StringFixed(2))
		assert.Equal(t, "40.00", details.Receivable.PaidAmount.StringFixed(2))
		assert.Equal(t, "60.00", details.Receivable.OutstandingAmount.StringFixed(2))
		assert.Len(t, details.Payments, 1)
	})

	t.Run("fails when both read paths are down", func(t *testing.T) {
		f.receivables.findErr = errors.New("relation does not exist")
		f.receivables.listErr = errors.New("relation does not exist")
		defer func() {
			f.receivables.findErr = nil
			f.receivables.listErr = nil
		}()

		_, err := f.query.GetReceivableDetails(context.Background(), f.tenantID, r.ID)
		assert.Error(t, err)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := f.query.GetReceivableDetails(context.Background(), f.tenantID, uuid.New())
		assert.Error(t, err)
	})
}

func TestQueryService_ListPayments_ExcludesReversedByDefault(t *testing.T) {
	f := newServiceFixture()
	r := f.seedReceivable(t, 100.00, 1)
	instID := r.Installments[0].ID

	applied, err := f.payment.ApplyPayment(context.Background(), ApplyPaymentRequest{
		TenantID: f.tenantID, InstallmentID: &instID,
		Kind: receivable.PaymentKindTotal, Method: "PIX",
	})
	require.NoError(t, err)
	_, err = f.payment.ReversePayment(context.Background(), f.tenantID, applied.Payment.ID, "erro de digitação")
	require.NoError(t, err)

	active, err := f.query.ListPayments(context.Background(), f.tenantID, receivable.PaymentFilter{})
	require.NoError(t, err)
	assert.Empty(t, active.Items)

	all, err := f.query.ListPayments(context.Background(), f.tenantID, receivable.PaymentFilter{IncludeReversed: true})
	require.NoError(t, err)
	assert.Len(t, all.Items, 1)
}
