package handler

import (
	"time"

	receivableapp "github.com/commerce/backend/internal/application/receivable"
	"github.com/commerce/backend/internal/domain/receivable"
	"github.com/commerce/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReceivableHandler handles accounts-receivable API endpoints
type ReceivableHandler struct {
	BaseHandler
	entryService    *receivableapp.EntryService
	paymentService  *receivableapp.PaymentService
	scheduleService *receivableapp.ScheduleService
	queryService    *receivableapp.QueryService
}

// NewReceivableHandler creates a new ReceivableHandler
func NewReceivableHandler(
	entryService *receivableapp.EntryService,
	paymentService *receivableapp.PaymentService,
	scheduleService *receivableapp.ScheduleService,
	queryService *receivableapp.QueryService,
) *ReceivableHandler {
	return &ReceivableHandler{
		entryService:    entryService,
		paymentService:  paymentService,
		scheduleService: scheduleService,
		queryService:    queryService,
	}
}

// RegisterRoutes registers the receivable routes on the given group.
// Every receivable route requires the admin or sales role.
func (h *ReceivableHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/receivables")
	g.Use(middleware.RequireRoles("admin", "sales"))
	{
		g.GET("", h.ListReceivables)
		g.GET("/dashboard", h.GetDashboard)
		g.GET("/installments", h.ListInstallments)
		g.POST("/manual", h.CreateManual)
		g.POST("/orders/:id/generate", h.GenerateFromOrder)
		g.POST("/payments/:id/reverse", h.ReversePayment)
		g.PUT("/installments/:id", h.EditInstallment)
		g.DELETE("/installments/:id", h.DeleteInstallment)
		g.GET("/:id", h.GetReceivable)
		g.GET("/:id/payments", h.ListPayments)
		g.POST("/:id/payment", h.ApplyPayment)
		g.POST("/:id/cancel", h.CancelReceivable)
	}
}

// ===================== Request/Response DTOs =====================

// InstallmentResponse represents an installment in API responses
// @Description Installment response
type InstallmentResponse struct {
	ID                string     `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	ReceivableID      string     `json:"receivable_id" example:"550e8400-e29b-41d4-a716-446655440001"`
	Number            int        `json:"number" example:"1"`
	Amount            string     `json:"amount" example:"100.00"`
	PaidAmount        string     `json:"paid_amount" example:"40.00"`
	OutstandingAmount string     `json:"outstanding_amount" example:"60.00"`
	DueDate           time.Time  `json:"due_date"`
	Status            string     `json:"status" example:"PARCIAL"`
	DisplayStatus     string     `json:"display_status" example:"VENCIDA"`
	Overdue           bool       `json:"overdue" example:"false"`
	PaidAt            *time.Time `json:"paid_at,omitempty"`
	Notes             string     `json:"notes,omitempty"`
}

// ReceivableResponse represents a receivable in API responses
// @Description Receivable response
type ReceivableResponse struct {
	ID                string                `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	TenantID          string                `json:"tenant_id" example:"550e8400-e29b-41d4-a716-446655440001"`
	ReceivableNumber  string                `json:"receivable_number" example:"REC-20260115-00001"`
	Description       string                `json:"description" example:"Pedido 287422"`
	OrderID           *string               `json:"order_id,omitempty"`
	OrderNumber       string                `json:"order_number,omitempty" example:"287422"`
	CustomerID        string                `json:"customer_id" example:"550e8400-e29b-41d4-a716-446655440002"`
	PaymentTypeID     *string               `json:"payment_type_id,omitempty"`
	PaymentTermID     *string               `json:"payment_term_id,omitempty"`
	TotalAmount       string                `json:"total_amount" example:"300.00"`
	PaidAmount        string                `json:"paid_amount" example:"100.00"`
	OutstandingAmount string                `json:"outstanding_amount" example:"200.00"`
	IssueDate         time.Time             `json:"issue_date"`
	DueDate           time.Time             `json:"due_date"`
	Status            string                `json:"status" example:"PARCIAL"`
	DisplayStatus     string                `json:"display_status" example:"PARCIAL"`
	Overdue           bool                  `json:"overdue" example:"false"`
	PaidAt            *time.Time            `json:"paid_at,omitempty"`
	CancelledAt       *time.Time            `json:"cancelled_at,omitempty"`
	CancelReason      string                `json:"cancel_reason,omitempty"`
	Notes             string                `json:"notes,omitempty"`
	Installments      []InstallmentResponse `json:"installments,omitempty"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
	Version           int                   `json:"version" example:"1"`
}

// PaymentResponse represents a payment record in API responses
// @Description Payment response
type PaymentResponse struct {
	ID             string     `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	PaymentNumber  string     `json:"payment_number" example:"PAG-20260115-00001"`
	ReceivableID   string     `json:"receivable_id" example:"550e8400-e29b-41d4-a716-446655440001"`
	InstallmentID  *string    `json:"installment_id,omitempty"`
	Kind           string     `json:"kind" example:"PARCIAL"`
	Amount         string     `json:"amount" example:"105.00"`
	AppliedAmount  string     `json:"applied_amount" example:"100.00"`
	Interest       string     `json:"interest" example:"5.00"`
	Discount       string     `json:"discount" example:"0.00"`
	Fine           string     `json:"fine" example:"0.00"`
	Fee            string     `json:"fee" example:"0.00"`
	Method         string     `json:"method" example:"PIX"`
	Reference      string     `json:"reference,omitempty"`
	PaymentDate    time.Time  `json:"payment_date"`
	Notes          string     `json:"notes,omitempty"`
	ReceivedBy     *string    `json:"received_by,omitempty"`
	Status         string     `json:"status" example:"ATIVO"`
	ReversedAt     *time.Time `json:"reversed_at,omitempty"`
	ReversalReason string     `json:"reversal_reason,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// EnrichedInstallmentResponse is one row of the installments listing
// @Description Enriched installment response
type EnrichedInstallmentResponse struct {
	InstallmentResponse
	ReceivableNumber string  `json:"receivable_number" example:"REC-20260115-00001"`
	ReceivableStatus string  `json:"receivable_status" example:"ABERTA"`
	Description      string  `json:"description" example:"Pedido 287422"`
	CustomerID       string  `json:"customer_id" example:"550e8400-e29b-41d4-a716-446655440002"`
	OrderID          *string `json:"order_id,omitempty"`
	OrderNumber      string  `json:"order_number,omitempty" example:"287422"`
	SellerID         *string `json:"seller_id,omitempty"`
	InstallmentCount int     `json:"installment_count" example:"3"`
	DisplayNumber    string  `json:"display_number" example:"287422/001"`
}

// ReceivableDetailsResponse is the full view of one receivable
// @Description Receivable details response
type ReceivableDetailsResponse struct {
	Receivable ReceivableResponse `json:"receivable"`
	Payments   []PaymentResponse  `json:"payments"`
	Degraded   bool               `json:"degraded" example:"false"`
}

// DashboardResponse is the aggregated receivables dashboard
// @Description Dashboard response
type DashboardResponse struct {
	TotalPending     string                        `json:"total_pending" example:"5000.00"`
	TotalOverdue     string                        `json:"total_overdue" example:"1200.00"`
	TotalReceived    string                        `json:"total_received" example:"3800.00"`
	OverdueCount     int                           `json:"overdue_count" example:"3"`
	InstallmentCount int                           `json:"installment_count" example:"25"`
	Overdue          []EnrichedInstallmentResponse `json:"overdue"`
	Upcoming         []EnrichedInstallmentResponse `json:"upcoming"`
	GeneratedAt      time.Time                     `json:"generated_at"`
}

// GenerateFromOrderRequest represents a request to generate installments from an order
// @Description Request body for generating a receivable from a sales order
type GenerateFromOrderRequest struct {
	// Either an explicit installment count or a payment term must be given.
	InstallmentCount int    `json:"installment_count" binding:"omitempty,min=1,max=120" example:"3"`
	IntervalDays     int    `json:"interval_days" binding:"omitempty,min=1" example:"30"`
	FirstDueDate     string `json:"first_due_date" example:"2026-02-15"`
	PaymentTypeID    string `json:"payment_type_id" binding:"omitempty,uuid"`
	PaymentTermID    string `json:"payment_term_id" binding:"omitempty,uuid"`
	Notes            string `json:"notes" binding:"omitempty,max=1000"`
}

// CreateManualRequest represents a request to create an ad-hoc receivable
// @Description Request body for creating a manual receivable
type CreateManualRequest struct {
	CustomerID       string          `json:"customer_id" binding:"required,uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	Description      string          `json:"description" binding:"required,min=1,max=500" example:"Venda balcão"`
	TotalAmount      decimal.Decimal `json:"total_amount" binding:"required" example:"300.00"`
	IssueDate        string          `json:"issue_date" example:"2026-01-15"`
	InstallmentCount int             `json:"installment_count" binding:"omitempty,min=1,max=120" example:"3"`
	IntervalDays     int             `json:"interval_days" binding:"omitempty,min=1" example:"30"`
	FirstDueDate     string          `json:"first_due_date" example:"2026-02-15"`
	PaymentTermID    string          `json:"payment_term_id" binding:"omitempty,uuid"`
	PaymentTypeID    string          `json:"payment_type_id" binding:"omitempty,uuid"`
	Notes            string          `json:"notes" binding:"omitempty,max=1000"`
}

// ApplyPaymentRequest represents a request to record a payment
// @Description Request body for applying a payment
type ApplyPaymentRequest struct {
	InstallmentID string          `json:"installment_id" binding:"omitempty,uuid"`
	Kind          string          `json:"kind" binding:"required,oneof=TOTAL PARCIAL" example:"PARCIAL"`
	Amount        decimal.Decimal `json:"amount" example:"100.00"`
	Interest      decimal.Decimal `json:"interest" example:"0.00"`
	Discount      decimal.Decimal `json:"discount" example:"0.00"`
	Fine          decimal.Decimal `json:"fine" example:"0.00"`
	Fee           decimal.Decimal `json:"fee" example:"0.00"`
	Method        string          `json:"method" binding:"required,min=1,max=50" example:"PIX"`
	PaymentDate   string          `json:"payment_date" example:"2026-01-20"`
	Reference     string          `json:"reference" binding:"omitempty,max=200"`
	Notes         string          `json:"notes" binding:"omitempty,max=1000"`
}

// ApplyPaymentResponse is the outcome of a payment application
// @Description Apply payment response
type ApplyPaymentResponse struct {
	Payment    PaymentResponse    `json:"payment"`
	Receivable ReceivableResponse `json:"receivable"`
}

// ReversePaymentRequest represents a request to reverse a payment
// @Description Request body for reversing a payment
type ReversePaymentRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500" example:"Pagamento lançado em duplicidade"`
}

// CancelReceivableRequest represents a request to cancel a receivable
// @Description Request body for cancelling a receivable
type CancelReceivableRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500" example:"Venda desfeita"`
}

// EditInstallmentRequest represents a request to edit an installment
// @Description Request body for editing an installment's amount or due date
type EditInstallmentRequest struct {
	Amount  *decimal.Decimal `json:"amount,omitempty" example:"120.00"`
	DueDate *string          `json:"due_date,omitempty" example:"2026-03-15"`
	Notes   string           `json:"notes" binding:"omitempty,max=1000"`
}

// EditInstallmentResponse reports an installment edit
// @Description Edit installment response
type EditInstallmentResponse struct {
	Changed    bool                `json:"changed" example:"true"`
	Receivable ReceivableResponse  `json:"receivable"`
	Divergence *DivergenceResponse `json:"divergence,omitempty"`
}

// DivergenceResponse compares the installment total against the order total
// @Description Divergence report response
type DivergenceResponse struct {
	OrderTotal        string `json:"order_total" example:"300.00"`
	InstallmentsTotal string `json:"installments_total" example:"320.00"`
	Difference        string `json:"difference" example:"20.00"`
	Diverges          bool   `json:"diverges" example:"true"`
}

// DeleteInstallmentResponse reports an installment deletion
// @Description Delete installment response
type DeleteInstallmentResponse struct {
	ReceivableDeleted bool    `json:"receivable_deleted" example:"false"`
	ReceivableID      string  `json:"receivable_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	OrderReleased     *string `json:"order_released,omitempty"`
}

// listReceivablesQuery binds the receivable list filter query params
type listReceivablesQuery struct {
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=200"`
	OrderBy    string `form:"order_by"`
	OrderDir   string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
	Search     string `form:"search"`
	CustomerID string `form:"customer_id" binding:"omitempty,uuid"`
	OrderID    string `form:"order_id" binding:"omitempty,uuid"`
	Status     string `form:"status" binding:"omitempty,oneof=ABERTA PARCIAL PAGA CANCELADA"`
	Overdue    *bool  `form:"overdue"`
	DueFrom    string `form:"due_from"`
	DueTo      string `form:"due_to"`
	IssueFrom  string `form:"issue_from"`
	IssueTo    string `form:"issue_to"`
}

// listPaymentsQuery binds the payment list filter query params
type listPaymentsQuery struct {
	Page            int    `form:"page" binding:"omitempty,min=1"`
	PageSize        int    `form:"page_size" binding:"omitempty,min=1,max=200"`
	InstallmentID   string `form:"installment_id" binding:"omitempty,uuid"`
	IncludeReversed bool   `form:"include_reversed"`
	PaidFrom        string `form:"paid_from"`
	PaidTo          string `form:"paid_to"`
	Search          string `form:"search"`
}

// dashboardQuery binds the dashboard filter query params
type dashboardQuery struct {
	Period   string `form:"period" binding:"omitempty,oneof=all today week month quarter year custom"`
	Seller   string `form:"seller_id"`
	DateFrom string `form:"date_from"`
	DateTo   string `form:"date_to"`
}

// ===================== Entry Handlers =====================

// GenerateFromOrder godoc
// @Summary      Generate receivable from order
// @Description  Create a receivable with its installment schedule from a sales order total
// @Tags         receivables
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body GenerateFromOrderRequest true "Schedule parameters"
// @Success      201 {object} dto.Response{data=ReceivableResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /receivables/orders/{id}/generate [post]
func (h *ReceivableHandler) GenerateFromOrder(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	var req GenerateFromOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	firstDueDate, err := parseOptionalDate(req.FirstDueDate)
	if err != nil {
		h.BadRequest(c, "Invalid first_due_date, expected YYYY-MM-DD")
		return
	}

	appReq := receivableapp.GenerateFromOrderRequest{
		TenantID:         tenantID,
		OrderID:          orderID,
		InstallmentCount: req.InstallmentCount,
		IntervalDays:     req.IntervalDays,
		FirstDueDate:     firstDueDate,
		PaymentTypeID:    parseOptionalUUID(req.PaymentTypeID),
		PaymentTermID:    parseOptionalUUID(req.PaymentTermID),
		Notes:            req.Notes,
	}

	r, err := h.entryService.GenerateFromOrder(c.Request.Context(), appReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toReceivableResponse(r, time.Now()))
}

// CreateManual godoc
// @Summary      Create manual receivable
// @Description  Create an ad-hoc receivable not tied to any order
// @Tags         receivables
// @Accept       json
// @Produce      json
// @Param        request body CreateManualRequest true "Receivable data"
// @Success      201 {object} dto.Response{data=ReceivableResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /receivables/manual [post]
func (h *ReceivableHandler) CreateManual(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req CreateManualRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}

	issueDate, err := parseOptionalDate(req.IssueDate)
	if err != nil {
		h.BadRequest(c, "Invalid issue_date, expected YYYY-MM-DD")
		return
	}
	firstDueDate, err := parseOptionalDate(req.FirstDueDate)
	if err != nil {
		h.BadRequest(c, "Invalid first_due_date, expected YYYY-MM-DD")
		return
	}

	appReq := receivableapp.CreateManualRequest{
		TenantID:         tenantID,
		CustomerID:       customerID,
		Description:      req.Description,
		TotalAmount:      req.TotalAmount,
		InstallmentCount: req.InstallmentCount,
		IntervalDays:     req.IntervalDays,
		FirstDueDate:     firstDueDate,
		PaymentTermID:    parseOptionalUUID(req.PaymentTermID),
		PaymentTypeID:    parseOptionalUUID(req.PaymentTypeID),
		Notes:            req.Notes,
	}
	if issueDate != nil {
		appReq.IssueDate = *issueDate
	}

	r, err := h.entryService.CreateManual(c.Request.Context(), appReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toReceivableResponse(r, time.Now()))
}

// CancelReceivable godoc
// @Summary      Cancel receivable
// @Description  Cancel a receivable. The transition is irreversible.
// @Tags         receivables
// @Accept       json
// @Produce      json
// @Param        id path string true "Receivable ID" format(uuid)
// @Param        request body CancelReceivableRequest true "Cancellation reason"
// @Success      200 {object} dto.Response{data=ReceivableResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /receivables/{id}/cancel [post]
func (h *ReceivableHandler) CancelReceivable(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	receivableID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid receivable ID format")
		return
	}

	var req CancelReceivableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	r, err := h.entryService.Cancel(c.Request.Context(), tenantID, receivableID, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toReceivableResponse(r, time.Now()))
}

// ===================== Payment Handlers =====================

// ApplyPayment godoc
// @Summary      Apply payment
// @Description  Record a payment against a receivable or one of its installments
// @Tags         receivables
// @Accept       json
// @Produce      json
// @Param        id path string true "Receivable ID" format(uuid)
// @Param        request body ApplyPaymentRequest true "Payment data"
// @Success      201 {object} dto.Response{data=ApplyPaymentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /receivables/{id}/payment [post]
func (h *ReceivableHandler) ApplyPayment(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	receivableID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid receivable ID format")
		return
	}

	var req ApplyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	paymentDate, err := parseOptionalDate(req.PaymentDate)
	if err != nil {
		h.BadRequest(c, "Invalid payment_date, expected YYYY-MM-DD")
		return
	}

	appReq := receivableapp.ApplyPaymentRequest{
		TenantID: tenantID,
		Kind:     receivable.PaymentKind(req.Kind),
		Amount:   req.Amount,
		Adjustments: receivable.PaymentAdjustments{
			Interest: req.Interest,
			Discount: req.Discount,
			Fine:     req.Fine,
			Fee:      req.Fee,
		},
		Method:    req.Method,
		Reference: req.Reference,
		Notes:     req.Notes,
	}
	// A payment aimed at a specific installment targets it directly, otherwise
	// it is applied against the receivable's open installments in due order.
	// The path receivable is always passed so the pair is cross-checked.
	appReq.ReceivableID = &receivableID
	if req.InstallmentID != "" {
		appReq.InstallmentID = parseOptionalUUID(req.InstallmentID)
	}
	if paymentDate != nil {
		appReq.PaymentDate = *paymentDate
	}
	if operatorID, err := getUserID(c); err == nil {
		appReq.ReceivedBy = &operatorID
	}

	result, err := h.paymentService.ApplyPayment(c.Request.Context(), appReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, ApplyPaymentResponse{
		Payment:    toPaymentResponse(result.Payment),
		Receivable: toReceivableResponse(result.Receivable, time.Now()),
	})
}

// ReversePayment godoc
// @Summary      Reverse payment
// @Description  Reverse a payment, restoring the target's outstanding balance. The payment record is kept for audit.
// @Tags         receivables
// @Accept       json
// @Produce      json
// @Param        id path string true "Payment ID" format(uuid)
// @Param        request body ReversePaymentRequest true "Reversal reason"
// @Success      200 {object} dto.Response{data=ApplyPaymentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /receivables/payments/{id}/reverse [post]
func (h *ReceivableHandler) ReversePayment(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID format")
		return
	}

	var req ReversePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.paymentService.ReversePayment(c.Request.Context(), tenantID, paymentID, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, ApplyPaymentResponse{
		Payment:    toPaymentResponse(result.Payment),
		Receivable: toReceivableResponse(result.Receivable, time.Now()),
	})
}

// ===================== Schedule Handlers =====================

// EditInstallment godoc
// @Summary      Edit installment
// @Description  Change an installment's amount and/or due date. Divergence against the originating order is reported, never blocking.
// @Tags         receivables
// @Accept       json
// @Produce      json
// @Param        id path string true "Installment ID" format(uuid)
// @Param        request body EditInstallmentRequest true "Changes"
// @Success      200 {object} dto.Response{data=EditInstallmentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /receivables/installments/{id} [put]
func (h *ReceivableHandler) EditInstallment(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	installmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid installment ID format")
		return
	}

	var req EditInstallmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	appReq := receivableapp.EditInstallmentRequest{
		TenantID:      tenantID,
		InstallmentID: installmentID,
		NewAmount:     req.Amount,
		Notes:         req.Notes,
	}
	if req.DueDate != nil {
		dueDate, err := parseOptionalDate(*req.DueDate)
		if err != nil {
			h.BadRequest(c, "Invalid due_date, expected YYYY-MM-DD")
			return
		}
		appReq.NewDueDate = dueDate
	}

	result, err := h.scheduleService.EditInstallment(c.Request.Context(), appReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := EditInstallmentResponse{
		Changed:    result.Changed,
		Receivable: toReceivableResponse(result.Receivable, time.Now()),
	}
	if result.Divergence != nil {
		resp.Divergence = &DivergenceResponse{
			OrderTotal:        result.Divergence.OrderTotal.StringFixed(2),
			InstallmentsTotal: result.Divergence.InstallmentsTotal.StringFixed(2),
			Difference:        result.Divergence.Difference.StringFixed(2),
			Diverges:          result.Divergence.Diverges,
		}
	}

	h.Success(c, resp)
}

// DeleteInstallment godoc
// @Summary      Delete installment
// @Description  Remove an installment. Deleting the last one also deletes the receivable and releases the originating order.
// @Tags         receivables
// @Accept       json
// @Produce      json
// @Param        id path string true "Installment ID" format(uuid)
// @Success      200 {object} dto.Response{data=DeleteInstallmentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /receivables/installments/{id} [delete]
func (h *ReceivableHandler) DeleteInstallment(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	installmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid installment ID format")
		return
	}

	result, err := h.scheduleService.DeleteInstallment(c.Request.Context(), tenantID, installmentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := DeleteInstallmentResponse{
		ReceivableDeleted: result.ReceivableDeleted,
		ReceivableID:      result.ReceivableID.String(),
	}
	if result.OrderReleased != nil {
		released := result.OrderReleased.String()
		resp.OrderReleased = &released
	}

	h.Success(c, resp)
}

// ===================== Query Handlers =====================

// GetDashboard godoc
// @Summary      Receivables dashboard
// @Description  Aggregate pending/overdue/received totals and the overdue and upcoming installment lists
// @Tags         receivables
// @Accept       json
// @Produce      json
// @Param        period query string false "Period filter" Enums(all, today, week, month, quarter, year, custom)
// @Param        seller_id query string false "Seller filter: all, none or a seller ID"
// @Param        date_from query string false "Custom period start (YYYY-MM-DD)"
// @Param        date_to query string false "Custom period end (YYYY-MM-DD)"
// @Success      200 {object} dto.Response{data=DashboardResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /receivables/dashboard [get]
func (h *ReceivableHandler) GetDashboard(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var q dashboardQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	criteria := receivable.DefaultFilterCriteria()
	if q.Period != "" {
		criteria.Period = receivable.PeriodFilter(q.Period)
	}
	if q.Seller != "" {
		criteria.Seller = q.Seller
	}
	dateFrom, err := parseOptionalDate(q.DateFrom)
	if err != nil {
		h.BadRequest(c, "Invalid date_from, expected YYYY-MM-DD")
		return
	}
	dateTo, err := parseOptionalDate(q.DateTo)
	if err != nil {
		h.BadRequest(c, "Invalid date_to, expected YYYY-MM-DD")
		return
	}
	criteria.DateFrom = dateFrom
	criteria.DateTo = dateTo

	view, err := h.queryService.GetDashboard(c.Request.Context(), tenantID, criteria)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toDashboardResponse(view))
}

// ListInstallments godoc
// @Summary      List installments
// @Description  Every non-cancelled installment of the tenant with receivable and order context
// @Tags         receivables
// @Accept       json
// @Produce      json
// @Success      200 {object} dto.Response{data=[]EnrichedInstallmentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /receivables/installments [get]
func (h *ReceivableHandler) ListInstallments(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	items, err := h.queryService.ListInstallments(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	now := time.Now()
	responses := make([]EnrichedInstallmentResponse, len(items))
	for i, item := range items {
		responses[i] = toEnrichedInstallmentResponse(item.EnrichedInstallment, now)
		responses[i].DisplayNumber = item.DisplayNumber
		responses[i].DisplayStatus = item.DisplayStatus
	}

	h.Success(c, responses)
}

// ListReceivables godoc
// @Summary      List receivables
// @Description  Paginated receivable listing with filtering
// @Tags         receivables
// @Accept       json
// @Produce      json
// @Param        search query string false "Search term (receivable number, order number, description)"
// @Param        customer_id query string false "Customer ID" format(uuid)
// @Param        order_id query string false "Order ID" format(uuid)
// @Param        status query string false "Status" Enums(ABERTA, PARCIAL, PAGA, CANCELADA)
// @Param        overdue query boolean false "Filter overdue only"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(200)
// @Success      200 {object} dto.Response{data=[]ReceivableResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /receivables [get]
func (h *ReceivableHandler) ListReceivables(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var q listReceivablesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter, err := q.toFilter()
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	page, err := h.queryService.ListReceivables(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	now := time.Now()
	responses := make([]ReceivableResponse, len(page.Items))
	for i, r := range page.Items {
		responses[i] = toReceivableResponse(r, now)
	}

	h.SuccessWithMeta(c, responses, page.Total, page.Page, page.PageSize)
}

// GetReceivable godoc
// @Summary      Get receivable details
// @Description  One receivable with its installments and payment history. The degraded flag marks a reduced-fidelity fallback read.
// @Tags         receivables
// @Accept       json
// @Produce      json
// @Param        id path string true "Receivable ID" format(uuid)
// @Success      200 {object} dto.Response{data=ReceivableDetailsResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /receivables/{id} [get]
func (h *ReceivableHandler) GetReceivable(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	receivableID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid receivable ID format")
		return
	}

	details, err := h.queryService.GetReceivableDetails(c.Request.Context(), tenantID, receivableID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	payments := make([]PaymentResponse, len(details.Payments))
	for i, p := range details.Payments {
		payments[i] = toPaymentResponse(p)
	}

	h.Success(c, ReceivableDetailsResponse{
		Receivable: toReceivableResponse(details.Receivable, time.Now()),
		Payments:   payments,
		Degraded:   details.Degraded,
	})
}

// ListPayments godoc
// @Summary      List payments of a receivable
// @Description  Payment history of one receivable, optionally including reversed payments
// @Tags         receivables
// @Accept       json
// @Produce      json
// @Param        id path string true "Receivable ID" format(uuid)
// @Param        include_reversed query boolean false "Include reversed payments"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(200)
// @Success      200 {object} dto.Response{data=[]PaymentResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /receivables/{id}/payments [get]
func (h *ReceivableHandler) ListPayments(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	receivableID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid receivable ID format")
		return
	}

	var q listPaymentsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter, err := q.toFilter(receivableID)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	page, err := h.queryService.ListPayments(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]PaymentResponse, len(page.Items))
	for i, p := range page.Items {
		responses[i] = toPaymentResponse(p)
	}

	h.SuccessWithMeta(c, responses, page.Total, page.Page, page.PageSize)
}

// ===================== Filter Conversion =====================

func (q listReceivablesQuery) toFilter() (receivable.ReceivableFilter, error) {
	filter := receivable.ReceivableFilter{}
	filter.Page = q.Page
	filter.PageSize = q.PageSize
	filter.OrderBy = q.OrderBy
	filter.OrderDir = q.OrderDir
	filter.Search = q.Search
	filter.CustomerID = parseOptionalUUID(q.CustomerID)
	filter.OrderID = parseOptionalUUID(q.OrderID)
	filter.Overdue = q.Overdue

	if q.Status != "" {
		status := receivable.Status(q.Status)
		filter.Status = &status
	}

	for _, bind := range []struct {
		raw  string
		dest **time.Time
	}{
		{q.DueFrom, &filter.DueFrom},
		{q.DueTo, &filter.DueTo},
		{q.IssueFrom, &filter.IssueFrom},
		{q.IssueTo, &filter.IssueTo},
	} {
		parsed, err := parseOptionalDate(bind.raw)
		if err != nil {
			return filter, err
		}
		*bind.dest = parsed
	}
	return filter, nil
}

func (q listPaymentsQuery) toFilter(receivableID uuid.UUID) (receivable.PaymentFilter, error) {
	filter := receivable.PaymentFilter{}
	filter.Page = q.Page
	filter.PageSize = q.PageSize
	filter.Search = q.Search
	filter.ReceivableID = &receivableID
	filter.InstallmentID = parseOptionalUUID(q.InstallmentID)
	filter.IncludeReversed = q.IncludeReversed

	paidFrom, err := parseOptionalDate(q.PaidFrom)
	if err != nil {
		return filter, err
	}
	paidTo, err := parseOptionalDate(q.PaidTo)
	if err != nil {
		return filter, err
	}
	filter.PaidFrom = paidFrom
	filter.PaidTo = paidTo
	return filter, nil
}

// parseOptionalDate parses a YYYY-MM-DD value, empty meaning absent
func parseOptionalDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// parseOptionalUUID returns nil for empty or malformed values. Formats are
// enforced by binding tags before this runs.
func parseOptionalUUID(value string) *uuid.UUID {
	if value == "" {
		return nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return nil
	}
	return &id
}

// ===================== Response Conversion Functions =====================

func toInstallmentResponse(inst receivable.Installment, now time.Time) InstallmentResponse {
	return InstallmentResponse{
		ID:                inst.ID.String(),
		ReceivableID:      inst.ReceivableID.String(),
		Number:            inst.Number,
		Amount:            inst.Amount.StringFixed(2),
		PaidAmount:        inst.PaidAmount.StringFixed(2),
		OutstandingAmount: inst.OutstandingAmount.StringFixed(2),
		DueDate:           inst.DueDate,
		Status:            inst.Status.String(),
		DisplayStatus:     inst.DisplayStatus(now),
		Overdue:           inst.IsOverdue(now),
		PaidAt:            inst.PaidAt,
		Notes:             inst.Notes,
	}
}

func toReceivableResponse(r *receivable.Receivable, now time.Time) ReceivableResponse {
	installments := make([]InstallmentResponse, len(r.Installments))
	for i, inst := range r.Installments {
		installments[i] = toInstallmentResponse(inst, now)
	}

	return ReceivableResponse{
		ID:                r.ID.String(),
		TenantID:          r.TenantID.String(),
		ReceivableNumber:  r.ReceivableNumber,
		Description:       r.Description,
		OrderID:           uuidPtrToString(r.OrderID),
		OrderNumber:       r.OrderNumber,
		CustomerID:        r.CustomerID.String(),
		PaymentTypeID:     uuidPtrToString(r.PaymentTypeID),
		PaymentTermID:     uuidPtrToString(r.PaymentTermID),
		TotalAmount:       r.TotalAmount.StringFixed(2),
		PaidAmount:        r.PaidAmount.StringFixed(2),
		OutstandingAmount: r.OutstandingAmount.StringFixed(2),
		IssueDate:         r.IssueDate,
		DueDate:           r.DueDate,
		Status:            r.Status.String(),
		DisplayStatus:     receivable.DisplayStatus(r.Status, r.DueDate, now),
		Overdue:           r.IsOverdue(now),
		PaidAt:            r.PaidAt,
		CancelledAt:       r.CancelledAt,
		CancelReason:      r.CancelReason,
		Notes:             r.Notes,
		Installments:      installments,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
		Version:           r.Version,
	}
}

func toPaymentResponse(p *receivable.Payment) PaymentResponse {
	return PaymentResponse{
		ID:             p.ID.String(),
		PaymentNumber:  p.PaymentNumber,
		ReceivableID:   p.ReceivableID.String(),
		InstallmentID:  uuidPtrToString(p.InstallmentID),
		Kind:           string(p.Kind),
		Amount:         p.Amount.StringFixed(2),
		AppliedAmount:  p.AppliedAmount.StringFixed(2),
		Interest:       p.Adjustments.Interest.StringFixed(2),
		Discount:       p.Adjustments.Discount.StringFixed(2),
		Fine:           p.Adjustments.Fine.StringFixed(2),
		Fee:            p.Adjustments.Fee.StringFixed(2),
		Method:         p.Method,
		Reference:      p.Reference,
		PaymentDate:    p.PaymentDate,
		Notes:          p.Notes,
		ReceivedBy:     uuidPtrToString(p.ReceivedBy),
		Status:         p.Status.String(),
		ReversedAt:     p.ReversedAt,
		ReversalReason: p.ReversalReason,
		CreatedAt:      p.CreatedAt,
	}
}

func toEnrichedInstallmentResponse(e receivable.EnrichedInstallment, now time.Time) EnrichedInstallmentResponse {
	return EnrichedInstallmentResponse{
		InstallmentResponse: toInstallmentResponse(e.Installment, now),
		ReceivableNumber:    e.ReceivableNumber,
		ReceivableStatus:    e.ReceivableStatus.String(),
		Description:         e.Description,
		CustomerID:          e.CustomerID.String(),
		OrderID:             uuidPtrToString(e.OrderID),
		OrderNumber:         e.OrderNumber,
		SellerID:            uuidPtrToString(e.SellerID),
		InstallmentCount:    e.InstallmentCount,
		DisplayNumber:       e.DisplayNumber(),
	}
}

func toDashboardResponse(view *receivable.DashboardView) DashboardResponse {
	now := time.Now()
	overdue := make([]EnrichedInstallmentResponse, len(view.Overdue))
	for i, e := range view.Overdue {
		overdue[i] = toEnrichedInstallmentResponse(e, now)
	}
	upcoming := make([]EnrichedInstallmentResponse, len(view.Upcoming))
	for i, e := range view.Upcoming {
		upcoming[i] = toEnrichedInstallmentResponse(e, now)
	}

	return DashboardResponse{
		TotalPending:     view.Summary.TotalPending.StringFixed(2),
		TotalOverdue:     view.Summary.TotalOverdue.StringFixed(2),
		TotalReceived:    view.Summary.TotalReceived.StringFixed(2),
		OverdueCount:     view.Summary.OverdueCount,
		InstallmentCount: view.Summary.InstallmentCount,
		Overdue:          overdue,
		Upcoming:         upcoming,
		GeneratedAt:      view.GeneratedAt,
	}
}

func uuidPtrToString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
