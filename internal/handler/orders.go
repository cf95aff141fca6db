package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/cucihub/api/internal/database"
	"github.com/cucihub/api/internal/enum"
	"github.com/cucihub/api/internal/logger"
	"github.com/cucihub/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StatusServicer defines the state-machine methods used by order handlers.
// Satisfied by *service.StatusService; narrow interface for testability.
type StatusServicer interface {
	SetStatus(ctx context.Context, orderID uuid.UUID, targetIdx int) (*service.SetStatusResult, error)
}

// OrderStore defines the database methods needed by order handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetService(ctx context.Context, id uuid.UUID) (database.Service, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateStatusHistory(ctx context.Context, arg database.CreateStatusHistoryParams) (database.StatusHistory, error)
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID) ([]database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListStatusHistoryByOrder(ctx context.Context, orderID uuid.UUID) ([]database.StatusHistory, error)
	ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.Payment, error)
	SetOrderWeight(ctx context.Context, arg database.SetOrderWeightParams) (database.Order, error)
	CancelOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
}

// Notifier dispatches a status notification after a transition.
type Notifier interface {
	OrderStatus(ctx context.Context, order database.Order, status string)
}

// Broadcaster pushes a transition to connected websocket clients.
type Broadcaster interface {
	BroadcastOrderStatus(orderID uuid.UUID, status, paymentStatus string)
}

// OrderHandler handles order endpoints for both app areas.
type OrderHandler struct {
	svc      StatusServicer
	store    OrderStore
	notifier Notifier
	hub      Broadcaster
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc StatusServicer, store OrderStore, notifier Notifier, hub Broadcaster) *OrderHandler {
	return &OrderHandler{svc: svc, store: store, notifier: notifier, hub: hub}
}

// RegisterCustomerRoutes registers the customer-facing order endpoints.
func (h *OrderHandler) RegisterCustomerRoutes(r chi.Router) {
	r.Post("/orders", h.Create)
	r.Get("/orders", h.ListMine)
	r.Get("/orders/{id}", h.Get)
	r.Post("/orders/{id}/cancel", h.Cancel)
}

// RegisterStaffRoutes registers the dashboard order endpoints.
func (h *OrderHandler) RegisterStaffRoutes(r chi.Router) {
	r.Get("/orders", h.List)
	r.Get("/orders/{id}", h.Get)
	r.Patch("/orders/{id}/status", h.UpdateStatus)
	r.Patch("/orders/{id}/weight", h.SetWeight)
	r.Post("/orders/{id}/cancel", h.Cancel)
}

// --- Request / Response types ---

type createOrderRequest struct {
	CustomerID      string `json:"customer_id"`
	ServiceID       string `json:"service_id"`
	PaymentMethod   string `json:"payment_method"`
	EstimatedWeight string `json:"estimated_weight"`
	Notes           string `json:"notes"`
	PickupAddress   string `json:"pickup_address"`
	CompletionAt    string `json:"completion_at"` // RFC3339, optional
}

type updateStatusRequest struct {
	StepIndex *int `json:"step_index"`
}

type setWeightRequest struct {
	ActualWeight string `json:"actual_weight"`
}

type orderResponse struct {
	ID              uuid.UUID  `json:"id"`
	CustomerID      uuid.UUID  `json:"customer_id"`
	ServiceID       uuid.UUID  `json:"service_id"`
	PaymentMethod   string     `json:"payment_method"`
	PaymentStatus   string     `json:"payment_status"`
	Status          string     `json:"status"`
	Steps           []string   `json:"steps"`
	EstimatedWeight string     `json:"estimated_weight"`
	ActualWeight    *string    `json:"actual_weight"`
	TotalAmount     *string    `json:"total_amount"`
	Notes           *string    `json:"notes"`
	PickupAddress   string     `json:"pickup_address"`
	CompletionAt    *time.Time `json:"completion_at"`
	CancelledAt     *time.Time `json:"cancelled_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type historyResponse struct {
	ID          uuid.UUID `json:"id"`
	Status      string    `json:"status"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type orderDetailResponse struct {
	orderResponse
	History  []historyResponse `json:"history"`
	Payments []paymentResponse `json:"payments"`
}

type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// --- Handlers ---

// Create handles POST /api/orders. The final price stays open until staff
// weigh the laundry; the estimate is informational.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid customer_id")
		return
	}

	serviceID, err := uuid.Parse(req.ServiceID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid service_id")
		return
	}

	if req.PaymentMethod != enum.PaymentMethodCOD && req.PaymentMethod != enum.PaymentMethodQRIS {
		writeError(w, http.StatusBadRequest, "invalid payment_method")
		return
	}

	weight, err := decimal.NewFromString(req.EstimatedWeight)
	if err != nil || weight.LessThanOrEqual(decimal.Zero) {
		writeError(w, http.StatusBadRequest, "estimated_weight must be positive")
		return
	}

	if req.PickupAddress == "" {
		writeError(w, http.StatusBadRequest, "pickup_address is required")
		return
	}

	var completionAt pgtype.Timestamptz
	if req.CompletionAt != "" {
		t, err := time.Parse(time.RFC3339, req.CompletionAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid completion_at")
			return
		}
		completionAt = pgtype.Timestamptz{Time: t, Valid: true}
	}

	svc, err := h.store.GetService(r.Context(), serviceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusBadRequest, "service not found")
			return
		}
		h.internalError(w, r, "get service", err)
		return
	}
	if svc.IsArchived {
		writeError(w, http.StatusBadRequest, "service is no longer offered")
		return
	}

	order, err := h.store.CreateOrder(r.Context(), database.CreateOrderParams{
		CustomerID:      customerID,
		ServiceID:       serviceID,
		PaymentMethod:   req.PaymentMethod,
		Status:          enum.StepReceived,
		EstimatedWeight: decimalToNumeric(weight),
		Notes:           textFrom(req.Notes),
		PickupAddress:   req.PickupAddress,
		CompletionAt:    completionAt,
	})
	if err != nil {
		h.internalError(w, r, "create order", err)
		return
	}

	if _, err := h.store.CreateStatusHistory(r.Context(), database.CreateStatusHistoryParams{
		OrderID:     order.ID,
		Status:      enum.StepReceived,
		Description: service.DescribeStep(enum.StepReceived),
	}); err != nil {
		h.internalError(w, r, "create status history", err)
		return
	}

	h.notifier.OrderStatus(r.Context(), order, enum.StepReceived)

	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

// ListMine handles GET /api/orders?customer_id= for the customer area.
func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	customerID, err := uuid.Parse(r.URL.Query().Get("customer_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "customer_id is required")
		return
	}

	orders, err := h.store.ListOrdersByCustomer(r.Context(), customerID)
	if err != nil {
		h.internalError(w, r, "list orders", err)
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o)
	}
	writeJSON(w, http.StatusOK, map[string][]orderResponse{"orders": resp})
}

// List handles GET /api/staff/orders with optional status filter and
// pagination.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}

	var status pgtype.Text
	if s := r.URL.Query().Get("status"); s != "" {
		status = pgtype.Text{String: s, Valid: true}
	}

	orders, err := h.store.ListOrders(r.Context(), database.ListOrdersParams{
		Status: status,
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		h.internalError(w, r, "list orders", err)
		return
	}

	resp := orderListResponse{Orders: make([]orderResponse, len(orders)), Limit: limit, Offset: offset}
	for i, o := range orders {
		resp.Orders[i] = toOrderResponse(o)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET .../orders/{id} and returns the order with its history and
// payments.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		h.internalError(w, r, "get order", err)
		return
	}

	history, err := h.store.ListStatusHistoryByOrder(r.Context(), orderID)
	if err != nil {
		h.internalError(w, r, "list status history", err)
		return
	}

	payments, err := h.store.ListPaymentsByOrder(r.Context(), orderID)
	if err != nil {
		h.internalError(w, r, "list payments", err)
		return
	}

	resp := orderDetailResponse{
		orderResponse: toOrderResponse(order),
		History:       make([]historyResponse, len(history)),
		Payments:      make([]paymentResponse, len(payments)),
	}
	for i, hist := range history {
		resp.History[i] = historyResponse{
			ID:          hist.ID,
			Status:      hist.Status,
			Description: hist.Description,
			CreatedAt:   hist.CreatedAt,
		}
	}
	for i, p := range payments {
		resp.Payments[i] = toPaymentResponse(p)
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateStatus handles PATCH /api/staff/orders/{id}/status. The target step
// is addressed by its index in the order's step list.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.StepIndex == nil {
		writeError(w, http.StatusBadRequest, "step_index is required")
		return
	}

	result, err := h.svc.SetStatus(r.Context(), orderID, *req.StepIndex)
	if err != nil {
		h.respondStatusError(w, r, err)
		return
	}

	if result.Moved {
		h.notifier.OrderStatus(r.Context(), result.Order, result.Status)
		h.hub.BroadcastOrderStatus(result.Order.ID, result.Order.Status, result.Order.PaymentStatus)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"order": toOrderResponse(result.Order),
		"moved": result.Moved,
	})
}

// SetWeight handles PATCH /api/staff/orders/{id}/weight. Recording the
// measured weight fixes the final price from the service's per-kg rate.
func (h *OrderHandler) SetWeight(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	var req setWeightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	weight, err := decimal.NewFromString(req.ActualWeight)
	if err != nil || weight.LessThanOrEqual(decimal.Zero) {
		writeError(w, http.StatusBadRequest, "actual_weight must be positive")
		return
	}

	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		h.internalError(w, r, "get order", err)
		return
	}

	if order.CancelledAt.Valid || order.Status == enum.StatusCancelled {
		writeError(w, http.StatusConflict, "order is cancelled")
		return
	}
	if order.PaymentStatus == enum.PaymentStatusPaid {
		writeError(w, http.StatusConflict, "weight is locked after payment")
		return
	}

	svc, err := h.store.GetService(r.Context(), order.ServiceID)
	if err != nil {
		h.internalError(w, r, "get service", err)
		return
	}

	total := weight.Mul(numericToDecimal(svc.PricePerKg))
	updated, err := h.store.SetOrderWeight(r.Context(), database.SetOrderWeightParams{
		ID:           orderID,
		ActualWeight: decimalToNumeric(weight),
		TotalAmount:  decimalToNumeric(total),
	})
	if err != nil {
		h.internalError(w, r, "set order weight", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(updated))
}

// Cancel handles POST .../orders/{id}/cancel. Completed and already
// cancelled orders stay as they are.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	cancelled, err := h.store.CancelOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusConflict, "order can no longer be cancelled")
			return
		}
		h.internalError(w, r, "cancel order", err)
		return
	}

	h.notifier.OrderStatus(r.Context(), cancelled, enum.StatusCancelled)
	h.hub.BroadcastOrderStatus(cancelled.ID, cancelled.Status, cancelled.PaymentStatus)

	writeJSON(w, http.StatusOK, toOrderResponse(cancelled))
}

// --- Helpers ---

/// respondStatusError maps state-machine errors to HTTP codes: bad input 400,
// gate violations 409, unknown order 404.
func (h *OrderHandler) respondStatusError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidStep):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrOrderCancelled),
		errors.Is(err, service.ErrWeightRequired),
		errors.Is(err, service.ErrPaymentRequired),
		errors.Is(err, service.ErrUnpaidCompletion):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, pgx.ErrNoRows):
		writeError(w, http.StatusNotFound, "order not found")
	default:
		h.internalError(w, r, "update status", err)
	}
}

func (h *OrderHandler) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	logger.FromCtx(r.Context()).Error(op, zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func toOrderResponse(o database.Order) orderResponse {
	resp := orderResponse{
		ID:              o.ID,
		CustomerID:      o.CustomerID,
		ServiceID:       o.ServiceID,
		PaymentMethod:   o.PaymentMethod,
		PaymentStatus:   o.PaymentStatus,
		Status:          o.Status,
		Steps:           service.StepsFor(o.PaymentMethod),
		EstimatedWeight: numericToString(o.EstimatedWeight),
		PickupAddress:   o.PickupAddress,
		Notes:           textOrNil(o.Notes),
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}

	if o.ActualWeight.Valid {
		s := numericToString(o.ActualWeight)
		resp.ActualWeight = &s
	}
	if o.TotalAmount.Valid {
		s := numericToString(o.TotalAmount)
		resp.TotalAmount = &s
	}
	if o.CompletionAt.Valid {
		resp.CompletionAt = &o.CompletionAt.Time
	}
	if o.CancelledAt.Valid {
		resp.CancelledAt = &o.CancelledAt.Time
	}
	return resp
}
