package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cucihub/api/internal/database"
	"github.com/cucihub/api/internal/enum"
	"github.com/cucihub/api/internal/logger"
	"github.com/cucihub/api/internal/payment"
	"github.com/cucihub/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentServicer settles a gateway payment against an order.
// Satisfied by *service.StatusService.
type PaymentServicer interface {
	ConfirmPayment(ctx context.Context, orderID uuid.UUID, amount pgtype.Numeric, method, reference string) (*service.SetStatusResult, error)
}

// PaymentStore defines the database methods needed by payment handlers.
type PaymentStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (database.Customer, error)
	GetService(ctx context.Context, id uuid.UUID) (database.Service, error)
}

// PaymentHandler delegates transactions to the gateway and records
// settlements.
type PaymentHandler struct {
	store    PaymentStore
	svc      PaymentServicer
	gateway  payment.Gateway
	notifier Notifier
	hub      Broadcaster
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(store PaymentStore, svc PaymentServicer, gateway payment.Gateway, notifier Notifier, hub Broadcaster) *PaymentHandler {
	return &PaymentHandler{store: store, svc: svc, gateway: gateway, notifier: notifier, hub: hub}
}

// RegisterRoutes registers payment endpoints on the given Chi router.
func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.Post("/payments/token", h.CreateToken)
	r.Post("/payments/confirm", h.Confirm)
}

// --- Request / Response types ---

type createTokenRequest struct {
	OrderID string `json:"order_id"`
}

type createTokenResponse struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
	OrderID     string `json:"order_id"`
}

// confirmRequest is the Midtrans payment notification shape.
type confirmRequest struct {
	OrderID           string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	TransactionStatus string `json:"transaction_status"`
	TransactionID     string `json:"transaction_id"`
	PaymentType       string `json:"payment_type"`
}

type paymentResponse struct {
	ID        uuid.UUID `json:"id"`
	OrderID   uuid.UUID `json:"order_id"`
	Method    string    `json:"method"`
	Amount    string    `json:"amount"`
	Reference *string   `json:"reference"`
	PaidAt    time.Time `json:"paid_at"`
}

// --- Handlers ---

// CreateToken handles POST /api/payments/token. It opens a Snap transaction
// for a weighed, unpaid QRIS order and hands the client token back to the
// browser, which drives the gateway's own payment widget.
func (h *PaymentHandler) CreateToken(w http.ResponseWriter, r *http.Request) {
	var req createTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order_id")
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

	if order.PaymentMethod != enum.PaymentMethodQRIS {
		writeError(w, http.StatusBadRequest, "order is not paid through the gateway")
		return
	}
	if order.PaymentStatus == enum.PaymentStatusPaid {
		writeError(w, http.StatusConflict, "order is already paid")
		return
	}
	if !order.TotalAmount.Valid {
		writeError(w, http.StatusConflict, "order has not been weighed yet")
		return
	}

	customer, err := h.store.GetCustomer(r.Context(), order.CustomerID)
	if err != nil {
		h.internalError(w, r, "get customer", err)
		return
	}

	svc, err := h.store.GetService(r.Context(), order.ServiceID)
	if err != nil {
		h.internalError(w, r, "get service", err)
		return
	}

	gross := numericToDecimal(order.TotalAmount).Round(0).IntPart()

	// Gateway order IDs must be unique per attempt; the order UUID is kept
	// as the fixed-length suffix so the confirm side can recover it.
	gatewayOrderID := fmt.Sprintf("CUCI-%d-%s", time.Now().Unix(), order.ID)

	result, err := h.gateway.CreateTransaction(r.Context(), payment.TransactionRequest{
		OrderID:       gatewayOrderID,
		GrossAmount:   gross,
		CustomerName:  customer.FullName,
		CustomerEmail: customer.Email,
		Items: []payment.Item{{
			ID:    order.ServiceID.String(),
			Name:  svc.Name,
			Price: gross,
			Qty:   1,
		}},
	})
	if err != nil {
		logger.FromCtx(r.Context()).Error("gateway create transaction", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, createTokenResponse{
		Token:       result.Token,
		RedirectURL: result.RedirectURL,
		OrderID:     gatewayOrderID,
	})
}

// Confirm handles POST /api/payments/confirm, the gateway's payment
// notification. The SHA-512 signature is verified before anything is
// trusted; settlement records the payment and releases the order into the
// wash queue.
func (h *PaymentHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !h.gateway.VerifySignature(req.OrderID, req.StatusCode, req.GrossAmount, req.SignatureKey) {
		writeError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	orderID, err := orderIDFromGateway(req.OrderID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unrecognized order_id")
		return
	}

	switch req.TransactionStatus {
	case "settlement", "capture":
	default:
		// Pending, deny, expire and cancel events change nothing.
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	amount, err := decimal.NewFromString(req.GrossAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid gross_amount")
		return
	}

	method := enum.PaymentMethodQRIS
	if req.PaymentType != "" && req.PaymentType != "qris" {
		method = req.PaymentType
	}

	result, err := h.svc.ConfirmPayment(r.Context(), orderID, decimalToNumeric(amount), method, req.TransactionID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAlreadyPaid):
			// Gateways redeliver notifications; a settled order is fine.
			writeJSON(w, http.StatusOK, map[string]string{"status": "already paid"})
		case errors.Is(err, service.ErrOrderCancelled):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, pgx.ErrNoRows):
			writeError(w, http.StatusNotFound, "order not found")
		default:
			h.internalError(w, r, "confirm payment", err)
		}
		return
	}

	h.notifier.OrderStatus(r.Context(), result.Order, result.Status)
	h.hub.BroadcastOrderStatus(result.Order.ID, result.Order.Status, result.Order.PaymentStatus)

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Helpers ---

// orderIDFromGateway recovers the order UUID from a "CUCI-<ts>-<uuid>"
// gateway order ID. The UUID is the fixed-length suffix.
func orderIDFromGateway(gatewayOrderID string) (uuid.UUID, error) {
	const uuidLen = 36
	if len(gatewayOrderID) < uuidLen {
		return uuid.Nil, fmt.Errorf("gateway order id too short")
	}
	return uuid.Parse(gatewayOrderID[len(gatewayOrderID)-uuidLen:])
}

func (h *PaymentHandler) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	logger.FromCtx(r.Context()).Error(op, zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func toPaymentResponse(p database.Payment) paymentResponse {
	return paymentResponse{
		ID:        p.ID,
		OrderID:   p.OrderID,
		Method:    p.Method,
		Amount:    numericToString(p.Amount),
		Reference: textOrNil(p.Reference),
		PaidAt:    p.PaidAt,
	}
}
