package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/cucihub/api/internal/database"
	"github.com/cucihub/api/internal/logger"
	"github.com/cucihub/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// AccountStore defines the database methods needed by account handlers.
// Satisfied by *database.Queries (and its WithTx variant).
type AccountStore interface {
	CreateCustomer(ctx context.Context, arg database.CreateCustomerParams) (database.Customer, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (database.Customer, error)
	DeleteReviewsByCustomer(ctx context.Context, customerID uuid.UUID) error
	DeleteNotificationsByUser(ctx context.Context, userID uuid.UUID) error
	DeleteStatusHistoryByCustomer(ctx context.Context, customerID uuid.UUID) error
	DeletePaymentsByCustomer(ctx context.Context, customerID uuid.UUID) error
	DeleteOrdersByCustomer(ctx context.Context, customerID uuid.UUID) error
	DeleteCustomer(ctx context.Context, id uuid.UUID) error
}

// NewAccountStore builds an AccountStore over the given connection or
// transaction.
type NewAccountStore func(db database.DBTX) AccountStore

// AccountDeleter removes the user record from the hosted auth provider.
type AccountDeleter interface {
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

// AccountHandler manages the local customer profile and full account
// removal.
type AccountHandler struct {
	store    AccountStore
	pool     service.TxBeginner
	newStore NewAccountStore
	provider AccountDeleter
}

// NewAccountHandler creates a new AccountHandler. store serves the
// single-statement operations; the deletion cascade builds its own store
// over a transaction via newStore.
func NewAccountHandler(store AccountStore, pool service.TxBeginner, newStore NewAccountStore, provider AccountDeleter) *AccountHandler {
	return &AccountHandler{store: store, pool: pool, newStore: newStore, provider: provider}
}

// RegisterRoutes registers account endpoints on the given Chi router.
func (h *AccountHandler) RegisterRoutes(r chi.Router) {
	r.Post("/account", h.UpsertProfile)
	r.Get("/account", h.GetProfile)
	r.Delete("/account", h.DeleteAccount)
}

// --- Request / Response types ---

type upsertProfileRequest struct {
	CustomerID string  `json:"customer_id"`
	FullName   string  `json:"full_name"`
	Email      string  `json:"email"`
	Phone      *string `json:"phone"`
	Address    *string `json:"address"`
}

type customerResponse struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Phone     *string   `json:"phone"`
	Address   *string   `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

// --- Handlers ---

// UpsertProfile handles POST /api/account. The customer row mirrors the
// hosted auth user and is refreshed on every login.
func (h *AccountHandler) UpsertProfile(w http.ResponseWriter, r *http.Request) {
	var req upsertProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid customer_id")
		return
	}
	if req.FullName == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "full_name and email are required")
		return
	}

	customer, err := h.store.CreateCustomer(r.Context(), database.CreateCustomerParams{
		ID:       customerID,
		FullName: req.FullName,
		Phone:    textFromPtr(req.Phone),
		Email:    req.Email,
		Address:  textFromPtr(req.Address),
	})
	if err != nil {
		h.internalError(w, r, "upsert customer", err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerResponse(customer))
}

// GetProfile handles GET /api/account?customer_id=...
func (h *AccountHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	customerID, err := uuid.Parse(r.URL.Query().Get("customer_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid customer_id")
		return
	}

	customer, err := h.store.GetCustomer(r.Context(), customerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "customer not found")
			return
		}
		h.internalError(w, r, "get customer", err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerResponse(customer))
}

// DeleteAccount handles DELETE /api/account?customer_id=... All of the
// customer's data goes in one transaction; only then is the auth-provider
// user removed. A provider failure after local deletion is reported so the
// client can retry the provider side.
func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	customerID, err := uuid.Parse(r.URL.Query().Get("customer_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid customer_id")
		return
	}

	tx, err := h.pool.Begin(r.Context())
	if err != nil {
		h.internalError(w, r, "begin tx", err)
		return
	}
	defer tx.Rollback(r.Context())

	store := h.newStore(tx)
	if _, err := store.GetCustomer(r.Context(), customerID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "customer not found")
			return
		}
		h.internalError(w, r, "get customer", err)
		return
	}

	// Children before parents: reviews and payments reference orders,
	// everything references the customer.
	steps := []struct {
		op string
		fn func(context.Context, uuid.UUID) error
	}{
		{"delete reviews", store.DeleteReviewsByCustomer},
		{"delete notifications", store.DeleteNotificationsByUser},
		{"delete status history", store.DeleteStatusHistoryByCustomer},
		{"delete payments", store.DeletePaymentsByCustomer},
		{"delete orders", store.DeleteOrdersByCustomer},
		{"delete customer", store.DeleteCustomer},
	}
	for _, s := range steps {
		if err := s.fn(r.Context(), customerID); err != nil {
			h.internalError(w, r, s.op, err)
			return
		}
	}

	if err := tx.Commit(r.Context()); err != nil {
		h.internalError(w, r, "commit tx", err)
		return
	}

	if err := h.provider.DeleteUser(r.Context(), customerID); err != nil {
		logger.FromCtx(r.Context()).Error("delete auth provider user",
			zap.String("customer_id", customerID.String()), zap.Error(err))
		writeError(w, http.StatusBadGateway, "account data removed but auth provider deletion failed")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *AccountHandler) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	logger.FromCtx(r.Context()).Error(op, zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func toCustomerResponse(c database.Customer) customerResponse {
	return customerResponse{
		ID:        c.ID,
		FullName:  c.FullName,
		Email:     c.Email,
		Phone:     textOrNil(c.Phone),
		Address:   textOrNil(c.Address),
		CreatedAt: c.CreatedAt,
	}
}
