package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/cucihub/api/internal/database"
	"github.com/cucihub/api/internal/enum"
	"github.com/cucihub/api/internal/logger"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// ReviewStore defines the database methods needed by review handlers.
type ReviewStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	CreateReview(ctx context.Context, arg database.CreateReviewParams) (database.Review, error)
	GetReviewByOrder(ctx context.Context, orderID uuid.UUID) (database.Review, error)
	ListReviewsByService(ctx context.Context, serviceID uuid.UUID) ([]database.Review, error)
}

// ReviewHandler handles order reviews.
type ReviewHandler struct {
	store ReviewStore
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(store ReviewStore) *ReviewHandler {
	return &ReviewHandler{store: store}
}

// RegisterPublicRoutes registers the catalog-facing review listing.
func (h *ReviewHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/services/{id}/reviews", h.ListByService)
}

// RegisterCustomerRoutes registers the customer review endpoints.
func (h *ReviewHandler) RegisterCustomerRoutes(r chi.Router) {
	r.Post("/orders/{id}/review", h.Create)
	r.Get("/orders/{id}/review", h.GetByOrder)
}

// --- Request / Response types ---

type createReviewRequest struct {
	CustomerID string  `json:"customer_id"`
	Rating     int32   `json:"rating"`
	Comment    *string `json:"comment"`
}

type reviewResponse struct {
	ID         uuid.UUID `json:"id"`
	OrderID    uuid.UUID `json:"order_id"`
	CustomerID uuid.UUID `json:"customer_id"`
	Rating     int32     `json:"rating"`
	Comment    *string   `json:"comment"`
	CreatedAt  time.Time `json:"created_at"`
}

// --- Handlers ---

// Create handles POST /api/orders/{id}/review. One review per order, and
// only once the order has reached its terminal step.
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	var req createReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid customer_id")
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		writeError(w, http.StatusBadRequest, "rating must be between 1 and 5")
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
	if order.CustomerID != customerID {
		writeError(w, http.StatusForbidden, "order belongs to another customer")
		return
	}
	if order.Status != enum.StepCompleted {
		writeError(w, http.StatusConflict, "order is not completed yet")
		return
	}

	if _, err := h.store.GetReviewByOrder(r.Context(), orderID); err == nil {
		writeError(w, http.StatusConflict, "order already reviewed")
		return
	} else if !errors.Is(err, pgx.ErrNoRows) {
		h.internalError(w, r, "get review", err)
		return
	}

	review, err := h.store.CreateReview(r.Context(), database.CreateReviewParams{
		OrderID:    orderID,
		CustomerID: customerID,
		Rating:     req.Rating,
		Comment:    textFromPtr(req.Comment),
	})
	if err != nil {
		h.internalError(w, r, "create review", err)
		return
	}
	writeJSON(w, http.StatusCreated, toReviewResponse(review))
}

// GetByOrder handles GET /api/orders/{id}/review.
func (h *ReviewHandler) GetByOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	review, err := h.store.GetReviewByOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "review not found")
			return
		}
		h.internalError(w, r, "get review", err)
		return
	}
	writeJSON(w, http.StatusOK, toReviewResponse(review))
}

// ListByService handles GET /api/services/{id}/reviews.
func (h *ReviewHandler) ListByService(w http.ResponseWriter, r *http.Request) {
	serviceID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid service ID")
		return
	}

	reviews, err := h.store.ListReviewsByService(r.Context(), serviceID)
	if err != nil {
		h.internalError(w, r, "list reviews", err)
		return
	}

	out := make([]reviewResponse, len(reviews))
	for i, rev := range reviews {
		out[i] = toReviewResponse(rev)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ReviewHandler) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	logger.FromCtx(r.Context()).Error(op, zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func toReviewResponse(rev database.Review) reviewResponse {
	return reviewResponse{
		ID:         rev.ID,
		OrderID:    rev.OrderID,
		CustomerID: rev.CustomerID,
		Rating:     rev.Rating,
		Comment:    textOrNil(rev.Comment),
		CreatedAt:  rev.CreatedAt,
	}
}
