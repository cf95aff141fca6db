package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cucihub/api/internal/database"
	"github.com/cucihub/api/internal/logger"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// NotificationStore defines the database methods needed by notification
// handlers.
type NotificationStore interface {
	ListNotificationsByUser(ctx context.Context, userID uuid.UUID) ([]database.Notification, error)
	MarkNotificationRead(ctx context.Context, arg database.MarkNotificationReadParams) (database.Notification, error)
}

// NotificationHandler serves a customer's in-app notification feed.
type NotificationHandler struct {
	store NotificationStore
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(store NotificationStore) *NotificationHandler {
	return &NotificationHandler{store: store}
}

// RegisterRoutes registers notification endpoints on the given Chi router.
func (h *NotificationHandler) RegisterRoutes(r chi.Router) {
	r.Get("/notifications", h.List)
	r.Patch("/notifications/{id}/read", h.MarkRead)
}

type notificationResponse struct {
	ID        uuid.UUID `json:"id"`
	OrderID   uuid.UUID `json:"order_id"`
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// List handles GET /api/notifications?customer_id=...
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.URL.Query().Get("customer_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid customer_id")
		return
	}

	notifications, err := h.store.ListNotificationsByUser(r.Context(), userID)
	if err != nil {
		logger.FromCtx(r.Context()).Error("list notifications", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	out := make([]notificationResponse, len(notifications))
	for i, n := range notifications {
		out[i] = toNotificationResponse(n)
	}
	writeJSON(w, http.StatusOK, out)
}

// MarkRead handles PATCH /api/notifications/{id}/read. The customer_id
// guard keeps one customer from flipping another's notifications.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid notification ID")
		return
	}
	userID, err := uuid.Parse(r.URL.Query().Get("customer_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid customer_id")
		return
	}

	n, err := h.store.MarkNotificationRead(r.Context(), database.MarkNotificationReadParams{
		ID:     id,
		UserID: userID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "notification not found")
			return
		}
		logger.FromCtx(r.Context()).Error("mark notification read", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, toNotificationResponse(n))
}

func toNotificationResponse(n database.Notification) notificationResponse {
	return notificationResponse{
		ID:        n.ID,
		OrderID:   n.OrderID,
		Type:      n.Type,
		Content:   n.Content,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}
