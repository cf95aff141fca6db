package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/cucihub/api/internal/authprovider"
	"github.com/cucihub/api/internal/logger"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserLookup fetches a user from the hosted auth provider.
type UserLookup interface {
	GetUser(ctx context.Context, id uuid.UUID) (*authprovider.User, error)
}

// UserHandler proxies user lookups against the auth provider so the staff
// dashboard never holds the provider's service key.
type UserHandler struct {
	provider UserLookup
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(provider UserLookup) *UserHandler {
	return &UserHandler{provider: provider}
}

// RegisterRoutes registers user endpoints on the given Chi router.
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/users", h.Get)
}

// Get handles GET /api/staff/users?uuid=...
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.URL.Query().Get("uuid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid uuid")
		return
	}

	user, err := h.provider.GetUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, authprovider.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		logger.FromCtx(r.Context()).Error("get auth provider user", zap.Error(err))
		writeError(w, http.StatusBadGateway, "auth provider unavailable")
		return
	}
	writeJSON(w, http.StatusOK, user)
}
