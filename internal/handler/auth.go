package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cucihub/api/internal/auth"
	"github.com/cucihub/api/internal/database"
	"github.com/cucihub/api/internal/enum"
	"github.com/cucihub/api/internal/logger"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthStore defines the database methods needed by auth handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type AuthStore interface {
	GetCustomer(ctx context.Context, id uuid.UUID) (database.Customer, error)
	GetStaff(ctx context.Context, id uuid.UUID) (database.Staff, error)
	GetStaffByEmail(ctx context.Context, email string) (database.Staff, error)
}

// AuthHandler issues and clears the role cookie. The heavy lifting
// (credentials, sessions) lives with the hosted auth provider; this handler
// only resolves which area of the app a user belongs to.
type AuthHandler struct {
	store     AuthStore
	jwtSecret string
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(store AuthStore, jwtSecret string) *AuthHandler {
	return &AuthHandler{store: store, jwtSecret: jwtSecret}
}

// RegisterRoutes registers auth endpoints on the given Chi router.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/role", h.SetRole)
	r.Get("/auth/role", h.GetRole)
	r.Post("/auth/login", h.StaffLogin)
	r.Post("/auth/logout", h.Logout)
}

// --- Request / Response types ---

type setRoleRequest struct {
	UserID string `json:"user_id"`
}

type roleResponse struct {
	Success bool   `json:"success"`
	Role    string `json:"role"`
}

type staffLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type staffLoginResponse struct {
	Success  bool      `json:"success"`
	Role     string    `json:"role"`
	StaffID  uuid.UUID `json:"staff_id"`
	FullName string    `json:"full_name"`
}

// --- Handlers ---

// SetRole resolves a hosted-auth user ID to a role and mints the role
// cookie. Customer lookup wins over staff when an ID exists in both tables.
func (h *AuthHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	var req setRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "User ID required")
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "User ID required")
		return
	}

	role, err := h.resolveRole(r.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusBadRequest, "User role not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.issueCookie(w, r, role)
}

// GetRole decodes the current role cookie. Useful for the frontend to decide
// which area to render, and for debugging gate redirects.
func (h *AuthHandler) GetRole(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(auth.RoleCookieName)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	claims, err := auth.ValidateToken(h.jwtSecret, cookie.Value)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	writeJSON(w, http.StatusOK, roleResponse{Success: true, Role: claims.Role})
}

// StaffLogin authenticates dashboard staff by email + password and mints a
// staff role cookie.
func (h *AuthHandler) StaffLogin(w http.ResponseWriter, r *http.Request) {
	var req staffLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	staff, err := h.store.GetStaffByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(staff.HashedPassword), []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := auth.GenerateRoleToken(h.jwtSecret, enum.RoleStaff)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	auth.SetRoleCookie(w, token)

	writeJSON(w, http.StatusOK, staffLoginResponse{
		Success:  true,
		Role:     enum.RoleStaff,
		StaffID:  staff.ID,
		FullName: staff.FullName,
	})
}

// Logout clears the role cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearRoleCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// --- Helpers ---

// resolveRole checks the customers table first, then staff. pgx.ErrNoRows
// means the ID exists in neither.
func (h *AuthHandler) resolveRole(ctx context.Context, userID uuid.UUID) (string, error) {
	if _, err := h.store.GetCustomer(ctx, userID); err == nil {
		return enum.RoleCustomer, nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}

	if _, err := h.store.GetStaff(ctx, userID); err == nil {
		return enum.RoleStaff, nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}

	return "", pgx.ErrNoRows
}

func (h *AuthHandler) issueCookie(w http.ResponseWriter, r *http.Request, role string) {
	token, err := auth.GenerateRoleToken(h.jwtSecret, role)
	if err != nil {
		logger.FromCtx(r.Context()).Error("mint role token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	auth.SetRoleCookie(w, token)
	writeJSON(w, http.StatusOK, roleResponse{Success: true, Role: role})
}
