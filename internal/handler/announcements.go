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
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"
)

// AnnouncementStore defines the database methods needed by announcement
// handlers.
type AnnouncementStore interface {
	CreateAnnouncement(ctx context.Context, arg database.CreateAnnouncementParams) (database.Announcement, error)
	GetAnnouncement(ctx context.Context, id uuid.UUID) (database.Announcement, error)
	ListAnnouncements(ctx context.Context) ([]database.Announcement, error)
	ListActiveAnnouncements(ctx context.Context) ([]database.Announcement, error)
	UpdateAnnouncement(ctx context.Context, arg database.UpdateAnnouncementParams) (database.Announcement, error)
	DeleteAnnouncement(ctx context.Context, id uuid.UUID) error
}

// AnnouncementHandler handles shop announcements.
type AnnouncementHandler struct {
	store AnnouncementStore
}

// NewAnnouncementHandler creates a new AnnouncementHandler.
func NewAnnouncementHandler(store AnnouncementStore) *AnnouncementHandler {
	return &AnnouncementHandler{store: store}
}

// RegisterPublicRoutes registers the customer-facing endpoints.
func (h *AnnouncementHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/announcements", h.ListActive)
}

// RegisterStaffRoutes registers the staff management endpoints.
func (h *AnnouncementHandler) RegisterStaffRoutes(r chi.Router) {
	r.Get("/announcements", h.List)
	r.Post("/announcements", h.Create)
	r.Put("/announcements/{id}", h.Update)
	r.Delete("/announcements/{id}", h.Delete)
}

// --- Request / Response types ---

type announcementRequest struct {
	Title    string     `json:"title"`
	Content  string     `json:"content"`
	Category string     `json:"category"`
	StartsAt *time.Time `json:"starts_at"`
	EndsAt   *time.Time `json:"ends_at"`
	IsActive bool       `json:"is_active"`
}

type announcementResponse struct {
	ID        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	Category  string     `json:"category"`
	StartsAt  *time.Time `json:"starts_at"`
	EndsAt    *time.Time `json:"ends_at"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (req *announcementRequest) validate() error {
	if req.Title == "" {
		return errors.New("title is required")
	}
	if req.Content == "" {
		return errors.New("content is required")
	}
	switch req.Category {
	case enum.AnnouncementInfo, enum.AnnouncementPromo, enum.AnnouncementDowntime:
	case "":
		req.Category = enum.AnnouncementInfo
	default:
		return errors.New("unknown category")
	}
	if req.StartsAt != nil && req.EndsAt != nil && req.EndsAt.Before(*req.StartsAt) {
		return errors.New("ends_at must be after starts_at")
	}
	return nil
}

// --- Handlers ---

// ListActive handles GET /api/announcements. Only active announcements
// inside their display window are returned.
func (h *AnnouncementHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	announcements, err := h.store.ListActiveAnnouncements(r.Context())
	if err != nil {
		h.internalError(w, r, "list active announcements", err)
		return
	}
	writeJSON(w, http.StatusOK, toAnnouncementResponses(announcements))
}

// List handles GET /api/staff/announcements.
func (h *AnnouncementHandler) List(w http.ResponseWriter, r *http.Request) {
	announcements, err := h.store.ListAnnouncements(r.Context())
	if err != nil {
		h.internalError(w, r, "list announcements", err)
		return
	}
	writeJSON(w, http.StatusOK, toAnnouncementResponses(announcements))
}

// Create handles POST /api/staff/announcements.
func (h *AnnouncementHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req announcementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	a, err := h.store.CreateAnnouncement(r.Context(), database.CreateAnnouncementParams{
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
		StartsAt: timestamptzFrom(req.StartsAt),
		EndsAt:   timestamptzFrom(req.EndsAt),
		IsActive: req.IsActive,
	})
	if err != nil {
		h.internalError(w, r, "create announcement", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAnnouncementResponse(a))
}

// Update handles PUT /api/staff/announcements/{id}.
func (h *AnnouncementHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid announcement ID")
		return
	}

	var req announcementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	a, err := h.store.UpdateAnnouncement(r.Context(), database.UpdateAnnouncementParams{
		ID:       id,
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
		StartsAt: timestamptzFrom(req.StartsAt),
		EndsAt:   timestamptzFrom(req.EndsAt),
		IsActive: req.IsActive,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "announcement not found")
			return
		}
		h.internalError(w, r, "update announcement", err)
		return
	}
	writeJSON(w, http.StatusOK, toAnnouncementResponse(a))
}

// Delete handles DELETE /api/staff/announcements/{id}.
func (h *AnnouncementHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid announcement ID")
		return
	}

	if _, err := h.store.GetAnnouncement(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "announcement not found")
			return
		}
		h.internalError(w, r, "get announcement", err)
		return
	}

	if err := h.store.DeleteAnnouncement(r.Context(), id); err != nil {
		h.internalError(w, r, "delete announcement", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AnnouncementHandler) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	logger.FromCtx(r.Context()).Error(op, zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func timestamptzFrom(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

func timeOrNil(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time
	return &t
}

func toAnnouncementResponse(a database.Announcement) announcementResponse {
	return announcementResponse{
		ID:        a.ID,
		Title:     a.Title,
		Content:   a.Content,
		Category:  a.Category,
		StartsAt:  timeOrNil(a.StartsAt),
		EndsAt:    timeOrNil(a.EndsAt),
		IsActive:  a.IsActive,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func toAnnouncementResponses(announcements []database.Announcement) []announcementResponse {
	out := make([]announcementResponse, len(announcements))
	for i, a := range announcements {
		out[i] = toAnnouncementResponse(a)
	}
	return out
}
