package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/cucihub/api/internal/database"
	"github.com/cucihub/api/internal/logger"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ServiceStore defines the database methods needed by service handlers.
type ServiceStore interface {
	CreateService(ctx context.Context, arg database.CreateServiceParams) (database.Service, error)
	GetService(ctx context.Context, id uuid.UUID) (database.Service, error)
	ListServices(ctx context.Context) ([]database.Service, error)
	ListAllServices(ctx context.Context) ([]database.Service, error)
	UpdateService(ctx context.Context, arg database.UpdateServiceParams) (database.Service, error)
	ArchiveService(ctx context.Context, id uuid.UUID) (database.Service, error)
}

// ServiceHandler handles the laundry service catalog.
type ServiceHandler struct {
	store ServiceStore
}

// NewServiceHandler creates a new ServiceHandler.
func NewServiceHandler(store ServiceStore) *ServiceHandler {
	return &ServiceHandler{store: store}
}

// RegisterPublicRoutes registers the customer-facing catalog endpoints.
func (h *ServiceHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/services", h.List)
	r.Get("/services/{id}", h.Get)
}

// RegisterStaffRoutes registers the staff catalog management endpoints.
func (h *ServiceHandler) RegisterStaffRoutes(r chi.Router) {
	r.Get("/services", h.ListAll)
	r.Post("/services", h.Create)
	r.Put("/services/{id}", h.Update)
	r.Delete("/services/{id}", h.Archive)
}

// --- Request / Response types ---

type serviceRequest struct {
	Name        string  `json:"name"`
	PricePerKg  string  `json:"price_per_kg"`
	Description *string `json:"description"`
}

type serviceResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	PricePerKg  string    `json:"price_per_kg"`
	Description *string   `json:"description"`
	IsArchived  bool      `json:"is_archived"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (req *serviceRequest) validate() (decimal.Decimal, error) {
	if req.Name == "" {
		return decimal.Zero, errors.New("name is required")
	}
	price, err := decimal.NewFromString(req.PricePerKg)
	if err != nil {
		return decimal.Zero, errors.New("invalid price_per_kg")
	}
	if price.IsNegative() || price.IsZero() {
		return decimal.Zero, errors.New("price_per_kg must be positive")
	}
	return price, nil
}

// --- Handlers ---

// List handles GET /api/services. Archived services are hidden from
// customers.
func (h *ServiceHandler) List(w http.ResponseWriter, r *http.Request) {
	services, err := h.store.ListServices(r.Context())
	if err != nil {
		h.internalError(w, r, "list services", err)
		return
	}
	writeJSON(w, http.StatusOK, toServiceResponses(services))
}

// ListAll handles GET /api/staff/services, including archived entries.
func (h *ServiceHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	services, err := h.store.ListAllServices(r.Context())
	if err != nil {
		h.internalError(w, r, "list all services", err)
		return
	}
	writeJSON(w, http.StatusOK, toServiceResponses(services))
}

// Get handles GET /api/services/{id}.
func (h *ServiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid service ID")
		return
	}

	svc, err := h.store.GetService(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "service not found")
			return
		}
		h.internalError(w, r, "get service", err)
		return
	}
	writeJSON(w, http.StatusOK, toServiceResponse(svc))
}

// Create handles POST /api/staff/services.
func (h *ServiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req serviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	price, err := req.validate()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	svc, err := h.store.CreateService(r.Context(), database.CreateServiceParams{
		Name:        req.Name,
		PricePerKg:  decimalToNumeric(price),
		Description: textFromPtr(req.Description),
	})
	if err != nil {
		h.internalError(w, r, "create service", err)
		return
	}
	writeJSON(w, http.StatusCreated, toServiceResponse(svc))
}

// Update handles PUT /api/staff/services/{id}.
func (h *ServiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid service ID")
		return
	}

	var req serviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	price, err := req.validate()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	svc, err := h.store.UpdateService(r.Context(), database.UpdateServiceParams{
		ID:          id,
		Name:        req.Name,
		PricePerKg:  decimalToNumeric(price),
		Description: textFromPtr(req.Description),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "service not found")
			return
		}
		h.internalError(w, r, "update service", err)
		return
	}
	writeJSON(w, http.StatusOK, toServiceResponse(svc))
}

// Archive handles DELETE /api/staff/services/{id}. Services are never
// removed outright because existing orders reference them.
func (h *ServiceHandler) Archive(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid service ID")
		return
	}

	svc, err := h.store.ArchiveService(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "service not found")
			return
		}
		h.internalError(w, r, "archive service", err)
		return
	}
	writeJSON(w, http.StatusOK, toServiceResponse(svc))
}

func (h *ServiceHandler) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	logger.FromCtx(r.Context()).Error(op, zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func toServiceResponse(s database.Service) serviceResponse {
	return serviceResponse{
		ID:          s.ID,
		Name:        s.Name,
		PricePerKg:  numericToString(s.PricePerKg),
		Description: textOrNil(s.Description),
		IsArchived:  s.IsArchived,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func toServiceResponses(services []database.Service) []serviceResponse {
	out := make([]serviceResponse, len(services))
	for i, s := range services {
		out[i] = toServiceResponse(s)
	}
	return out
}
