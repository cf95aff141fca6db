package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cucihub/api/internal/database"
	"github.com/cucihub/api/internal/handler"
)

type mockServiceStore struct {
	services map[uuid.UUID]database.Service
	listing  []database.Service
	all      []database.Service
	archived []uuid.UUID
}

func newMockServiceStore() *mockServiceStore {
	return &mockServiceStore{services: make(map[uuid.UUID]database.Service)}
}

func (m *mockServiceStore) CreateService(_ context.Context, arg database.CreateServiceParams) (database.Service, error) {
	s := database.Service{ID: uuid.New(), Name: arg.Name, PricePerKg: arg.PricePerKg, Description: arg.Description}
	m.services[s.ID] = s
	return s, nil
}

func (m *mockServiceStore) GetService(_ context.Context, id uuid.UUID) (database.Service, error) {
	s, ok := m.services[id]
	if !ok {
		return database.Service{}, pgx.ErrNoRows
	}
	return s, nil
}

func (m *mockServiceStore) ListServices(_ context.Context) ([]database.Service, error) {
	return m.listing, nil
}

func (m *mockServiceStore) ListAllServices(_ context.Context) ([]database.Service, error) {
	return m.all, nil
}

func (m *mockServiceStore) UpdateService(_ context.Context, arg database.UpdateServiceParams) (database.Service, error) {
	s, ok := m.services[arg.ID]
	if !ok {
		return database.Service{}, pgx.ErrNoRows
	}
	s.Name = arg.Name
	s.PricePerKg = arg.PricePerKg
	s.Description = arg.Description
	m.services[arg.ID] = s
	return s, nil
}

func (m *mockServiceStore) ArchiveService(_ context.Context, id uuid.UUID) (database.Service, error) {
	s, ok := m.services[id]
	if !ok {
		return database.Service{}, pgx.ErrNoRows
	}
	s.IsArchived = true
	m.services[id] = s
	m.archived = append(m.archived, id)
	return s, nil
}

func newServiceRouters(store *mockServiceStore) (public, staff chi.Router) {
	h := handler.NewServiceHandler(store)
	public = chi.NewRouter()
	h.RegisterPublicRoutes(public)
	staff = chi.NewRouter()
	h.RegisterStaffRoutes(staff)
	return public, staff
}

func putJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPut, path, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func deleteReq(router http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodDelete, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateService(t *testing.T) {
	store := newMockServiceStore()
	_, staff := newServiceRouters(store)

	desc := "Cuci dan setrika, wangi"
	rec := postJSON(t, staff, "/services", map[string]any{
		"name":         "Cuci Setrika",
		"price_per_kg": "10000",
		"description":  desc,
	})

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
	}

	var resp struct {
		Name        string  `json:"name"`
		PricePerKg  string  `json:"price_per_kg"`
		Description *string `json:"description"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Name != "Cuci Setrika" {
		t.Errorf("name = %q", resp.Name)
	}
	if resp.PricePerKg != "10000.00" {
		t.Errorf("price_per_kg = %q, want 10000.00", resp.PricePerKg)
	}
	if resp.Description == nil || *resp.Description != desc {
		t.Errorf("description = %v", resp.Description)
	}
}

func TestCreateService_Validation(t *testing.T) {
	store := newMockServiceStore()
	_, staff := newServiceRouters(store)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing name", map[string]any{"price_per_kg": "10000"}},
		{"bad price", map[string]any{"name": "Cuci Kering", "price_per_kg": "murah"}},
		{"zero price", map[string]any{"name": "Cuci Kering", "price_per_kg": "0"}},
		{"negative price", map[string]any{"name": "Cuci Kering", "price_per_kg": "-5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, staff, "/services", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400: %s", rec.Code, rec.Body)
			}
		})
	}
	if len(store.services) != 0 {
		t.Errorf("services created = %d, want none", len(store.services))
	}
}

func TestUpdateService(t *testing.T) {
	store := newMockServiceStore()
	_, staff := newServiceRouters(store)
	s := database.Service{ID: uuid.New(), Name: "Cuci Kering", PricePerKg: makeNumeric(t, "7000")}
	store.services[s.ID] = s

	rec := putJSON(t, staff, "/services/"+s.ID.String(), map[string]any{
		"name":         "Cuci Kering Plus",
		"price_per_kg": "8000",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	if got := store.services[s.ID].Name; got != "Cuci Kering Plus" {
		t.Errorf("name after update = %q", got)
	}
}

func TestUpdateService_NotFound(t *testing.T) {
	store := newMockServiceStore()
	_, staff := newServiceRouters(store)

	rec := putJSON(t, staff, "/services/"+uuid.New().String(), map[string]any{
		"name":         "Cuci Kering",
		"price_per_kg": "7000",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestArchiveService(t *testing.T) {
	store := newMockServiceStore()
	_, staff := newServiceRouters(store)
	s := database.Service{ID: uuid.New(), Name: "Express 6 Jam", PricePerKg: makeNumeric(t, "15000")}
	store.services[s.ID] = s

	rec := deleteReq(staff, "/services/"+s.ID.String())

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	// Archiving keeps the row; existing orders still reference it.
	if _, ok := store.services[s.ID]; !ok {
		t.Fatal("service row should survive archiving")
	}
	if !store.services[s.ID].IsArchived {
		t.Error("service should be marked archived")
	}
}

func TestGetService_NotFound(t *testing.T) {
	store := newMockServiceStore()
	public, _ := newServiceRouters(store)

	req := httptest.NewRequest(http.MethodGet, "/services/"+uuid.New().String(), nil)
	rec := httptest.NewRecorder()
	public.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestListServices_PublicVsStaff(t *testing.T) {
	store := newMockServiceStore()
	active := database.Service{ID: uuid.New(), Name: "Cuci Kering", PricePerKg: makeNumeric(t, "7000")}
	archived := database.Service{ID: uuid.New(), Name: "Lama", PricePerKg: makeNumeric(t, "5000"), IsArchived: true}
	store.listing = []database.Service{active}
	store.all = []database.Service{active, archived}
	public, staff := newServiceRouters(store)

	req := httptest.NewRequest(http.MethodGet, "/services", nil)
	rec := httptest.NewRecorder()
	public.ServeHTTP(rec, req)
	var publicList []json.RawMessage
	if err := json.NewDecoder(rec.Body).Decode(&publicList); err != nil {
		t.Fatalf("decode public list: %v", err)
	}
	if len(publicList) != 1 {
		t.Errorf("public list = %d entries, want 1", len(publicList))
	}

	req = httptest.NewRequest(http.MethodGet, "/services", nil)
	rec = httptest.NewRecorder()
	staff.ServeHTTP(rec, req)
	var staffList []json.RawMessage
	if err := json.NewDecoder(rec.Body).Decode(&staffList); err != nil {
		t.Fatalf("decode staff list: %v", err)
	}
	if len(staffList) != 2 {
		t.Errorf("staff list = %d entries, want 2", len(staffList))
	}
}
