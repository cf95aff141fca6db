package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cucihub/api/internal/auth"
	"github.com/cucihub/api/internal/enum"
)

const testSecret = "test-secret"

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func roleCookie(t *testing.T, role string) *http.Cookie {
	t.Helper()
	token, err := auth.GenerateRoleToken(testSecret, role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return &http.Cookie{Name: auth.RoleCookieName, Value: token}
}

func TestAuthenticate_ValidCookie(t *testing.T) {
	handler := Authenticate(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFromContext(r.Context())
		if claims == nil || claims.Role != enum.RoleCustomer {
			t.Errorf("claims not propagated: %+v", claims)
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.AddCookie(roleCookie(t, enum.RoleCustomer))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestAuthenticate_MissingCookie(t *testing.T) {
	handler := Authenticate(testSecret)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuthenticate_InvalidToken(t *testing.T) {
	handler := Authenticate(testSecret)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.AddCookie(&http.Cookie{Name: auth.RoleCookieName, Value: "garbage"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name     string
		role     string
		required string
		want     int
	}{
		{"matching role", enum.RoleStaff, enum.RoleStaff, http.StatusOK},
		{"wrong role", enum.RoleCustomer, enum.RoleStaff, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := Authenticate(testSecret)(RequireRole(tt.required)(okHandler()))

			req := httptest.NewRequest(http.MethodGet, "/api/staff/orders", nil)
			req.AddCookie(roleCookie(t, tt.role))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRoleGate(t *testing.T) {
	tests := []struct {
		name         string
		role         string // empty = no cookie
		path         string
		wantStatus   int
		wantLocation string
	}{
		{"no cookie goes home", "", "/orders", http.StatusFound, "/"},
		{"customer passes customer page", enum.RoleCustomer, "/orders", http.StatusOK, ""},
		{"customer blocked from staff", enum.RoleCustomer, "/staff/orders", http.StatusFound, "/"},
		{"staff redirected to dashboard", enum.RoleStaff, "/orders", http.StatusFound, "/staff"},
		{"staff passes staff page", enum.RoleStaff, "/staff/orders", http.StatusOK, ""},
		{"unknown role goes home", "superadmin", "/orders", http.StatusFound, "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RoleGate(testSecret)(okHandler())

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.role != "" {
				req.AddCookie(roleCookie(t, tt.role))
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantLocation != "" && rec.Header().Get("Location") != tt.wantLocation {
				t.Errorf("Location = %q, want %q", rec.Header().Get("Location"), tt.wantLocation)
			}
		})
	}
}

func TestRoleGate_SkipsAssets(t *testing.T) {
	handler := RoleGate(testSecret)(okHandler())

	for _, path := range []string{"/favicon.ico", "/assets/app.js", "/static/logo.png", "/app.css"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200", path, rec.Code)
		}
	}
}

func TestRoleGate_ExpiredCookieTreatedAsNone(t *testing.T) {
	handler := RoleGate(testSecret)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.AddCookie(&http.Cookie{Name: auth.RoleCookieName, Value: "tampered.token.value"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Errorf("status = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Errorf("Location = %q, want %q", loc, "/")
	}
}
