package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cucihub/api/internal/auth"
	"github.com/cucihub/api/internal/enum"
	"github.com/cucihub/api/internal/logger"
	"go.uber.org/zap"
)

type contextKey string

const claimsKey contextKey = "claims"

// Authenticate reads and verifies the role cookie for API routes. Missing or
// invalid tokens get a JSON 401.
func Authenticate(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := claimsFromCookie(r, jwtSecret)
			if claims == nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole guards a route group for the given roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
				return
			}

			for _, role := range roles {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeJSON(w, http.StatusForbidden, map[string]string{"error": "insufficient permissions"})
		})
	}
}

// RoleGate fences the page routes by role. It never runs on the root path or
// the API (the router mounts it around pages only), and it skips static
// assets by extension.
//
// No valid role → back to the landing page. Staff belong under /staff;
// customers never see /staff.
func RoleGate(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isAssetPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			claims := claimsFromCookie(r, jwtSecret)
			if claims == nil {
				http.Redirect(w, r, "/", http.StatusFound)
				return
			}

			onStaffPath := r.URL.Path == "/staff" || strings.HasPrefix(r.URL.Path, "/staff/")
			switch claims.Role {
			case enum.RoleStaff:
				if !onStaffPath {
					http.Redirect(w, r, "/staff", http.StatusFound)
					return
				}
			case enum.RoleCustomer:
				if onStaffPath {
					http.Redirect(w, r, "/", http.StatusFound)
					return
				}
			default:
				http.Redirect(w, r, "/", http.StatusFound)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClaimsFromContext returns the verified role claims, or nil.
func ClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

// claimsFromCookie verifies the role cookie. Verification failures are
// logged and treated as "no role".
func claimsFromCookie(r *http.Request, jwtSecret string) *auth.Claims {
	cookie, err := r.Cookie(auth.RoleCookieName)
	if err != nil {
		return nil
	}

	claims, err := auth.ValidateToken(jwtSecret, cookie.Value)
	if err != nil {
		logger.FromCtx(r.Context()).Warn("role cookie rejected", zap.Error(err))
		return nil
	}
	return claims
}

func isAssetPath(path string) bool {
	if path == "/favicon.ico" ||
		strings.HasPrefix(path, "/static/") ||
		strings.HasPrefix(path, "/assets/") {
		return true
	}
	for _, ext := range []string{".css", ".js", ".png", ".jpg", ".jpeg", ".svg", ".webp", ".ico", ".woff", ".woff2"} {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
