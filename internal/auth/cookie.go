package auth

import (
	"net/http"
	"time"
)

// RoleCookieName is the cookie carrying the signed role token.
const RoleCookieName = "user_role"

// SetRoleCookie attaches the signed role token as an http-only,
// SameSite-Lax session cookie on the response.
func SetRoleCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     RoleCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(roleTokenTTL / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearRoleCookie expires the role cookie.
func ClearRoleCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     RoleCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
