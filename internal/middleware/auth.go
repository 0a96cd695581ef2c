package middleware

import (
	"net/http"
	"strings"

	"github.com/qazaqstudy/lesson-studio/internal/backend"
)

// TokenForwarding extracts the caller's bearer token and attaches it to the
// request context for forwarding to the core API. The studio service does
// not validate tokens itself; the core API is the authority and a rejected
// token surfaces as a 401 through the backend client.
func TokenForwarding(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Extract token from Authorization header or cookie
		var token string

		// Try Authorization header first
		authHeader := r.Header.Get("Authorization")
		if authHeader != "" {
			// Expected format: "Bearer <token>"
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
				token = parts[1]
			}
		}

		// If not in header, try cookie
		if token == "" {
			cookie, err := r.Cookie("access_token")
			if err == nil {
				token = cookie.Value
			}
		}

		if token != "" {
			r = r.WithContext(backend.WithToken(r.Context(), token))
		}
		next.ServeHTTP(w, r)
	})
}
