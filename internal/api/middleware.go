// Package api implements the recipebox REST API using chi.
package api

import (
	"net/http"
	"strings"

	"github.com/starford/recipebox/internal/auth"
)

// PasswordHeader carries the shared password on guarded requests.
const PasswordHeader = "X-Recipe-Password"

// AuthMiddleware returns middleware that checks the shared password.
// If required is false, all requests pass through. Otherwise requests must
// carry the password in the X-Recipe-Password header or as
// "Authorization: Bearer <password>". With a bcrypt secret only the first
// request with a given password pays for the hash compare; see auth.Gate.
func AuthMiddleware(required bool, gate *auth.Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !required {
				next.ServeHTTP(w, r)
				return
			}
			if !gate.Verify(requestPassword(r)) {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestPassword(r *http.Request) string {
	if pw := r.Header.Get(PasswordHeader); pw != "" {
		return pw
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}
