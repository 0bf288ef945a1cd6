package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/cmlabs-hris/leave-approval-backend/internal/handler/http/response"
	"golang.org/x/crypto/bcrypt"
)

// CronTokenAuth guards the external scheduler hook. The token comes from an
// "Authorization: Bearer" header or the "token" query parameter and must equal
// secret, or match hash when a bcrypt hash is configured instead.
func CronTokenAuth(secret, hash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := cronToken(r)
			if token == "" || !cronTokenValid(token, secret, hash) {
				response.Unauthorized(w, "Invalid cron token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func cronToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return r.URL.Query().Get("token")
}

func cronTokenValid(token, secret, hash string) bool {
	if hash != "" {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)) == nil
	}
	if secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1
}
