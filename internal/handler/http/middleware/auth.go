package middleware

import (
	"net/http"

	"github.com/cmlabs-hris/leave-approval-backend/internal/handler/http/response"
	"github.com/cmlabs-hris/leave-approval-backend/internal/pkg/jwt"
)

// AuthRequired rejects requests whose verified token is missing or is not a usable access token.
// It must run after jwtauth.Verifier.
func AuthRequired(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := jwt.ClaimsFromContext(r.Context()); err != nil {
			response.HandleError(w, err)
			return
		}

		next.ServeHTTP(w, r)
	})
}
