package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/user"
	"github.com/cmlabs-hris/leave-approval-backend/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func newAuthRouter(t *testing.T, mw ...func(http.Handler) http.Handler) (*chi.Mux, *jwt.JWTService) {
	t.Helper()
	svc := jwt.NewJWTService("middleware-test-secret", "1h")
	r := chi.NewRouter()
	r.Use(jwtauth.Verifier(svc.JWTAuth()))
	r.Use(AuthRequired)
	for _, m := range mw {
		r.Use(m)
	}
	r.Get("/", okHandler)
	return r, svc
}

func bearer(t *testing.T, svc *jwt.JWTService, role user.Role) string {
	t.Helper()
	token, _, err := svc.GenerateAccessToken("0190a7e2-0000-7000-8000-000000000001", "company-1", role)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestAuthRequired(t *testing.T) {
	r, svc := newAuthRouter(t)

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", bearer(t, svc, user.RoleEmployee))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("token signed with another key", func(t *testing.T) {
		other := jwt.NewJWTService("another-secret", "1h")
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", bearer(t, other, user.RoleEmployee))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequirePermission(t *testing.T) {
	r, svc := newAuthRouter(t, RequirePermission(user.PermissionEscalationRun))

	tests := []struct {
		role user.Role
		want int
	}{
		{user.RoleAdmin, http.StatusNoContent},
		{user.RoleHRManager, http.StatusForbidden},
		{user.RoleEmployee, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", bearer(t, svc, tt.role))
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestCronTokenAuth_PlainSecret(t *testing.T) {
	h := CronTokenAuth("s3cret", "")(okHandler)

	tests := []struct {
		name   string
		target string
		header string
		want   int
	}{
		{"bearer header", "/cron", "Bearer s3cret", http.StatusNoContent},
		{"query token", "/cron?token=s3cret", "", http.StatusNoContent},
		{"wrong token", "/cron?token=nope", "", http.StatusUnauthorized},
		{"no token", "/cron", "", http.StatusUnauthorized},
		{"non bearer scheme", "/cron", "Basic s3cret", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestCronTokenAuth_Hash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	h := CronTokenAuth("", string(hash))(okHandler)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cron?token=s3cret", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cron?token=other", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCronTokenAuth_NoSecretConfigured(t *testing.T) {
	h := CronTokenAuth("", "")(okHandler)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cron?token=", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
