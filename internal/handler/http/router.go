package http

import (
	"log/slog"
	"os"

	"github.com/cmlabs-hris/leave-approval-backend/internal/domain/user"
	"github.com/cmlabs-hris/leave-approval-backend/internal/handler/http/middleware"
	"github.com/cmlabs-hris/leave-approval-backend/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

type RouterConfig struct {
	Env            string
	LogLevel       slog.Level
	AllowedOrigins []string
	CronSecret     string
	CronSecretHash string
}

type Handlers struct {
	Leave        LeaveHandler
	Escalation   EscalationHandler
	Notification NotificationHandler
}

func NewRouter(cfg RouterConfig, JWTService jwt.Service, h Handlers) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(cfg.Env != "production")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "leave-approval"),
		slog.String("version", "v1.0.0"),
		slog.String("env", cfg.Env),
	)

	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  cfg.LogLevel,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	r.Route("/api/v1", func(r chi.Router) {

		// External scheduler hook, authenticated by shared secret
		r.Route("/cron", func(r chi.Router) {
			r.Use(middleware.CronTokenAuth(cfg.CronSecret, cfg.CronSecretHash))
			r.Post("/escalations", h.Escalation.RunSweep)
			r.Get("/escalations", h.Escalation.RunSweep)
		})

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired)

			r.Route("/leave-requests", func(r chi.Router) {
				r.With(middleware.RequirePermission(user.PermissionLeaveCreate)).Post("/", h.Leave.CreateRequest)
				r.With(middleware.RequirePermission(user.PermissionLeaveCreate)).Post("/attachments", h.Leave.UploadAttachment)
				r.Get("/my", h.Leave.GetMyRequests)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.Leave.GetRequest)
					// Approver and HR checks depend on the request's chain and run in the service.
					r.Post("/action", h.Leave.ActOnRequest)
					r.Post("/cancel", h.Leave.CancelRequest)
					r.Post("/split", h.Leave.SplitRequest)
					r.Get("/attachments/{attachmentID}", h.Leave.GetAttachment)
				})
			})

			r.Get("/approvals/pending", h.Leave.ListPendingApprovals)

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", h.Notification.List)
				r.Get("/unread-count", h.Notification.UnreadCount)
				r.Post("/read", h.Notification.MarkAsRead)
				r.Post("/read-all", h.Notification.MarkAllAsRead)
			})

			// Admin only
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(user.PermissionEscalationRun))
				r.Post("/admin/escalations/run", h.Escalation.RunSweep)
			})
		})
	})
	return r
}
