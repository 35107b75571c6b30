package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/lifeconnect/lifeconnect-api/internal/application/alert"
	"github.com/lifeconnect/lifeconnect-api/internal/application/session"
	"github.com/lifeconnect/lifeconnect-api/internal/application/user"
	"github.com/lifeconnect/lifeconnect-api/internal/config"
	"github.com/lifeconnect/lifeconnect-api/internal/domain"
	jwtinfra "github.com/lifeconnect/lifeconnect-api/internal/infrastructure/jwt"
	"github.com/lifeconnect/lifeconnect-api/internal/infrastructure/smtp"
	"github.com/lifeconnect/lifeconnect-api/internal/infrastructure/sns"
	"github.com/lifeconnect/lifeconnect-api/internal/transport/http/handler"
	appmiddleware "github.com/lifeconnect/lifeconnect-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo    UserRepository
	AlertRepo   AlertRepository
	Mailer      smtp.Mailer
	Notifier    sns.Publisher
	JWTProvider *jwtinfra.Provider
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10 — applied to sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	alertSvc := alert.NewService(alert.ServiceDeps{
		AlertRepo:   deps.AlertRepo,
		UserRepo:    deps.UserRepo,
		Mailer:      deps.Mailer,
		Notifier:    deps.Notifier,
		SendTimeout: cfg.AlertSendTimeout,
	})
	userSvc := user.NewService(user.ServiceDeps{UserRepo: deps.UserRepo})
	sessionSvc := session.NewService(deps.UserRepo, deps.JWTProvider)

	healthH := handler.NewHealthHandler(deps.Mailer)
	sessionH := handler.NewSessionHandler(sessionSvc, userSvc)
	alertH := handler.NewAlertHandler(alertSvc)

	r.Route("/api", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/login", sessionH.Login)
		r.With(sensitiveRL.Limit).Post("/bootstrap-admin", sessionH.BootstrapAdmin)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			// Any authenticated user
			r.Get("/alerts", alertH.List)
			r.Get("/alerts/active", alertH.ListActive)
			r.Get("/alerts/by-audience/{audience}", alertH.ListByAudience)
			r.Get("/alerts/my-alerts", alertH.ListMine)
			r.Get("/alerts/{id}", alertH.Get)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireUserType(domain.UserTypeAdmin))

				r.Post("/alerts", alertH.Create)
				r.Post("/alerts/send-email", alertH.CreateAndBroadcast)
				r.Post("/alerts/archive-expired", alertH.ArchiveExpired)
				r.Post("/alerts/{id}/send-email", alertH.Resend)
				r.Patch("/alerts/{id}", alertH.Update)
				r.Delete("/alerts/{id}", alertH.Delete)

				r.Get("/mailer/test-connection", healthH.MailerTest)
			})
		})
	})

	return r
}
