package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/roombook/api/internal/application/auth"
	"github.com/roombook/api/internal/application/notification"
	"github.com/roombook/api/internal/application/verification"
	"github.com/roombook/api/internal/config"
	jwtinfra "github.com/roombook/api/internal/infrastructure/jwt"
	"github.com/roombook/api/internal/infrastructure/mail"
	"github.com/roombook/api/internal/transport/http/handler"
	appmiddleware "github.com/roombook/api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo         UserRepository
	NotificationRepo NotificationRepository
	Codes            *verification.Service
	Mailer           mail.Sender
	JWTProvider      *jwtinfra.Provider
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
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

	// 5 requests/second, burst of 10 — applied to the public login endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	var signer auth.TokenSigner
	if deps.JWTProvider != nil {
		signer = deps.JWTProvider
	}
	authSvc := auth.NewService(deps.UserRepo, deps.Codes, deps.Mailer, signer)
	notifSvc := notification.NewService(deps.NotificationRepo, deps.UserRepo, deps.Mailer)

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(authSvc)
	sessionH := handler.NewSessionHandler()
	notifH := handler.NewNotificationHandler(notifSvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/auth/request-code", authH.RequestCode)
		r.With(sensitiveRL.Limit).Post("/auth/verify-code", authH.VerifyCode)
		r.With(sensitiveRL.Limit).Get("/auth/pending-code", authH.PendingCode)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/sessions", sessionH.GetCurrent)
			r.Get("/notifications", notifH.ListUnread)
			r.Put("/notifications/{id}", notifH.MarkAsRead)
		})
	})

	return r
}
