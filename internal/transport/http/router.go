package http

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-otp-auth/internal/config"
	"github.com/go-otp-auth/internal/transport/http/handler"
	appmiddleware "github.com/go-otp-auth/internal/transport/http/middleware"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		// Flow cookies need credentials, which browsers refuse with a wildcard origin.
		AllowCredentials: !slices.Contains(cfg.AllowedOrigins, "*"),
		MaxAge:           300,
	}))

	healthH := handler.NewHealthHandler()
	signupH := handler.NewSignupHandler(deps.Flows, cfg.CookieSecure)
	recoveryH := handler.NewPasswordRecoveryHandler(deps.Flows, cfg.CookieSecure)
	sessionH := handler.NewSessionHandler(deps.Sessions)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)

		r.With(appmiddleware.FlowToken(handler.SignupCookie)).Post("/signup/{action}", signupH.Action)
		r.With(appmiddleware.FlowToken(handler.RecoveryCookie)).Post("/recovery/{action}", recoveryH.Action)

		r.Post("/sessions/login", sessionH.Login)
		if deps.GoogleSignIn {
			r.Post("/sessions/google", sessionH.Google)
		}
	})

	return r
}
