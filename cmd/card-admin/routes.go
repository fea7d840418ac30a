package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"card-admin/internal/config"
	"card-admin/internal/handler"
	"card-admin/internal/middleware"
	"card-admin/internal/service"
)

// application carries the dependencies shared by the HTTP routes.
type application struct {
	cfg          *config.Config
	authService  *service.AuthService
	cardService  *service.CardService
	cookies      *middleware.SessionCookies
	loginLimiter *middleware.RateLimiter
	checks       []handler.ReadinessCheck
}

func (app *application) routes() (http.Handler, error) {
	validator, err := middleware.OpenAPIValidator(middleware.DefaultOpenAPIValidatorConfig(app.cfg.OpenAPIValidation))
	if err != nil {
		return nil, err
	}

	authHandler := handler.NewAuthHandler(app.authService, app.cookies)
	cardHandler := handler.NewCardHandler(app.cardService)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(app.cfg.Origins()))
	r.Use(middleware.Metrics())

	r.Get("/health", handler.Health)
	r.Get("/health/ready", handler.Ready(app.checks...))
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/", handler.App)
	r.Get("/admin/cards", handler.App)
	r.Get("/admin/cards/new", handler.App)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.LoadSession(app.authService, app.cookies))

		r.Route("/auth", func(r chi.Router) {
			r.Use(validator)
			r.With(app.loginLimiter.Middleware()).Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.Get("/status", authHandler.Status)
		})

		r.Route("/cards", func(r chi.Router) {
			// Unauthenticated callers get 401 before their payload is inspected.
			r.Use(middleware.RequireAuth)
			r.Use(validator)
			r.Get("/", cardHandler.List)
			r.Post("/", cardHandler.Create)
			r.Get("/recent", cardHandler.Recent)
			r.Get("/{id}", cardHandler.Get)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not found"}`))
	})

	return r, nil
}
