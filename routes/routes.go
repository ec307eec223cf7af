package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimd "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/pastagem/pastagem-api/app"
	"github.com/pastagem/pastagem-api/cognito"
	"github.com/pastagem/pastagem-api/handlers"
	"github.com/pastagem/pastagem-api/middleware"
	"github.com/pastagem/pastagem-api/utils"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(chimd.RealIP)
	r.Use(middleware.AccessLog(deps.Logger))
	r.Use(chimd.Recoverer)
	r.Use(chimd.Timeout(60 * time.Second))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.Server.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{"Link", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Every request passes the gate; bypass rules decide what stays public
	r.Use(deps.Gate.Middleware)

	// Health check endpoints
	health := handlers.NewHealthHandler(deps.KeyCache, deps.Resolver.URL(), deps.Logger)
	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)

	if deps.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	// OAuth2 auth endpoints (Cognito)
	r.Route("/auth", func(r chi.Router) {
		r.Get("/login", handlers.AuthLoginHandler(deps))
		r.Get("/callback", handlers.AuthCallbackHandler(deps))
		r.Get("/logout", handlers.AuthLogoutHandler(deps))
	})
	// Cognito Hosted UI default callback path
	r.Get("/oauth2/idpresponse", handlers.AuthCallbackHandler(deps))

	// API routes (require authentication)
	r.Route("/api", func(r chi.Router) {
		r.Use(deps.Gate.RequireAuth)
		r.Use(middleware.RequireRole(cognito.RoleUser, deps.Logger))
		r.Get("/me", handlers.GetCurrentUserHandler())
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})

	return r
}
