package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/upb/llm-router/handlers"
	"github.com/upb/llm-router/services/inference"
	"github.com/upb/llm-router/utils"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(svc *inference.Service, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	completionHandler := handlers.NewCompletionHandler(svc, logger)
	providerHandler := handlers.NewProviderHandler(svc, logger)
	costHandler := handlers.NewCostHandler(svc, logger)
	healthHandler := handlers.NewHealthHandler(svc, logger)

	// Health check endpoint
	r.Get("/healthz", healthHandler.HandleHealth)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/completions", completionHandler.HandleCompletion)
		r.Get("/costs", costHandler.HandleSummary)

		r.Route("/providers", func(r chi.Router) {
			r.Get("/", providerHandler.HandleList)
			r.Post("/", providerHandler.HandleRegister)
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse{
			Error:   "not_found",
			Message: "Route not found",
		})
	})

	return r
}
