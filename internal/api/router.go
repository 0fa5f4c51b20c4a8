// Package api exposes the chat assistant over HTTP.
package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/dyike/audney/internal/api/middleware"
	"github.com/dyike/audney/internal/auth"
)

// RouterConfig carries the HTTP-level knobs of the router.
type RouterConfig struct {
	ChatRatePerMinute int
	AllowedOrigins    []string
}

// NewRouter creates and configures the HTTP router.
func NewRouter(cfg RouterConfig, logger zerolog.Logger, a *auth.Service, chat Chat, store Store) *chi.Mux {
	r := chi.NewRouter()

	// Metrics first so every request is counted.
	r.Use(middleware.Metrics)

	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(16 * 1024))

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{middleware.ExpiringHeader, "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := NewHandler(a, chat, store, logger)
	sessions := middleware.NewSessionMiddleware(a, logger)
	limiter := middleware.NewRateLimiter(cfg.ChatRatePerMinute, logger)

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/health", h.Health)
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)

	// Anonymous callers get a fixed reply instead of a 401.
	r.Group(func(r chi.Router) {
		r.Use(sessions.LoadSession)
		r.Use(limiter.Middleware)

		r.Get("/chat/response", h.ChatResponse)
		r.Post("/chat/response", h.ChatResponse)
		r.Get("/get_stock_price", h.GetStockPrice)
	})

	r.Group(func(r chi.Router) {
		r.Use(sessions.RequireSession)

		r.Get("/chat/history", h.ChatHistory)
		r.Get("/profile", h.GetProfile)
		r.Post("/profile", h.UpdateProfile)
		r.Put("/profile", h.UpdateProfile)
	})

	return r
}
