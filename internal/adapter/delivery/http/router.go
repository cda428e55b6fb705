// Package http provides the HTTP delivery layer of the redirect service:
// short link resolution, the legacy /i/ paths, the catch-all fallback and the
// rate limited creation endpoint.
package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"
)

// NewRouter initializes and returns a new Chi router with the redirect routes
// and the rate limited creation endpoint. The fallback is evaluated last.
func NewRouter(logger *httplog.Logger, urlUseCase urlUseCase, limiter rateLimiter) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/api/ping", handlePing)

	ch := newCreateHandler(urlUseCase, validator.New())
	r.With(limitRate(limiter)).Post("/create", ch.create)

	rh := newRedirectHandler(urlUseCase)

	r.Get(notFoundPath, rh.notFoundPage)
	r.Get(legacyPrefix+"/", rh.legacy)
	r.Get(legacyPrefix+"/{id}", rh.legacy)
	r.Get("/{id}", rh.resolve)

	r.NotFound(rh.fallback)

	return r
}
