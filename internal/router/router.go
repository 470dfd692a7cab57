// Package router sets up all HTTP routes and middleware chains for the
// deskboard API. Reads are open; post writes require an acting user and
// all writes are rate limited.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"deskboard/internal/handlers"
	"deskboard/internal/middleware"
)

// New creates and returns the configured Chi router with all middleware
// and route groups wired up. limiter may be nil.
func New(posts *handlers.Posts, categories *handlers.Categories, limiter *middleware.RateLimiter) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.ActingUser)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)

	r.Get("/health", healthHandler)

	writes := func(r chi.Router) {
		if limiter != nil {
			r.Use(limiter.Middleware)
		}
	}

	r.Route("/api/posts", func(r chi.Router) {
		r.Get("/", posts.List)
		r.Get("/{id}", posts.Get)

		r.Group(func(r chi.Router) {
			writes(r)
			r.Use(middleware.RequireUser)
			r.Post("/", posts.Create)
			r.Patch("/{id}", posts.Update)
			r.Delete("/{id}", posts.Delete)
			r.Post("/{id}/move", posts.Move)
		})
	})

	r.Route("/api/categories", func(r chi.Router) {
		r.Get("/", categories.List)

		r.Group(func(r chi.Router) {
			writes(r)
			r.Post("/", categories.Create)
			r.Put("/order", categories.Reorder)
			r.Patch("/{id}", categories.Rename)
			r.Delete("/{id}", categories.Delete)
		})
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
