package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/handoff/internal/httpserver/deps"
	"github.com/MrSnakeDoc/handoff/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/handoff/internal/httpserver/mw"
)

func init() { Register(registerDeferred) }

func registerDeferred(r chi.Router, d deps.Deps) {
	r.Route("/deferred-links", func(r chi.Router) {
		// Mux-level so preflights are answered before routing and auth.
		r.Use(mw.CORS(d.AllowedOrigins))
		r.Use(mw.RateLimit(mw.RateLimitConfig{
			Burst:             d.RateBurst,
			RefillPerIPPerMin: d.RatePerMin,
			TrustProxy:        d.TrustProxy,
		}))
		r.Use(mw.ProjectAuth(d.Projects, d.Logger))

		r.Post("/", handlers.CreateDeferred(d))
		r.Get("/", handlers.GetDeferred(d))
		r.Delete("/", handlers.DeleteDeferred(d))
	})
}
