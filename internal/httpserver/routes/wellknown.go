package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/handoff/internal/httpserver/deps"
	"github.com/MrSnakeDoc/handoff/internal/httpserver/handlers"
)

func init() { Register(registerWellKnown) }

func registerWellKnown(r chi.Router, d deps.Deps) {
	r.Get("/.well-known/assetlinks.json", handlers.AssetLinks(d))
	r.Get("/.well-known/apple-app-site-association", handlers.AppleAssociation(d))
	r.Get("/apple-app-site-association", handlers.AppleAssociation(d))
	r.Get("/manifest.webmanifest", handlers.Manifest(d))
}
