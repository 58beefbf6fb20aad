package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/handoff/internal/httpserver/deps"
)

type (
	Registrar  func(r chi.Router, d deps.Deps)
	Middleware = func(http.Handler) http.Handler
)

type entry struct {
	reg Registrar
	mws []Middleware
}

// registry is filled by init functions in this package, in file order.
var registry []entry

// Register a registrar with optional middlewares applied to all its routes.
func Register(reg Registrar, mws ...Middleware) {
	registry = append(registry, entry{reg: reg, mws: mws})
}

// RegisterAll mounts every registrar on r. Called once from httpserver.New.
func RegisterAll(r chi.Router, d deps.Deps) {
	for _, e := range registry {
		target := r
		if len(e.mws) > 0 {
			target = r.With(e.mws...)
		}
		e.reg(target, d)
	}
	d.Logger.Debug("routes registered")
}
