package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/handoff/internal/httpserver/deps"
	"github.com/MrSnakeDoc/handoff/internal/httpserver/respond"
	"github.com/MrSnakeDoc/handoff/internal/logger"
)

type reloadResponse struct {
	Triggered bool   `json:"triggered"`
	Message   string `json:"message"`
}

// Reload triggers a manual reload of the projects file
func Reload(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		select {
		case d.ReloadTrigger <- struct{}{}:
			d.Logger.Info("manual projects reload triggered via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
			respond.JSON(w, http.StatusAccepted, reloadResponse{Triggered: true, Message: "reload triggered"})
		default:
			d.Logger.Warn("projects reload already pending",
				logger.String("remote_ip", r.RemoteAddr))
			respond.JSON(w, http.StatusTooManyRequests, reloadResponse{Message: "reload already pending, please wait"})
		}
	}
}
