package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/handoff/internal/httpserver/deps"
	"github.com/MrSnakeDoc/handoff/internal/httpserver/respond"
	"github.com/MrSnakeDoc/handoff/internal/logger"
)

const readyzPingTimeout = time.Second

type componentStatus struct {
	OK     bool   `json:"ok"`
	Kind   string `json:"kind,omitempty"`
	Loaded *int   `json:"loaded,omitempty"`
	Last   string `json:"last_reload,omitempty"`
	Error  string `json:"error,omitempty"`
}

type readyzResponse struct {
	Ready      bool                       `json:"ready"`
	Components map[string]componentStatus `json:"components"`
}

// Readyz is ready when the repository answers a ping and at least one
// project is loaded.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyzPingTimeout)
		defer cancel()

		store := componentStatus{OK: true, Kind: d.Store}
		if err := d.Deferred.Ping(ctx); err != nil {
			d.Logger.Warn("readyz: repository ping failed", logger.Error(err))
			store.OK, store.Error = false, err.Error()
		}

		count := d.Projects.Count()
		projects := componentStatus{OK: count > 0, Loaded: &count, Last: "never"}
		if last := d.Projects.GetLastReload(); !last.IsZero() {
			projects.Last = last.UTC().Format(time.RFC3339)
		}

		resp := readyzResponse{
			Ready:      store.OK && projects.OK,
			Components: map[string]componentStatus{"store": store, "projects": projects},
		}
		status := http.StatusOK
		if !resp.Ready {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(w, status, resp)
	}
}
