package mw

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/handoff/internal/domain"
	"github.com/MrSnakeDoc/handoff/internal/httpserver/respond"
	"github.com/MrSnakeDoc/handoff/internal/logger"
	"github.com/MrSnakeDoc/handoff/internal/metrics"
)

// ProjectSource resolves projects by id.
type ProjectSource interface {
	GetProject(id string) (*domain.Project, bool)
}

type projectKey struct{}

// ProjectFrom returns the project authenticated by ProjectAuth.
func ProjectFrom(ctx context.Context) (*domain.Project, bool) {
	p, ok := ctx.Value(projectKey{}).(*domain.Project)
	return p, ok
}

// WithProject stores p in ctx the way ProjectAuth does.
func WithProject(ctx context.Context, p *domain.Project) context.Context {
	return context.WithValue(ctx, projectKey{}, p)
}

// ProjectAuth requires "Authorization: Bearer <key>" matching the API key
// of the project named by X-Project-ID. Unknown projects and wrong keys
// both answer 401.
func ProjectAuth(projects ProjectSource, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get("X-Project-ID"))
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")

			project, found := projects.GetProject(id)
			if !ok || !found || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), []byte(project.APIKey)) != 1 {
				metrics.DeferredRejected.WithLabelValues("unauthorized").Inc()
				log.Debug("deferred-links request unauthorized",
					logger.String("project", id),
					logger.Bool("known_project", found))
				respond.Error(w, http.StatusUnauthorized, respond.CodeUnauthorized, "invalid project credentials")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithProject(r.Context(), project)))
		})
	}
}
