package deps

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/MrSnakeDoc/handoff/internal/deferred"
	"github.com/MrSnakeDoc/handoff/internal/index"
	"github.com/MrSnakeDoc/handoff/internal/logger"
)

type Deps struct {
	Logger         logger.Logger
	StartTime      time.Time
	Version        string
	Commit         string
	BuildDate      string
	GoVersion      string
	TimeNow        func() time.Time    // for testing, defaults to time.Now
	AllowedCIDRS   []string            // IPs allowed to access ops endpoints (readyz, metrics, reload)
	TrustProxy     bool                // true if running behind a trusted reverse proxy (e.g., cloudflared)
	AllowedOrigins []string            // CORS origins for /deferred-links
	RateBurst      int                 // per-client burst on /deferred-links
	RatePerMin     int                 // per-client refill on /deferred-links
	MaxRecordBytes int64               // max accepted create body
	Projects       *index.ProjectIndex // projects loaded from the projects file
	Deferred       *deferred.Service   // deferred link lifecycle
	Store          string              // repository kind, reported by readyz
	ReloadTrigger  chan struct{}       // Channel to trigger manual projects reload
	Gatherer       prometheus.Gatherer // metrics exposed on /metrics
}

// Now returns TimeNow() or time.Now().
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
