package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	DeferredCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "handoff_deferred_created_total",
		Help: "Deferred links stored, by platform.",
	}, []string{"platform"})
	DeferredDeduplicated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "handoff_deferred_deduplicated_total",
		Help: "Creates answered from the idempotency window.",
	})
	DeferredClaimed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "handoff_deferred_lookups_total",
		Help: "Lookups by result (hit or miss).",
	}, []string{"result"})
	DeferredDeleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "handoff_deferred_deleted_total",
		Help: "Deferred links deleted after a claim.",
	})
	DeferredRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "handoff_deferred_rejected_total",
		Help: "Rejected requests by reason.",
	}, []string{"reason"})
	DeferredSwept = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "handoff_deferred_swept_total",
		Help: "Expired deferred links removed by the in-memory sweeper.",
	})

	ProjectsLoaded = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "handoff_projects_loaded",
		Help: "Projects currently loaded from the projects file.",
	})
	ProjectsReloadFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "handoff_projects_reload_failures_total",
		Help: "Failed reloads of the projects file.",
	})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		DeferredCreated, DeferredDeduplicated, DeferredClaimed,
		DeferredDeleted, DeferredRejected, DeferredSwept,
		ProjectsLoaded, ProjectsReloadFailures,
	)
}
