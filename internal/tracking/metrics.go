package tracking

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ContextsActive is the number of live execution contexts.
	ContextsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "errtrail",
			Subsystem: "tracker",
			Name:      "contexts_active",
			Help:      "Number of execution contexts currently live in the store",
		},
	)

	// ContextsStarted counts Begin calls by outcome.
	// Labels: outcome (sampled, unsampled)
	ContextsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "errtrail",
			Subsystem: "tracker",
			Name:      "contexts_started_total",
			Help:      "Total Begin calls, labeled by whether a context was created",
		},
		[]string{"outcome"},
	)

	// BreadcrumbsDropped counts records refused at the depth bound.
	BreadcrumbsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "errtrail",
			Subsystem: "tracker",
			Name:      "breadcrumbs_dropped_total",
			Help:      "Total breadcrumbs dropped because a context reached its depth bound",
		},
	)
)
