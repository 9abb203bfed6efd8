package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Счётчики пайплайна: регистрируются один раз при инициализации пакета
var (
	IncidentsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "safety_incidents_created_total",
		Help: "Total number of incidents persisted by the submission pipeline.",
	})

	ClassifierFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "safety_classifier_fallbacks_total",
		Help: "Total number of classifications resolved by the deterministic fallback rule.",
	})

	ClassifierCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "safety_classifier_cache_hits_total",
		Help: "Total number of classification requests served from the fingerprint cache.",
	})

	DuplicatesSuppressed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "safety_duplicate_submissions_suppressed_total",
		Help: "Total number of submissions rejected by the duplicate or in-flight guard.",
	})

	NotificationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "safety_notification_failures_total",
		Help: "Total number of contact notifications that failed to deliver.",
	})

	MotionEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "safety_motion_events_total",
		Help: "Total number of motion trigger events by kind.",
	}, []string{"kind"})
)
