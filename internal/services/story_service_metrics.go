// internal/services/story_service_metrics.go
package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	storyDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "futuregate_decisions_total",
			Help: "Total number of accepted decisions, by symbol and level.",
		},
		[]string{"symbol", "level"},
	)

	storyCompletionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "futuregate_completions_total",
		Help: "Total number of stories played through to the ending.",
	})

	storyResetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "futuregate_resets_total",
		Help: "Total number of story resets.",
	})

	storyRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "futuregate_rejected_decisions_total",
			Help: "Total number of rejected decisions, by reason.",
		},
		[]string{"reason"},
	)

	datasetGapsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "futuregate_dataset_gaps_total",
			Help: "Total number of lookups that hit a missing passage or prompt.",
		},
		[]string{"kind"},
	)

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "futuregate_active_sessions",
		Help: "Number of sessions currently held in memory.",
	})
)
