// Package metrics exposes Prometheus collectors for the scheduling and
// targeting engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActivationsTotal counts activation attempts by placement and outcome.
	ActivationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaign_activations_total",
			Help: "Total number of campaign activation attempts",
		},
		[]string{"placement", "outcome"},
	)

	// DeactivationsTotal counts campaign deactivations by placement.
	DeactivationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaign_deactivations_total",
			Help: "Total number of campaign deactivations",
		},
		[]string{"placement"},
	)

	// QueueLength tracks the number of queued campaigns per placement.
	QueueLength = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "campaign_queue_length",
			Help: "Number of campaigns waiting in a placement queue",
		},
		[]string{"placement"},
	)

	// TargetingEvaluationsTotal counts targeting decisions. The group label
	// names the first failing group, or "none" on success.
	TargetingEvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaign_targeting_evaluations_total",
			Help: "Total number of targeting evaluations",
		},
		[]string{"result", "group"},
	)

	// TickDuration tracks the duration of periodic scheduler passes.
	TickDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "campaign_scheduler_tick_duration_seconds",
			Help:    "Duration of periodic scheduler passes in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"pass"},
	)
)
