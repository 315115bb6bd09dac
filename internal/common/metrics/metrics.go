package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SubmissionsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_submissions_processed_total",
			Help: "Total number of form submissions processed, by category and outcome",
		},
		[]string{"category", "outcome"},
	)

	SubmissionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_submissions_rejected_total",
			Help: "Total number of submissions rejected, by pipeline stage",
		},
		[]string{"stage"},
	)

	RateLimitDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_rate_limit_denials_total",
			Help: "Total number of requests denied by the rate limiter, by scope and tier",
		},
		[]string{"scope", "tier"},
	)

	SubmissionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "gateway_submission_duration_seconds",
			Help: "Duration of submission pipeline processing in seconds",
		},
		[]string{"category"},
	)

	NotificationDispatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_notification_dispatches_total",
			Help: "Total number of notification dispatch attempts, by channel and status",
		},
		[]string{"channel", "status"},
	)
)
