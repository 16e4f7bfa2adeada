package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Dispatch loop metrics
	PollsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "postflow_scheduler_polls_total",
			Help: "Total number of dispatch loop ticks",
		},
	)

	PollDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "postflow_scheduler_poll_duration_seconds",
			Help:    "Dispatch loop tick duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	ScheduleClaimsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postflow_schedule_claims_total",
			Help: "Total number of schedule claim attempts",
		},
		[]string{"result"}, // claimed, conflict, error
	)

	// Publishing metrics
	PostsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postflow_posts_published_total",
			Help: "Total number of per-platform publish attempts",
		},
		[]string{"platform", "status"}, // status: success, failure, skipped
	)

	PublishDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "postflow_publish_duration_seconds",
			Help:    "Platform publish call duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"platform"},
	)

	PostsRevertedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "postflow_posts_reverted_total",
			Help: "Posts reverted from publishing back to scheduled",
		},
	)

	// Queue metrics
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "postflow_queue_depth",
			Help: "Number of execution tasks in the queue",
		},
	)
)

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordClaim records the outcome of a schedule claim attempt
func RecordClaim(result string) {
	ScheduleClaimsTotal.WithLabelValues(result).Inc()
}

// RecordPublish records a per-platform publish attempt
func RecordPublish(platform, status string, durationSeconds float64) {
	PostsPublishedTotal.WithLabelValues(platform, status).Inc()
	if durationSeconds > 0 {
		PublishDuration.WithLabelValues(platform).Observe(durationSeconds)
	}
}
