// Package metrics exposes prometheus collectors for remote calls, quota consumption and reconcile outcomes.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RemoteRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "musync_remote_request_duration_seconds",
			Help:    "Duration of remote catalog API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"platform", "op"},
	)

	RemoteRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "musync_remote_requests_total",
			Help: "Total number of remote catalog API attempts by status code",
		},
		[]string{"platform", "op", "status"},
	)

	RemoteRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "musync_remote_retries_total",
			Help: "Total number of remote call retries by reason",
		},
		[]string{"platform", "reason"}, // "quota", "network", "server", "auth_fallback"
	)

	RemoteCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "musync_remote_cache_hits_total",
			Help: "Total number of GET responses served from the response cache",
		},
		[]string{"platform"},
	)

	QuotaUnits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "musync_quota_units_total",
			Help: "Total quota units recorded against each platform budget",
		},
		[]string{"platform"},
	)

	QuotaRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "musync_quota_rejections_total",
			Help: "Total number of calls refused before reaching the network because the budget would be exceeded",
		},
		[]string{"platform"},
	)

	ReconcileRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "musync_reconcile_runs_total",
			Help: "Total number of per-platform reconcile attempts by outcome",
		},
		[]string{"platform", "status"},
	)

	ReconcileTracks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "musync_reconcile_tracks_total",
			Help: "Total number of tracks changed by reconciliation",
		},
		[]string{"platform", "change"}, // "added", "imported", "removed", "unavailable"
	)

	ReconcileDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "musync_reconcile_duration_seconds",
			Help:    "Duration of per-platform reconcile attempts in seconds",
			Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"platform"},
	)
)

// RecordRemoteRequest records one remote attempt. A zero status means the request never got a response.
func RecordRemoteRequest(platform, op string, status int, duration time.Duration) {
	code := "network_error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	RemoteRequests.WithLabelValues(platform, op, code).Inc()
	RemoteRequestDuration.WithLabelValues(platform, op).Observe(duration.Seconds())
}

// RecordReconcile records the outcome of one platform's reconcile attempt.
func RecordReconcile(platform, status string, added, imported, removed, unavailable int, duration time.Duration) {
	ReconcileRuns.WithLabelValues(platform, status).Inc()
	ReconcileDuration.WithLabelValues(platform).Observe(duration.Seconds())

	for change, n := range map[string]int{"added": added, "imported": imported, "removed": removed, "unavailable": unavailable} {
		if n > 0 {
			ReconcileTracks.WithLabelValues(platform, change).Add(float64(n))
		}
	}
}
