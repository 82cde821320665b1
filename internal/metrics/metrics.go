// Package metrics defines the Prometheus instrumentation. One Metrics
// value is shared by the portal client, the cache and the webhook handler
// through the small recorder interfaces those packages declare.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// Portal metrics
	PortalRequestsTotal   *prometheus.CounterVec
	PortalDurationSeconds *prometheus.HistogramVec

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Webhook metrics
	WebhookEventsTotal     *prometheus.CounterVec
	WebhookDurationSeconds *prometheus.HistogramVec

	// Dialog metrics
	DialogsStartedTotal   prometheus.Counter
	DialogsCompletedTotal *prometheus.CounterVec
}

// New creates a Metrics instance with all metrics registered.
func New(registry *prometheus.Registry) *Metrics {
	return &Metrics{
		PortalRequestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "icress_portal_requests_total",
				Help: "Total number of portal requests by route and status",
			},
			[]string{"route", "status"}, // status: success, not_found, error, connectivity_error
		),

		PortalDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "icress_portal_duration_seconds",
				Help:    "Portal request duration in seconds by route",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30}, // matches the 30s portal timeout
			},
			[]string{"route"},
		),

		CacheHitsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "icress_cache_hits_total",
				Help: "Total number of cache hits by key kind",
			},
			[]string{"kind"},
		),

		CacheMissesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "icress_cache_misses_total",
				Help: "Total number of cache misses by key kind",
			},
			[]string{"kind"},
		),

		WebhookEventsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "icress_webhook_events_total",
				Help: "Total number of webhook events by event type and status",
			},
			[]string{"event_type", "status"}, // status: success, error, reply_error
		),

		WebhookDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "icress_webhook_duration_seconds",
				Help:    "Webhook event processing duration in seconds by event type",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"event_type"},
		),

		DialogsStartedTotal: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "icress_dialogs_started_total",
				Help: "Total number of timetable dialogs started",
			},
		),

		DialogsCompletedTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "icress_dialogs_completed_total",
				Help: "Total number of timetable dialogs completed by outcome",
			},
			[]string{"outcome"}, // outcome: timetable, not_found
		),
	}
}

// RecordPortalRequest records one portal request. Satisfies the portal
// client's recorder interface.
func (m *Metrics) RecordPortalRequest(route, status string, duration time.Duration) {
	m.PortalRequestsTotal.WithLabelValues(route, status).Inc()
	m.PortalDurationSeconds.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordCacheHit records a cache hit. Keys are bucketed by kind so the
// course and timetable keys do not explode label cardinality.
func (m *Metrics) RecordCacheHit(key string) {
	m.CacheHitsTotal.WithLabelValues(keyKind(key)).Inc()
}

// RecordCacheMiss records a cache miss.
func (m *Metrics) RecordCacheMiss(key string) {
	m.CacheMissesTotal.WithLabelValues(keyKind(key)).Inc()
}

// RecordWebhookEvent records one processed webhook event. Satisfies the
// webhook handler's recorder interface.
func (m *Metrics) RecordWebhookEvent(eventType, status string, duration time.Duration) {
	m.WebhookEventsTotal.WithLabelValues(eventType, status).Inc()
	m.WebhookDurationSeconds.WithLabelValues(eventType).Observe(duration.Seconds())
}

// RecordDialogStarted records a dialog start.
func (m *Metrics) RecordDialogStarted() {
	m.DialogsStartedTotal.Inc()
}

// RecordDialogCompleted records a dialog reaching its final step.
func (m *Metrics) RecordDialogCompleted(outcome string) {
	m.DialogsCompletedTotal.WithLabelValues(outcome).Inc()
}

// keyKind strips the per-lookup suffix from a cache key.
func keyKind(key string) string {
	for i := range key {
		if key[i] == ':' {
			return key[:i]
		}
	}
	return key
}
