// Package metrics exposes Prometheus collectors for the event bus, the
// pending store, the fan-out pipeline and the HTTP API.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Bus metrics
	BusEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seedarr_bus_events_total",
			Help: "Bus events by bus name and outcome (published, consumed, failed, dropped)",
		},
		[]string{"bus", "outcome"},
	)

	BusQueueLength = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "seedarr_bus_queue_length",
			Help: "Events waiting in the pipeline bus",
		},
	)

	// Registry metrics
	Subscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "seedarr_subscribers",
			Help: "Clients currently subscribed to broadcasts",
		},
	)

	// Store metrics
	StoreEntries = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "seedarr_store_entries",
			Help: "Live entries per expiring store",
		},
		[]string{"store"},
	)

	StoreExpirations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seedarr_store_expirations_total",
			Help: "Expired entries per store by cleanup outcome (ok, error, panic)",
		},
		[]string{"store", "outcome"},
	)

	// Pipeline metrics
	PollDrains = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "seedarr_poll_drains_total",
			Help: "Engine alert drains issued by the poller",
		},
	)

	PollDrainDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "seedarr_poll_drain_duration_seconds",
			Help:    "Time spent posting updates and draining engine alerts",
			Buckets: prometheus.DefBuckets,
		},
	)

	BroadcastEmits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seedarr_broadcast_emits_total",
			Help: "Per-client broadcast emits by outcome (ok, error)",
		},
		[]string{"outcome"},
	)

	AlertsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seedarr_alerts_dropped_total",
			Help: "Events the serializer produced no payload for, by reason",
		},
		[]string{"reason"},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seedarr_api_requests_total",
			Help: "Total number of API requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "seedarr_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func init() {
	prometheus.MustRegister(BusEvents)
	prometheus.MustRegister(BusQueueLength)
	prometheus.MustRegister(Subscribers)
	prometheus.MustRegister(StoreEntries)
	prometheus.MustRegister(StoreExpirations)
	prometheus.MustRegister(PollDrains)
	prometheus.MustRegister(PollDrainDuration)
	prometheus.MustRegister(BroadcastEmits)
	prometheus.MustRegister(AlertsDropped)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures an operation for a histogram.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the time elapsed since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration records the elapsed time on h.
func (t *Timer) ObserveDuration(h prometheus.Observer) {
	h.Observe(t.Duration().Seconds())
}
