package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the generation lifecycle
// and the collaboration hub.
type Metrics struct {
	registry         *prometheus.Registry
	jobsSubmitted    prometheus.Counter
	pollTicks        prometheus.Counter
	watchOutcomes    *prometheus.CounterVec
	activeWatches    prometheus.Gauge
	vendorErrors     prometheus.Counter
	collabClients    prometheus.Gauge
	collabBroadcasts prometheus.Counter
}

// New creates and registers the service metrics on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	jobsSubmitted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "avatar_jobs_submitted_total",
		Help: "Total number of generation jobs accepted by the vendor",
	})
	pollTicks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "avatar_poll_ticks_total",
		Help: "Total number of status poll ticks issued",
	})
	watchOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "avatar_watch_outcomes_total",
		Help: "Watch loops ended, by outcome",
	}, []string{"outcome"})
	activeWatches := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "avatar_active_watches",
		Help: "Number of polling loops currently running",
	})
	vendorErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "avatar_vendor_errors_total",
		Help: "Total number of vendor API errors on submit",
	})
	collabClients := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "avatar_collab_clients",
		Help: "Number of connected collaboration clients",
	})
	collabBroadcasts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "avatar_collab_broadcasts_total",
		Help: "Total number of room broadcasts relayed",
	})

	registry.MustRegister(
		jobsSubmitted,
		pollTicks,
		watchOutcomes,
		activeWatches,
		vendorErrors,
		collabClients,
		collabBroadcasts,
	)

	return &Metrics{
		registry:         registry,
		jobsSubmitted:    jobsSubmitted,
		pollTicks:        pollTicks,
		watchOutcomes:    watchOutcomes,
		activeWatches:    activeWatches,
		vendorErrors:     vendorErrors,
		collabClients:    collabClients,
		collabBroadcasts: collabBroadcasts,
	}
}

// JobSubmitted increments the submitted jobs counter.
func (m *Metrics) JobSubmitted() {
	m.jobsSubmitted.Inc()
}

// PollTick increments the poll tick counter.
func (m *Metrics) PollTick() {
	m.pollTicks.Inc()
}

// WatchStarted increments the active watch gauge.
func (m *Metrics) WatchStarted() {
	m.activeWatches.Inc()
}

// WatchEnded decrements the active watch gauge and counts the outcome.
func (m *Metrics) WatchEnded(outcome string) {
	m.activeWatches.Dec()
	m.watchOutcomes.WithLabelValues(outcome).Inc()
}

// VendorError increments the vendor error counter.
func (m *Metrics) VendorError() {
	m.vendorErrors.Inc()
}

// CollabConnected increments the connected collaboration client gauge.
func (m *Metrics) CollabConnected() {
	m.collabClients.Inc()
}

// CollabDisconnected decrements the connected collaboration client gauge.
func (m *Metrics) CollabDisconnected() {
	m.collabClients.Dec()
}

// CollabBroadcast increments the room broadcast counter.
func (m *Metrics) CollabBroadcast() {
	m.collabBroadcasts.Inc()
}

// Handler returns an http.Handler serving the private registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
