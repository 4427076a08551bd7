// Package metrics counts what a run fetched and sent.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"raidcall/internal/models"
)

// Metrics holds the counters of one process. Each instance has its own registry.
type Metrics struct {
	registry *prometheus.Registry

	eventsFetched    *prometheus.CounterVec
	notificationSent *prometheus.CounterVec
	providerFailures *prometheus.CounterVec
	cacheHits        *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		eventsFetched: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "raidcall_events_fetched_total",
			Help: "Merged events read from a source.",
		}, []string{"source"}),
		notificationSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "raidcall_notifications_sent_total",
			Help: "Notifications delivered, by event status.",
		}, []string{"source", "status"}),
		providerFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "raidcall_provider_failures_total",
			Help: "Runs of a source that ended with an error.",
		}, []string{"source"}),
		cacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "raidcall_cache_hits_total",
			Help: "Runs of a source served from the event cache.",
		}, []string{"source"}),
	}
}

func (m *Metrics) EventsFetched(source string, n int) {
	m.eventsFetched.WithLabelValues(source).Add(float64(n))
}

func (m *Metrics) NotificationSent(source string, status models.Status) {
	m.notificationSent.WithLabelValues(source, string(status)).Inc()
}

func (m *Metrics) ProviderFailed(source string) {
	m.providerFailures.WithLabelValues(source).Inc()
}

func (m *Metrics) CacheHit(source string) {
	m.cacheHits.WithLabelValues(source).Inc()
}

// Registry exposes the registry, for tests and exporters.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the counters in the node exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
