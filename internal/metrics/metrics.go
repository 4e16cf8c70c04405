// Package metrics exposes the broker's Prometheus registry: append/poll
// counters, segment gauges and the live client count.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every Prometheus collector the broker registers.
type Metrics struct {
	MessagesAppended *prometheus.CounterVec
	MessagesPolled   *prometheus.CounterVec
	AppendErrors     *prometheus.CounterVec
	SegmentsOpen     *prometheus.GaugeVec
	ClientsConnected prometheus.Gauge
	RetentionDeleted *prometheus.CounterVec

	registry *prometheus.Registry
}

var (
	instance *Metrics
	once     sync.Once
)

// New returns the process-wide Metrics instance, registering every
// collector exactly once.
func New() *Metrics {
	once.Do(func() {
		registry := prometheus.NewRegistry()
		m := &Metrics{
			MessagesAppended: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "gridline_messages_appended_total",
				Help: "Total messages appended, per stream/topic/partition.",
			}, []string{"stream", "topic", "partition"}),
			MessagesPolled: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "gridline_messages_polled_total",
				Help: "Total messages delivered to poll requests.",
			}, []string{"stream", "topic", "partition"}),
			AppendErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "gridline_append_errors_total",
				Help: "Append failures, per error kind.",
			}, []string{"kind"}),
			SegmentsOpen: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "gridline_segments_open",
				Help: "Segments currently present on disk, per partition.",
			}, []string{"stream", "topic", "partition"}),
			ClientsConnected: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "gridline_clients_connected",
				Help: "Live client connections across all transports.",
			}),
			RetentionDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "gridline_retention_segments_deleted_total",
				Help: "Segments removed by retention, per partition.",
			}, []string{"stream", "topic", "partition"}),
			registry: registry,
		}
		registry.MustRegister(
			m.MessagesAppended, m.MessagesPolled, m.AppendErrors,
			m.SegmentsOpen, m.ClientsConnected, m.RetentionDeleted,
		)
		instance = m
	})
	return instance
}

// Handler returns the promhttp handler serving this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ResetForTesting drops the singleton so tests can register a fresh set.
func ResetForTesting() {
	instance = nil
	once = sync.Once{}
}
