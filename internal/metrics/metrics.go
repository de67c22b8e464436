// Package metrics exposes lab activity for Prometheus scraping.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ppiankov/cyberlab/internal/model"
)

// Metrics holds the service collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	classifications *prometheus.CounterVec
	rejected        *prometheus.CounterVec
	sessionsActive  prometheus.Gauge
	delaySeconds    *prometheus.HistogramVec
}

// New creates and registers all collectors.
func New() (*Metrics, error) {
	// Custom registry: tests create many instances.
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		classifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cyberlab_classifications_total",
				Help: "Total number of lab submissions classified",
			},
			[]string{"category", "kind", "severity"},
		),
		rejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cyberlab_submissions_rejected_total",
				Help: "Submissions refused before classification",
			},
			[]string{"reason"},
		),
		sessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "cyberlab_sessions_active",
				Help: "Number of live lab sessions",
			},
		),
		delaySeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cyberlab_classify_delay_seconds",
				Help:    "Simulated latency applied before a result is returned",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 3, 5},
			},
			[]string{"category"},
		),
	}

	for _, c := range []prometheus.Collector{
		m.classifications,
		m.rejected,
		m.sessionsActive,
		m.delaySeconds,
		collectors.NewGoCollector(),
	} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}
	return m, nil
}

// Classified records one classification result.
func (m *Metrics) Classified(cat model.Category, res model.Result) {
	if m == nil {
		return
	}
	m.classifications.WithLabelValues(string(cat), string(res.Kind), string(res.Severity)).Inc()
}

// Rejected records a submission refused for reason (in_flight,
// rate_limited, cancelled, invalid).
func (m *Metrics) Rejected(reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(reason).Inc()
}

// SessionsActive sets the live session gauge.
func (m *Metrics) SessionsActive(n int) {
	if m == nil {
		return
	}
	m.sessionsActive.Set(float64(n))
}

// Delay records the simulated latency of a lab.
func (m *Metrics) Delay(cat model.Category, d time.Duration) {
	if m == nil {
		return
	}
	m.delaySeconds.WithLabelValues(string(cat)).Observe(d.Seconds())
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
