// Package metrics holds the process-wide Prometheus collectors that do not belong
// to one domain package: HTTP request latency and audit delivery.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the platform collectors.
type Metrics struct {
	RequestDuration     *prometheus.HistogramVec
	AuditEmitted        *prometheus.CounterVec
	AuditDropped        *prometheus.CounterVec
	AuditDeliveryFailed prometheus.Counter

	gatherer prometheus.Gatherer
}

// NewRegistry returns a registry preloaded with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// New creates and registers the platform collectors on reg.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stagehand_http_request_duration_seconds",
			Help:    "Duration of operator HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		AuditEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stagehand_audit_events_emitted_total",
			Help: "Audit events accepted by the publisher",
		}, []string{"category"}),
		AuditDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stagehand_audit_events_dropped_total",
			Help: "Audit events dropped before reaching the sink",
		}, []string{"reason"}),
		AuditDeliveryFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "stagehand_audit_delivery_failures_total",
			Help: "Audit sink append failures",
		}),
		gatherer: reg,
	}
}

func (m *Metrics) ObserveRequest(route, method string, status int, d time.Duration) {
	m.RequestDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(d.Seconds())
}

func (m *Metrics) IncAuditEmitted(category string) {
	m.AuditEmitted.WithLabelValues(category).Inc()
}

func (m *Metrics) IncAuditDropped(reason string) {
	m.AuditDropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncAuditDeliveryFailed() {
	m.AuditDeliveryFailed.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
