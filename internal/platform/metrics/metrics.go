// Package metrics holds the Prometheus collectors for HTTP traffic and the
// clinical workflow.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	HTTPRequests          *prometheus.CounterVec
	HTTPDuration          *prometheus.HistogramVec
	NursingSubmissions    *prometheus.CounterVec
	RadiologySubmissions  prometheus.Counter
	SecondaryWriteFailure *prometheus.CounterVec
	Logins                *prometheus.CounterVec
	WSConnections         prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them on reg. Pass
// prometheus.NewRegistry() in tests to avoid duplicate registration.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route template and status",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by method and route template",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"method", "route"}),
		NursingSubmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nursing_assessments_saved_total",
			Help: "Nursing assessment saves by resulting status (draft or submitted)",
		}, []string{"status"}),
		RadiologySubmissions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "radiology_assessments_submitted_total",
			Help: "Radiology assessments submitted",
		}),
		SecondaryWriteFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "secondary_write_failures_total",
			Help: "Best-effort writes that failed after the primary record committed",
		}, []string{"kind"}),
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "logins_total",
			Help: "Login attempts by adapter (session or bearer) and result",
		}, []string{"adapter", "result"}),
		WSConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Currently connected WebSocket clients",
		}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.HTTPRequests,
		m.HTTPDuration,
		m.NursingSubmissions,
		m.RadiologySubmissions,
		m.SecondaryWriteFailure,
		m.Logins,
		m.WSConnections,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry this Metrics was created with.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// The helpers below are nil-safe so services can run without metrics in tests.

func (m *Metrics) ObserveRequest(method, route string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(seconds)
}

func (m *Metrics) NursingSaved(status string) {
	if m == nil {
		return
	}
	m.NursingSubmissions.WithLabelValues(status).Inc()
}

func (m *Metrics) RadiologySubmitted() {
	if m == nil {
		return
	}
	m.RadiologySubmissions.Inc()
}

func (m *Metrics) SecondaryWriteFailed(kind string) {
	if m == nil {
		return
	}
	m.SecondaryWriteFailure.WithLabelValues(kind).Inc()
}

func (m *Metrics) Login(adapter string, ok bool) {
	if m == nil {
		return
	}
	result := "failure"
	if ok {
		result = "success"
	}
	m.Logins.WithLabelValues(adapter, result).Inc()
}

func (m *Metrics) WSConnected() {
	if m == nil {
		return
	}
	m.WSConnections.Inc()
}

func (m *Metrics) WSDisconnected() {
	if m == nil {
		return
	}
	m.WSConnections.Dec()
}
