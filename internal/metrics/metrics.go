// Package metrics holds the Prometheus collectors for sync runs, alerts and
// the HTTP API.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "grantline"

type Metrics struct {
	Registry *prometheus.Registry

	SyncRuns     *prometheus.CounterVec
	SyncDuration prometheus.Histogram
	TasksCreated prometheus.Counter
	TasksRetired prometheus.Counter
	Alerts       *prometheus.GaugeVec
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New registers every collector on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		SyncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_runs_total",
			Help:      "Milestone task sync runs by result.",
		}, []string{"result"}),
		SyncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Wall time of a milestone task sync, lock wait included.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5},
		}),
		TasksCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "milestone_tasks_created_total",
			Help:      "Milestone tasks created by sync.",
		}),
		TasksRetired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "milestone_tasks_retired_total",
			Help:      "Milestone tasks removed by sync.",
		}),
		Alerts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "deadline_alerts",
			Help:      "Grants whose next milestone is alerting, by urgency, as of the last alert evaluation.",
		}, []string{"urgency"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.SyncRuns, m.SyncDuration, m.TasksCreated, m.TasksRetired, m.Alerts,
		m.HTTPRequests, m.HTTPDuration,
	)
	return m
}

// ObserveSync records the outcome of one sync run. A nil receiver is a no-op.
func (m *Metrics) ObserveSync(created, retired int, took time.Duration, err error) {
	if m == nil {
		return
	}
	m.SyncDuration.Observe(took.Seconds())
	if err != nil {
		m.SyncRuns.WithLabelValues("error").Inc()
		return
	}
	m.SyncRuns.WithLabelValues("ok").Inc()
	m.TasksCreated.Add(float64(created))
	m.TasksRetired.Add(float64(retired))
}

// SetAlerts replaces the alert gauge with the given counts per urgency.
func (m *Metrics) SetAlerts(counts map[string]int) {
	if m == nil {
		return
	}
	m.Alerts.Reset()
	for urgency, n := range counts {
		m.Alerts.WithLabelValues(urgency).Set(float64(n))
	}
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route, status string, took time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, status).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(took.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
