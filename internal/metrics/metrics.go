// Package metrics exposes Prometheus collectors for webhook processing,
// completion inference and outbound GitHub sync. A nil *Metrics is valid and
// records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tasksync"

// Metrics holds the collectors
type Metrics struct {
	registry *prometheus.Registry

	webhookDeliveries *prometheus.CounterVec
	webhookDuration   *prometheus.HistogramVec
	inferenceCalls    *prometheus.CounterVec
	tasksCompleted    *prometheus.CounterVec
	githubSyncs       *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
}

// New creates the collectors on a fresh registry that also carries the Go
// runtime and process collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		webhookDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_deliveries_total",
			Help:      "Webhook deliveries by event and result status.",
		}, []string{"event", "status"}),
		webhookDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "webhook_duration_seconds",
			Help:      "Time spent handling a webhook delivery.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event"}),
		inferenceCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inference_calls_total",
			Help:      "Completion inference calls by outcome.",
		}, []string{"outcome"}),
		tasksCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_completed_total",
			Help:      "Tasks marked done from webhooks by source.",
		}, []string{"source"}),
		githubSyncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "github_syncs_total",
			Help:      "Outbound GitHub sync operations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern and status code.",
		}, []string{"route", "code"}),
	}

	reg.MustRegister(
		m.webhookDeliveries,
		m.webhookDuration,
		m.inferenceCalls,
		m.tasksCompleted,
		m.githubSyncs,
		m.httpRequests,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveDelivery records one handled webhook delivery
func (m *Metrics) ObserveDelivery(event, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.webhookDeliveries.WithLabelValues(event, status).Inc()
	m.webhookDuration.WithLabelValues(event).Observe(elapsed.Seconds())
}

// ObserveInference records the outcome of one inference call
func (m *Metrics) ObserveInference(outcome string) {
	if m == nil {
		return
	}
	m.inferenceCalls.WithLabelValues(outcome).Inc()
}

// ObserveTasksCompleted adds n tasks completed from source
func (m *Metrics) ObserveTasksCompleted(source string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.tasksCompleted.WithLabelValues(source).Add(float64(n))
}

// ObserveGitHubSync records one outbound sync operation
func (m *Metrics) ObserveGitHubSync(operation string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.githubSyncs.WithLabelValues(operation, outcome).Inc()
}

// ObserveHTTP records one HTTP response
func (m *Metrics) ObserveHTTP(route string, code int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}
