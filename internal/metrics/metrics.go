// Package metrics exposes Prometheus collectors for panel traffic and
// lifecycle outcomes.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wenwu/saas-platform/remnawave-provisioner/internal/client"
)

const Namespace = "remnawave"

// Metrics implements client.Recorder and counts lifecycle results
type Metrics struct {
	gatherer prometheus.Gatherer

	panelRequestsTotal   *prometheus.CounterVec
	panelRequestDuration *prometheus.HistogramVec
	lifecycleTotal       *prometheus.CounterVec
}

// New registers the collectors on reg. Pass a fresh registry in tests.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		gatherer: reg,

		panelRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "panel_requests_total",
			Help:      "Panel API requests by operation and outcome.",
		}, []string{"operation", "status", "outcome"}),

		panelRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "panel_request_duration_seconds",
			Help:      "Latency of panel API requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),

		lifecycleTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "lifecycle_operations_total",
			Help:      "Lifecycle operations by action and result.",
		}, []string{"action", "result"}),
	}
}

// ObservePanelRequest records one panel call. Status 0 means the request
// never got a response.
func (m *Metrics) ObservePanelRequest(operation string, statusCode int, duration time.Duration, err error) {
	m.panelRequestsTotal.WithLabelValues(operation, strconv.Itoa(statusCode), outcome(err)).Inc()
	m.panelRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveLifecycle counts a finished lifecycle operation
func (m *Metrics) ObserveLifecycle(action string, ok bool) {
	result := "success"
	if !ok {
		result = "failure"
	}
	m.lifecycleTotal.WithLabelValues(action, result).Inc()
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var terr *client.TransportError
	if errors.As(err, &terr) {
		return "transport_error"
	}
	return "api_error"
}
