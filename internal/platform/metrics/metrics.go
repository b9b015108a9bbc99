package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the HTTP and workflow metrics exposed on /metrics.
type Collector struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	fanOutCreated   prometheus.Counter
	transitions     *prometheus.CounterVec
}

func New() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evalhub_http_requests_total",
			Help: "HTTP requests by method and status code.",
		}, []string{"method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "evalhub_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		fanOutCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evalhub_fanout_instances_created_total",
			Help: "Assessor instances created by self-evaluation fan-out.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evalhub_evaluation_transitions_total",
			Help: "Evaluation lifecycle transitions by target status.",
		}, []string{"status"}),
	}

	registry.MustRegister(c.requestsTotal, c.requestDuration, c.fanOutCreated, c.transitions)
	return c
}

func (c *Collector) RecordRequest(method string, status int, duration time.Duration) {
	c.requestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	c.requestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

func (c *Collector) RecordFanOut(created int) {
	if created > 0 {
		c.fanOutCreated.Add(float64(created))
	}
}

func (c *Collector) RecordTransition(status string) {
	c.transitions.WithLabelValues(status).Inc()
}

// Handler exposes the registry in Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
