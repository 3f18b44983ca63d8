// Package metrics implements ports.Metrics for Prometheus and CloudWatch.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"neuronote/application/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the Prometheus metrics of the service. Each collector owns
// its registry so tests can build as many as they like.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	IndexDrifts      *prometheus.CounterVec
	IndexRepairs     *prometheus.CounterVec
	RetrievalKept    prometheus.Histogram
	RetrievalDropped prometheus.Counter

	Completions        *prometheus.CounterVec
	CompletionDuration *prometheus.HistogramVec
}

var _ ports.Metrics = (*Collector)(nil)

// NewCollector creates a collector with every metric under namespace.
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		IndexDrifts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_drift_total",
			Help:      "Vector writes that failed after the row was committed",
		}, []string{"operation"}),
		IndexRepairs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_repairs_total",
			Help:      "Index repair attempts by outcome",
		}, []string{"outcome"}),
		RetrievalKept: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_hits_kept",
			Help:      "Memories kept per retrieval after the relevance floor",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 10, 20},
		}),
		RetrievalDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_hits_dropped_total",
			Help:      "Candidates discarded by the relevance floor",
		}),
		Completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completions_total",
			Help:      "Completion calls by provider and status",
		}, []string{"provider", "status"}),
		CompletionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "completion_duration_seconds",
			Help:      "Completion latency including retries",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		}, []string{"provider"}),
	}

	c.registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.IndexDrifts,
		c.IndexRepairs,
		c.RetrievalKept,
		c.RetrievalDropped,
		c.Completions,
		c.CompletionDuration,
	)
	return c
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) IndexDrift(operation string) {
	c.IndexDrifts.WithLabelValues(operation).Inc()
}

func (c *Collector) IndexRepair(outcome string) {
	c.IndexRepairs.WithLabelValues(outcome).Inc()
}

func (c *Collector) RetrievalHits(candidates, kept int) {
	c.RetrievalKept.Observe(float64(kept))
	if dropped := candidates - kept; dropped > 0 {
		c.RetrievalDropped.Add(float64(dropped))
	}
}

func (c *Collector) Completion(provider string, duration time.Duration, err error) {
	c.Completions.WithLabelValues(provider, status(err)).Inc()
	c.CompletionDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

func (c *Collector) HTTPRequest(method, route string, code int, duration time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func status(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
