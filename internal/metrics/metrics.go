// Package metrics exports retrieval, ingestion and tool-call metrics in
// Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "capstone"

// Exporter owns a private registry so tests and multiple servers do not collide
type Exporter struct {
	registry *prometheus.Registry

	// Retrieval metrics
	retrievalDuration *prometheus.HistogramVec
	retrievalResults  prometheus.Histogram
	lexicalMatches    prometheus.Histogram

	// Ingestion metrics
	ingestedDocuments *prometheus.CounterVec

	// Tool call metrics
	toolCalls   *prometheus.CounterVec
	toolLatency *prometheus.HistogramVec
}

// Config configures the exporter
type Config struct {
	// Registry to use (if nil, creates a new one)
	Registry *prometheus.Registry

	// Buckets for latency histograms (in seconds)
	LatencyBuckets []float64
}

// DefaultConfig returns the default bucket layout
func DefaultConfig() Config {
	return Config{
		LatencyBuckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}
}

// New creates an Exporter and registers its collectors
func New(cfg Config) *Exporter {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}

	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &Exporter{registry: registry}

	e.retrievalDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_duration_seconds",
			Help:      "Hybrid retrieval latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"outcome"},
	)

	e.retrievalResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_results",
			Help:      "Number of chunks returned per retrieval",
			Buckets:   prometheus.LinearBuckets(0, 5, 11),
		},
	)

	e.lexicalMatches = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_lexical_matches",
			Help:      "Number of documents matched by the keyword index per retrieval",
			Buckets:   prometheus.LinearBuckets(0, 5, 11),
		},
	)

	e.ingestedDocuments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingested_documents_total",
			Help:      "Total number of documents processed by ingestion",
		},
		[]string{"status"},
	)

	e.toolCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Total number of MCP tool calls",
		},
		[]string{"tool", "status"},
	)

	e.toolLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_latency_seconds",
			Help:      "MCP tool call latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"tool"},
	)

	registry.MustRegister(
		e.retrievalDuration,
		e.retrievalResults,
		e.lexicalMatches,
		e.ingestedDocuments,
		e.toolCalls,
		e.toolLatency,
	)

	return e
}

// ObserveRetrieval records one completed retrieval call
func (e *Exporter) ObserveRetrieval(outcome string, duration time.Duration, results, lexicalMatches int) {
	e.retrievalDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	e.retrievalResults.Observe(float64(results))
	e.lexicalMatches.Observe(float64(lexicalMatches))
}

// ObserveIngest counts one processed document
func (e *Exporter) ObserveIngest(status string) {
	e.ingestedDocuments.WithLabelValues(status).Inc()
}

// ObserveToolCall records one MCP tool invocation
func (e *Exporter) ObserveToolCall(tool string, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	e.toolCalls.WithLabelValues(tool, status).Inc()
	e.toolLatency.WithLabelValues(tool).Observe(duration.Seconds())
}

// Handler returns the HTTP handler for the metrics endpoint
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}
