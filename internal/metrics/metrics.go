// Package metrics exposes the service's Prometheus collectors. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pdfchat"

type Metrics struct {
	registry        *prometheus.Registry
	routes          *prometheus.CounterVec
	fallbacks       *prometheus.CounterVec
	askLatency      prometheus.Histogram
	agentIterations *prometheus.HistogramVec
	uploads         *prometheus.CounterVec
	uploadChunks    prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		routes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_total",
			Help:      "Answers produced, by route.",
		}, []string{"route"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Stage failures that moved a question to the next tier.",
		}, []string{"stage"}),
		askLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ask_duration_seconds",
			Help:      "End-to-end time to answer a question.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}),
		agentIterations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "agent_iterations",
			Help:      "Model calls made by the reasoning loop, by terminal state.",
			Buckets:   prometheus.LinearBuckets(1, 1, 6),
		}, []string{"state"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Document uploads, by result.",
		}, []string{"result"}),
		uploadChunks: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_chunks",
			Help:      "Chunks indexed per successful upload.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.routes,
		m.fallbacks,
		m.askLatency,
		m.agentIterations,
		m.uploads,
		m.uploadChunks,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRoute(route string) {
	if m == nil {
		return
	}
	m.routes.WithLabelValues(route).Inc()
}

func (m *Metrics) ObserveFallback(stage string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(stage).Inc()
}

func (m *Metrics) ObserveAsk(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.askLatency.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveAgent(state string, iterations int) {
	if m == nil {
		return
	}
	m.agentIterations.WithLabelValues(state).Observe(float64(iterations))
}

// ObserveUpload counts an upload; chunks is recorded only for successes.
func (m *Metrics) ObserveUpload(err error, chunks int) {
	if m == nil {
		return
	}
	if err != nil {
		m.uploads.WithLabelValues("error").Inc()
		return
	}
	m.uploads.WithLabelValues("ok").Inc()
	m.uploadChunks.Observe(float64(chunks))
}
