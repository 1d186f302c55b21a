package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "acma_insights_build_info",
			Help: "Build information of the Acma Insights service",
		},
		[]string{"version", "commit", "date"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "acma_insights_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "acma_insights_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "acma_insights_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	WorkflowRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "acma_insights_workflow_runs_total",
			Help: "Total number of workflow runs by intent and outcome",
		},
		[]string{"intent", "outcome"},
	)

	WorkflowNodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "acma_insights_workflow_node_duration_seconds",
			Help:    "Duration of workflow node executions in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"node"},
	)

	GenerationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "acma_insights_generation_total",
			Help: "Total number of text generation calls by stage and status",
		},
		[]string{"stage", "status"},
	)

	GenerationTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "acma_insights_generation_tokens_total",
			Help: "Tokens consumed by text generation calls",
		},
		[]string{"model", "kind"},
	)

	GenerationCostUSD = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "acma_insights_generation_cost_usd_total",
			Help: "Estimated USD cost of text generation calls",
		},
		[]string{"model"},
	)

	SQLExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "acma_insights_sql_executions_total",
			Help: "Total number of SQL executions by status",
		},
		[]string{"status"},
	)

	ChartFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "acma_insights_chart_fallbacks_total",
			Help: "Number of times the deterministic chart builder replaced generated output",
		},
	)

	PersistenceErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "acma_insights_persistence_errors_total",
			Help: "Conversation store failures that degraded to stateless runs",
		},
		[]string{"op"},
	)
)

// Middleware returns a chi middleware that records HTTP metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		HTTPRequestsInFlight.Inc()
		defer HTTPRequestsInFlight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		// Use the route pattern if available, otherwise use the path
		path := chi.RouteContext(r.Context()).RoutePattern()
		if path == "" {
			path = r.URL.Path
		}

		status := strconv.Itoa(ww.Status())
		duration := time.Since(start).Seconds()

		HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}
