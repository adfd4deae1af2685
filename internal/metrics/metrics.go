package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snaplearn_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "snaplearn_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"method", "route"},
	)

	AnswersGraded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snaplearn_answers_graded_total",
			Help: "Answers graded, by question type, entry point and verdict",
		},
		[]string{"question_type", "path", "verdict"},
	)

	AIFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snaplearn_ai_failures_total",
			Help: "AI backend failures, by entry point",
		},
		[]string{"path"},
	)

	AIDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "snaplearn_ai_request_duration_seconds",
			Help:    "Duration of AI backend calls",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		},
		[]string{"operation"},
	)

	Corrections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snaplearn_corrections_total",
			Help: "Teacher score corrections, by kind",
		},
		[]string{"kind"},
	)

	ReconcileRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snaplearn_reconcile_results_total",
			Help: "Pending results processed by reconciliation, by outcome",
		},
		[]string{"outcome"},
	)
)

// Register adds every collector to reg.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		RequestCounter,
		RequestDuration,
		AnswersGraded,
		AIFailures,
		AIDuration,
		Corrections,
		ReconcileRuns,
	)
}

// ObserveAI records the duration of an AI call started at start.
func ObserveAI(operation string, start time.Time) {
	AIDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// Middleware counts requests by chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		RequestCounter.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the metrics of gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
