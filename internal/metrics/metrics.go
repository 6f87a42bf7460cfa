// Package metrics exposes Prometheus collectors for the API.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "taskpilot"

// Results recorded on domain counters.
const (
	ResultOK        = "ok"
	ResultInvalid   = "invalid"
	ResultForbidden = "forbidden"
	ResultNotFound  = "not_found"
	ResultError     = "error"
)

type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec
	InFlight         *prometheus.GaugeVec

	TaskMutations *prometheus.CounterVec
	AuthAttempts  *prometheus.CounterVec
	AICalls       *prometheus.CounterVec
	AIDuration    *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency distributions.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route", "status"},
		),
		InFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_in_flight_requests",
				Help:      "Current number of in-flight HTTP requests.",
			},
			[]string{"method", "route"},
		),
		TaskMutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "tasks",
				Name:      "mutations_total",
				Help:      "Task mutations by action and result.",
			},
			[]string{"action", "result"},
		),
		AuthAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "attempts_total",
				Help:      "Sign-in and sign-up attempts by kind and result.",
			},
			[]string{"kind", "result"},
		),
		AICalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ai",
				Name:      "calls_total",
				Help:      "Text suggester calls by operation and result.",
			},
			[]string{"op", "result"},
		),
		AIDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "ai",
				Name:      "call_duration_seconds",
				Help:      "Text suggester latency by operation.",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"op"},
		),
		gatherer: reg,
	}
	reg.MustRegister(m.RequestsTotal, m.RequestsDuration, m.InFlight, m.TaskMutations, m.AuthAttempts, m.AICalls, m.AIDuration)

	return m
}

// NewNop returns collectors registered with a private registry.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

// GinHandleMiddleware records request counts and latencies per route.
func (m *Metrics) GinHandleMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}

		method := ctx.Request.Method
		m.InFlight.WithLabelValues(method, route).Inc()
		defer m.InFlight.WithLabelValues(method, route).Dec()
		ctx.Next()

		status := strconv.Itoa(ctx.Writer.Status())
		secs := time.Since(start).Seconds()

		m.RequestsTotal.WithLabelValues(method, route, status).Inc()
		m.RequestsDuration.WithLabelValues(method, route, status).Observe(secs)
	}
}

// Handler serves the registered collectors.
func (m *Metrics) Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))
}

// ObserveTaskMutation counts one task mutation.
func (m *Metrics) ObserveTaskMutation(action, result string) {
	if m == nil {
		return
	}
	m.TaskMutations.WithLabelValues(action, result).Inc()
}

// ObserveAuthAttempt counts one sign-in or sign-up.
func (m *Metrics) ObserveAuthAttempt(kind, result string) {
	if m == nil {
		return
	}
	m.AuthAttempts.WithLabelValues(kind, result).Inc()
}

// ObserveAICall counts one text suggester call and its duration.
func (m *Metrics) ObserveAICall(op, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.AICalls.WithLabelValues(op, result).Inc()
	m.AIDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}
