// Package metrics exposes Prometheus collectors for the quiz service
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "blockiq"

// Completion reasons
const (
	CompletedFinished  = "finished"
	CompletedSubmitted = "submitted"
	CompletedTimeout   = "timeout"
)

// Payment outcomes
const (
	PaymentConfirmed = "confirmed"
	PaymentRejected  = "rejected"
	PaymentError     = "error"
)

// Metrics owns a private registry so several instances can coexist in tests
type Metrics struct {
	registry *prometheus.Registry

	sessionsStarted   prometheus.Counter
	sessionsCompleted *prometheus.CounterVec
	activeTimers      prometheus.Gauge
	payments          *prometheus.CounterVec
	finalScores       prometheus.Histogram
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Quiz sessions started.",
		}),
		sessionsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_completed_total",
			Help:      "Quiz sessions completed, by how they ended.",
		}, []string{"reason"}),
		activeTimers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_timers",
			Help:      "Countdown timers currently running.",
		}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_total",
			Help:      "Payment confirmations, by outcome.",
		}, []string{"outcome"}),
		finalScores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "final_score",
			Help:      "Final scores of unlocked results.",
			Buckets:   prometheus.LinearBuckets(50, 10, 11),
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by route template, method and status.",
		}, []string{"route", "method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by route template.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		m.sessionsStarted,
		m.sessionsCompleted,
		m.activeTimers,
		m.payments,
		m.finalScores,
		m.httpRequests,
		m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry is exposed for tests
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) SessionStarted() { m.sessionsStarted.Inc() }

func (m *Metrics) SessionCompleted(reason string) {
	m.sessionsCompleted.WithLabelValues(reason).Inc()
}

func (m *Metrics) TimerStarted() { m.activeTimers.Inc() }
func (m *Metrics) TimerStopped() { m.activeTimers.Dec() }

func (m *Metrics) Payment(outcome string) {
	m.payments.WithLabelValues(outcome).Inc()
}

func (m *Metrics) FinalScore(score int) {
	m.finalScores.Observe(float64(score))
}

func (m *Metrics) HTTPRequest(route, method string, code int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
