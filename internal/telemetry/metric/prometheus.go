package metric

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sept3"

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	// HTTP
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Pipeline
	Submissions    *prometheus.CounterVec
	Rejections     *prometheus.CounterVec
	TokensIssued   prometheus.Counter
	BotScoreChecks *prometheus.CounterVec

	// Mail
	MailDispatch *prometheus.CounterVec
}

var (
	globalOnce sync.Once
	global     *Registry
)

// Global returns the process-wide registry.
func Global() *Registry {
	globalOnce.Do(func() {
		global = NewRegistry()
	})
	return global
}

// Handler serves the global registry.
func Handler() http.Handler {
	return Global().Handler()
}

// NewRegistry creates a registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Registry{
		registry: reg,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Contact submissions by outcome.",
		}, []string{"outcome"}),
		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejections_total",
			Help:      "Rejected submissions by pipeline stage.",
		}, []string{"stage"}),
		TokensIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_issued_total",
			Help:      "CSRF token pairs issued.",
		}),
		BotScoreChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "botscore_checks_total",
			Help:      "Bot-score verifications by result.",
		}, []string{"result"}),
		MailDispatch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mail_dispatch_total",
			Help:      "Mail send attempts by kind, transport and result.",
		}, []string{"kind", "transport", "result"}),
	}

	reg.MustRegister(
		r.RequestsTotal,
		r.RequestDuration,
		r.Submissions,
		r.Rejections,
		r.TokensIssued,
		r.BotScoreChecks,
		r.MailDispatch,
	)
	return r
}

// Prometheus returns the underlying registry for extra collectors.
func (r *Registry) Prometheus() *prometheus.Registry {
	return r.registry
}

// Handler returns the /metrics handler for this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// RecordRequest counts one HTTP request and observes its latency.
func (r *Registry) RecordRequest(route, method, status string, seconds float64) {
	r.RequestsTotal.WithLabelValues(route, method, status).Inc()
	r.RequestDuration.WithLabelValues(route, method).Observe(seconds)
}

// RecordSubmission counts a finished submission. stage is empty on success.
func (r *Registry) RecordSubmission(outcome, stage string) {
	r.Submissions.WithLabelValues(outcome).Inc()
	if stage != "" {
		r.Rejections.WithLabelValues(stage).Inc()
	}
}

// IncTokensIssued counts one issued token pair.
func (r *Registry) IncTokensIssued() {
	r.TokensIssued.Inc()
}

// RecordBotScore counts one bot-score verification.
func (r *Registry) RecordBotScore(result string) {
	if result == "" {
		return
	}
	r.BotScoreChecks.WithLabelValues(result).Inc()
}

// RecordMail counts one mail send attempt.
func (r *Registry) RecordMail(kind, transport string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.MailDispatch.WithLabelValues(kind, transport, result).Inc()
}
