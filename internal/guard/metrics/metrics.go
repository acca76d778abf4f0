package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts guard decisions. Registered on the default registry
// and exposed through /metrics.
type Metrics struct {
	AuthFailuresTotal        prometheus.Counter
	TokensIssuedTotal        prometheus.Counter
	RateLimitedTotal         *prometheus.CounterVec
	DuplicateSuppressedTotal *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		AuthFailuresTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "inkwell_guard_auth_failures_total",
			Help: "Total number of rejected bearer credentials on admin routes",
		}),
		TokensIssuedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "inkwell_guard_tokens_issued_total",
			Help: "Total number of admin tokens issued",
		}),
		RateLimitedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "inkwell_guard_rate_limited_total",
			Help: "Total number of public mutations denied by the rate limiter",
		}, []string{"category"}),
		DuplicateSuppressedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "inkwell_guard_duplicate_suppressed_total",
			Help: "Total number of idempotent side effects suppressed as duplicates",
		}, []string{"action"}),
	}
}

func (m *Metrics) IncrementAuthFailures() {
	m.AuthFailuresTotal.Inc()
}

func (m *Metrics) IncrementTokensIssued() {
	m.TokensIssuedTotal.Inc()
}

func (m *Metrics) IncrementRateLimited(category string) {
	m.RateLimitedTotal.WithLabelValues(category).Inc()
}

func (m *Metrics) IncrementDuplicateSuppressed(action string) {
	m.DuplicateSuppressedTotal.WithLabelValues(action).Inc()
}
