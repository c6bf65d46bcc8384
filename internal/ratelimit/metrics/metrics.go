package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for rate limiting.
type Metrics struct {
	Rejected *prometheus.CounterVec
	Degraded prometheus.Counter
}

// New creates and registers rate limit metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Rejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "newsletter_rate_limit_rejected_total",
			Help: "Requests rejected by the rate limiter, by scope",
		}, []string{"scope"}),
		Degraded: f.NewCounter(prometheus.CounterOpts{
			Name: "newsletter_rate_limit_degraded_total",
			Help: "Rate limit checks answered by the in-memory fallback",
		}),
	}
}

func (m *Metrics) IncrementRejected(scope string) {
	m.Rejected.WithLabelValues(scope).Inc()
}

func (m *Metrics) IncrementDegraded() {
	m.Degraded.Inc()
}
