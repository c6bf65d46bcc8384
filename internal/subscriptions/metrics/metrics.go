package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the subscriptions module.
type Metrics struct {
	SubscriptionsCreated prometheus.Counter
	ValidationFailures   *prometheus.CounterVec
	Conflicts            prometheus.Counter
	SubscribeDuration    prometheus.Histogram
	OutboxPublished      prometheus.Counter
	OutboxFailed         prometheus.Counter
}

// New creates and registers the subscription metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SubscriptionsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "newsletter_subscriptions_created_total",
			Help: "Total number of subscriptions stored",
		}),
		ValidationFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "newsletter_subscriber_validation_failures_total",
			Help: "Subscriber fields rejected by validation, by field and kind",
		}, []string{"field", "kind"}),
		Conflicts: f.NewCounter(prometheus.CounterOpts{
			Name: "newsletter_subscription_conflicts_total",
			Help: "Signups rejected because the email is already subscribed",
		}),
		SubscribeDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "newsletter_subscribe_duration_seconds",
			Help:    "Duration of Subscribe operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		OutboxPublished: f.NewCounter(prometheus.CounterOpts{
			Name: "newsletter_outbox_published_total",
			Help: "Outbox events published to the broker",
		}),
		OutboxFailed: f.NewCounter(prometheus.CounterOpts{
			Name: "newsletter_outbox_failed_total",
			Help: "Outbox events that failed to publish",
		}),
	}
}

func (m *Metrics) IncrementCreated() {
	m.SubscriptionsCreated.Inc()
}

func (m *Metrics) IncrementValidationFailure(field, kind string) {
	m.ValidationFailures.WithLabelValues(field, kind).Inc()
}

func (m *Metrics) IncrementConflict() {
	m.Conflicts.Inc()
}

// ObserveSubscribe records the duration of a Subscribe call started at start.
func (m *Metrics) ObserveSubscribe(start time.Time) {
	m.SubscribeDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) AddOutboxPublished(n int) {
	m.OutboxPublished.Add(float64(n))
}

func (m *Metrics) IncrementOutboxFailed() {
	m.OutboxFailed.Inc()
}
