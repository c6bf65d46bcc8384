package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"newsletter/internal/subscriptions/metrics"
)

//go:generate mockgen -source=relay.go -destination=mocks/mocks.go -package=mocks Store,Publisher

// Store is the outbox persistence the relay drives.
type Store interface {
	Lease(ctx context.Context, limit int, now time.Time, ttl time.Duration) ([]Event, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string, retryAt time.Time) error
}

// Publisher delivers one event to the message broker.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

var tracer = otel.Tracer("newsletter/internal/subscriptions/outbox")

const (
	defaultLeaseTTL = 30 * time.Second
	maxRetryBackoff = 5 * time.Minute
)

// Relay forwards stored events to the broker at least once.
type Relay struct {
	store        Store
	publisher    Publisher
	logger       *slog.Logger
	metrics      *metrics.Metrics
	pollInterval time.Duration
	batchSize    int
	leaseTTL     time.Duration
	now          func() time.Time
}

type Option func(*Relay)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Relay) {
		r.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Relay) {
		r.now = now
	}
}

func NewRelay(store Store, publisher Publisher, pollInterval time.Duration, batchSize int, opts ...Option) *Relay {
	r := &Relay{
		store:        store,
		publisher:    publisher,
		logger:       slog.Default(),
		pollInterval: pollInterval,
		batchSize:    batchSize,
		leaseTTL:     defaultLeaseTTL,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run polls until ctx is cancelled. Batch errors are logged and retried on the
// next tick.
func (r *Relay) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "outbox relay started",
		"poll_interval", r.pollInterval.String(),
		"batch_size", r.batchSize,
	)
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		for {
			n, err := r.RunOnce(ctx)
			if err != nil {
				r.logger.ErrorContext(ctx, "outbox relay batch failed", "error", err)
				break
			}
			// A full batch means more rows are probably waiting.
			if n < r.batchSize || ctx.Err() != nil {
				break
			}
		}

		select {
		case <-ctx.Done():
			r.logger.Info("outbox relay stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce leases one batch, publishes it and settles each event. It returns
// the number of events leased.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "outbox.RelayBatch")
	defer span.End()

	events, err := r.store.Lease(ctx, r.batchSize, r.now(), r.leaseTTL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lease failed")
		return 0, err
	}
	span.SetAttributes(attribute.Int("outbox.batch_size", len(events)))
	if len(events) == 0 {
		return 0, nil
	}

	published := make([]uuid.UUID, 0, len(events))
	for _, event := range events {
		if err := r.publisher.Publish(ctx, event); err != nil {
			r.fail(ctx, event, err)
			continue
		}
		published = append(published, event.ID)
	}

	if err := r.store.MarkPublished(ctx, published, r.now()); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "settle failed")
		return len(events), err
	}
	if r.metrics != nil {
		r.metrics.AddOutboxPublished(len(published))
	}
	return len(events), nil
}

func (r *Relay) fail(ctx context.Context, event Event, err error) {
	if r.metrics != nil {
		r.metrics.IncrementOutboxFailed()
	}
	r.logger.WarnContext(ctx, "outbox publish failed",
		"event_id", event.ID.String(),
		"subscription_id", event.AggregateID.String(),
		"attempts", event.Attempts,
		"error", err,
	)
	retryAt := r.now().Add(retryBackoff(event.Attempts))
	if markErr := r.store.MarkFailed(ctx, event.ID, err.Error(), retryAt); markErr != nil {
		r.logger.ErrorContext(ctx, "failed to record outbox failure",
			"event_id", event.ID.String(),
			"error", markErr,
		)
	}
}

// retryBackoff doubles from one second per attempt, capped at maxRetryBackoff.
func retryBackoff(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	if attempts > 16 {
		return maxRetryBackoff
	}
	return min(time.Second<<(attempts-1), maxRetryBackoff)
}
