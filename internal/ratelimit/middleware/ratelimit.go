package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"newsletter/internal/ratelimit/metrics"
	"newsletter/internal/ratelimit/models"
	"newsletter/pkg/platform/circuit"
	"newsletter/pkg/platform/httputil"
	"newsletter/pkg/requestcontext"
)

//go:generate mockgen -source=ratelimit.go -destination=mocks/mocks.go -package=mocks BucketStore

// BucketStore counts requests per key within a window.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error)
}

// Middleware limits requests per client IP. When the primary store fails the
// in-memory fallback answers instead, so a Redis outage never blocks signups.
type Middleware struct {
	primary  BucketStore
	fallback BucketStore
	breaker  *circuit.Breaker
	limit    int
	window   time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
	disabled bool
	probes   atomic.Uint64
}

const probeInterval = 10

type Option func(*Middleware)

// WithFallback sets the store used while the primary is failing.
func WithFallback(store BucketStore) Option {
	return func(m *Middleware) {
		m.fallback = store
	}
}

// WithMetrics records rejections and degraded checks.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Middleware) {
		m.metrics = mt
	}
}

// WithDisabled disables rate limiting entirely (for testing/demo mode).
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

func New(primary BucketStore, limit int, window time.Duration, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		primary: primary,
		breaker: circuit.New("ratelimit-primary"),
		limit:   limit,
		window:  window,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// RateLimit returns middleware limiting requests for scope per client IP.
func (m *Middleware) RateLimit(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.disabled {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			key := scope + ":" + requestcontext.ClientIP(ctx)

			result, degraded := m.check(ctx, key)
			if result == nil {
				// Neither store answered; fail open.
				next.ServeHTTP(w, r)
				return
			}
			if degraded {
				w.Header().Set("X-RateLimit-Status", "degraded")
			}
			addRateLimitHeaders(w, result)

			if !result.Allowed {
				if m.metrics != nil {
					m.metrics.IncrementRejected(scope)
				}
				writeRateLimitExceeded(w, result)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (m *Middleware) check(ctx context.Context, key string) (*models.RateLimitResult, bool) {
	// While the breaker is open only every probeInterval-th request reaches
	// the primary; the rest go straight to the fallback.
	if m.fallback != nil && m.breaker.IsOpen() && m.probes.Add(1)%probeInterval != 0 {
		return m.checkFallback(ctx, key)
	}

	result, err := m.primary.Allow(ctx, key, m.limit, m.window)
	if err == nil {
		if _, change := m.breaker.RecordSuccess(); change.Closed {
			m.logger.InfoContext(ctx, "rate limit primary recovered", "breaker", m.breaker.Name())
		}
		return result, false
	}

	useFallback, change := m.breaker.RecordFailure()
	m.logger.ErrorContext(ctx, "rate limit check failed",
		"request_id", requestcontext.RequestID(ctx),
		"circuit_open", useFallback,
		"error", err,
	)
	if change.Opened {
		m.logger.WarnContext(ctx, "rate limit circuit opened, using fallback", "breaker", m.breaker.Name())
	}
	if m.fallback == nil {
		return nil, false
	}
	return m.checkFallback(ctx, key)
}

func (m *Middleware) checkFallback(ctx context.Context, key string) (*models.RateLimitResult, bool) {
	if m.metrics != nil {
		m.metrics.IncrementDegraded()
	}
	result, err := m.fallback.Allow(ctx, key, m.limit, m.window)
	if err != nil {
		return nil, false
	}
	return result, true
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.RateLimitResult) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, result *models.RateLimitResult) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &models.RateLimitExceededResponse{
		Error:      "too_many_requests",
		Message:    "Too many subscription attempts from this address. Please try again later.",
		RetryAfter: result.RetryAfter,
	})
}
