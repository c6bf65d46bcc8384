package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsletter/internal/platform/metrics"
	ratelimit "newsletter/internal/ratelimit/middleware"
	"newsletter/internal/ratelimit/store/bucket"
	"newsletter/internal/subscriptions/handler"
	"newsletter/internal/subscriptions/service"
	"newsletter/internal/subscriptions/store"
	"newsletter/pkg/testutil"
)

func newTestRouter(t *testing.T, checks map[string]HealthCheck, limit int) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()

	limiter := ratelimit.New(bucket.NewInMemory(), limit, time.Minute, logger)
	subs := handler.New(
		service.New(store.NewInMemory(), service.WithLogger(logger)),
		logger,
		handler.WithSubscribeMiddleware(limiter.RateLimit("subscribe")),
	)
	return NewRouter(Deps{
		Logger:         logger,
		Metrics:        metrics.New(reg),
		Gatherer:       reg,
		AllowedOrigins: []string{"https://newsletter.example.com"},
		HealthChecks:   checks,
		Modules:        []Registrar{subs},
	})
}

func subscribe(t *testing.T, router http.Handler, email, name string) *httptest.ResponseRecorder {
	t.Helper()
	req := testutil.NewFormRequest(t, http.MethodPost, "/subscriptions", url.Values{"email": {email}, "name": {name}})
	req.RemoteAddr = "203.0.113.7:51234"
	return testutil.DoRequest(router, req)
}

func TestRouterSubscribeFlow(t *testing.T) {
	router := newTestRouter(t, nil, 10)

	rec := subscribe(t, router, "ursula_le_guin@gmail.com", "le guin")
	testutil.AssertStatus(t, rec, http.StatusCreated)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "10", rec.Header().Get("X-RateLimit-Limit"))

	rec = subscribe(t, router, "ursula_le_guin@gmail.com", "")
	testutil.AssertValidationError(t, rec, "name", "name_blank")
}

func TestRouterRateLimitsSubscribe(t *testing.T) {
	testutil.Given(t, "a limit of one signup per minute", func(t *testing.T) {
		router := newTestRouter(t, nil, 1)

		testutil.When(t, "the same address signs up twice", func(t *testing.T) {
			first := subscribe(t, router, "first@example.com", "First")
			second := subscribe(t, router, "second@example.com", "Second")

			testutil.Then(t, "the second attempt is rejected with Retry-After", func(t *testing.T) {
				testutil.AssertStatus(t, first, http.StatusCreated)
				testutil.AssertStatusAndError(t, second, http.StatusTooManyRequests, "too_many_requests")
				assert.NotEmpty(t, second.Header().Get("Retry-After"))
			})
		})
	})
}

func TestRouterRateLimitIgnoresForgedForwarding(t *testing.T) {
	testutil.Given(t, "a limit of one signup per minute and no trusted proxies", func(t *testing.T) {
		router := newTestRouter(t, nil, 1)

		testutil.When(t, "one peer rotates X-Forwarded-For between attempts", func(t *testing.T) {
			var codes []int
			for i, forged := range []string{"198.51.100.1", "198.51.100.2", "198.51.100.3"} {
				req := testutil.NewFormRequest(t, http.MethodPost, "/subscriptions", url.Values{
					"email": {fmt.Sprintf("reader%d@example.com", i)},
					"name":  {"Reader"},
				})
				req.RemoteAddr = "203.0.113.7:51234"
				req.Header.Set("X-Forwarded-For", forged)
				codes = append(codes, testutil.DoRequest(router, req).Code)
			}

			testutil.Then(t, "all attempts share the peer's bucket", func(t *testing.T) {
				assert.Equal(t, []int{http.StatusCreated, http.StatusTooManyRequests, http.StatusTooManyRequests}, codes)
			})
		})
	})
}

func TestRouterHealth(t *testing.T) {
	t.Run("no checks", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newTestRouter(t, nil, 10).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("failing dependency", func(t *testing.T) {
		checks := map[string]HealthCheck{
			"postgres": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("connection refused") },
		}
		rec := httptest.NewRecorder()
		newTestRouter(t, checks, 10).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var body healthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "unavailable", body.Status)
		assert.Equal(t, "ok", body.Checks["postgres"])
		assert.Equal(t, "connection refused", body.Checks["redis"])
	})
}

func TestRouterMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t, nil, 10)
	subscribe(t, router, "ursula@example.com", "Ursula")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `newsletter_http_requests_total{method="POST",route="/subscriptions",status="201"} 1`)
}

func TestRouterCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/subscriptions", nil)
	req.Header.Set("Origin", "https://newsletter.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	newTestRouter(t, nil, 10).ServeHTTP(rec, req)

	assert.Equal(t, "https://newsletter.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
