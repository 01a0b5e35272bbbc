package api

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Collector/internal/metrics"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func requestFrom(remote string) *http.Request {
	req := httptest.NewRequest("GET", "/api/v1/cases", nil)
	req.RemoteAddr = remote
	return req
}

func TestRateLimitWithinLimit(t *testing.T) {
	h := RateLimitMiddleware(5)(okHandler)
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, requestFrom("10.0.0.1:1234"))
		assert.Equal(t, http.StatusOK, w.Code, "request %d", i)
	}
}

func TestRateLimitExceeded(t *testing.T) {
	h := RateLimitMiddleware(2)(okHandler)
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, requestFrom("10.0.0.1:1234"))
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, requestFrom("10.0.0.1:5555"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate limit exceeded")
}

func TestRateLimitPerClient(t *testing.T) {
	h := RateLimitMiddleware(1)(okHandler)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, requestFrom("10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, requestFrom("10.0.0.2:1000"))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, requestFrom("10.0.0.1:2000"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRateLimitDisabled(t *testing.T) {
	for _, limit := range []int{0, -1} {
		h := RateLimitMiddleware(limit)(okHandler)
		for i := 0; i < 50; i++ {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, requestFrom("10.0.0.1:1234"))
			require.Equal(t, http.StatusOK, w.Code)
		}
	}
}

func TestRateLimitEvictsIdleClients(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := newRateLimiter(10)
	rl.now = func() time.Time { return now }
	rl.lastSweep = now

	rl.get("10.0.0.1")
	rl.get("10.0.0.2")
	require.Len(t, rl.limiters, 2)

	now = now.Add(limiterIdleTTL / 2)
	rl.get("10.0.0.2")
	assert.Len(t, rl.limiters, 2)

	now = now.Add(limiterIdleTTL / 2)
	rl.get("10.0.0.3")
	assert.Len(t, rl.limiters, 2)
	assert.NotContains(t, rl.limiters, "10.0.0.1")
	assert.Contains(t, rl.limiters, "10.0.0.2")
	assert.Contains(t, rl.limiters, "10.0.0.3")
}

func TestRateLimitEvictedClientStartsFresh(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := newRateLimiter(1)
	rl.now = func() time.Time { return now }
	rl.lastSweep = now
	h := rl.middleware(okHandler)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, requestFrom("10.0.0.1:1000"))
	require.Equal(t, http.StatusOK, w.Code)

	now = now.Add(limiterIdleTTL)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, requestFrom("10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, rl.limiters, 1)
}

func TestClientIP(t *testing.T) {
	assert.Equal(t, "192.168.1.5", clientIP(requestFrom("192.168.1.5:8080")))
	assert.Equal(t, "::1", clientIP(requestFrom("[::1]:8080")))
	assert.Equal(t, "unix-socket", clientIP(requestFrom("unix-socket")))
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	h.ServeHTTP(httptest.NewRecorder(), requestFrom("10.1.2.3:999"))

	line := buf.String()
	assert.Contains(t, line, `"msg":"request"`)
	assert.Contains(t, line, `"method":"GET"`)
	assert.Contains(t, line, `"path":"/api/v1/cases"`)
	assert.Contains(t, line, `"status":418`)
	assert.Contains(t, line, `"remote":"10.1.2.3"`)
}

func TestMetricsMiddleware(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	implicit := MetricsMiddleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	notFound := MetricsMiddleware(m)(http.NotFoundHandler())

	implicit.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	implicit.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	notFound.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/", strings.NewReader("x")))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("POST", "404")))
}

func TestMetricsMiddlewareNilMetrics(t *testing.T) {
	h := MetricsMiddleware(nil)(okHandler)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
