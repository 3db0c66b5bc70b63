package delivery

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiterBlocksAboveLimit(t *testing.T) {
	limiter := NewRateLimiter(3)
	handler := limiter.Middleware(okHandler())

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/extract", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		require.Equal(t, http.StatusOK, res.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/extract", nil)
	req.RemoteAddr = "10.0.0.1:5000"
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Equal(t, http.StatusTooManyRequests, res.Code)
	assert.Contains(t, res.Body.String(), "retry_after")
}

func TestRateLimiterIsPerClient(t *testing.T) {
	limiter := NewRateLimiter(1)
	handler := limiter.Middleware(okHandler())

	first := httptest.NewRequest(http.MethodGet, "/api/extract", nil)
	first.RemoteAddr = "10.0.0.1:5000"
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, first)
	require.Equal(t, http.StatusOK, res.Code)

	other := httptest.NewRequest(http.MethodGet, "/api/extract", nil)
	other.RemoteAddr = "10.0.0.2:5000"
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, other)
	require.Equal(t, http.StatusOK, res.Code)
}

func TestRateLimiterWindowSlides(t *testing.T) {
	limiter := NewRateLimiter(1)
	now := time.Now()
	limiter.now = func() time.Time { return now }

	require.True(t, limiter.allow("10.0.0.1"))
	require.False(t, limiter.allow("10.0.0.1"))

	now = now.Add(61 * time.Second)
	require.True(t, limiter.allow("10.0.0.1"))
}

func TestRateLimiterPrunesIdleClients(t *testing.T) {
	limiter := NewRateLimiter(10)
	now := time.Now()
	limiter.now = func() time.Time { return now }

	for i := 0; i < 100; i++ {
		require.True(t, limiter.allow(fmt.Sprintf("10.0.%d.%d", i/256, i%256)))
	}
	require.Len(t, limiter.history, 100)

	now = now.Add(time.Hour)
	require.True(t, limiter.allow("10.1.0.1"))

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	assert.Len(t, limiter.history, 1)
	assert.Contains(t, limiter.history, "10.1.0.1")
}

func TestRateLimiterExemptsHealth(t *testing.T) {
	limiter := NewRateLimiter(1)
	handler := limiter.Middleware(okHandler())

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		require.Equal(t, http.StatusOK, res.Code)
	}
}

func TestRecovererReturnsJSON500(t *testing.T) {
	handler := Recoverer(testNopLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	require.Equal(t, http.StatusInternalServerError, res.Code)
	assert.Contains(t, res.Body.String(), "unexpected error")
}

func TestProcessTimeHeader(t *testing.T) {
	handler := ProcessTime(testNopLogger())(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	assert.NotEmpty(t, res.Header().Get("X-Process-Time"))
}
