package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/helioview/helioview/api/handlers"
)

func TestRateLimiter_Allow(t *testing.T) {
	// Allows 5 requests per second with burst of 5.
	limiter := handlers.NewRateLimiter(rate.Limit(5), 5)

	ip := "192.168.1.1"

	// First 5 requests should be allowed (burst)
	for i := 0; i < 5; i++ {
		assert.True(t, limiter.Allow(ip), "request %d should be allowed", i+1)
	}

	// 6th request should be denied (burst exhausted)
	assert.False(t, limiter.Allow(ip), "request 6 should be denied")

	// Different IP should have its own limit
	otherIP := "192.168.1.2"
	assert.True(t, limiter.Allow(otherIP), "different IP should be allowed")
}

func TestRateLimiter_RetryAfter(t *testing.T) {
	limiter := handlers.NewRateLimiter(rate.Every(time.Minute), 1)

	allowed, _ := limiter.AllowWithRetry("10.0.0.1")
	require.True(t, allowed)

	allowed, retryAfter := limiter.AllowWithRetry("10.0.0.1")
	assert.False(t, allowed)
	assert.Greater(t, retryAfter, time.Duration(0))
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := handlers.NewRateLimiter(rate.Every(time.Minute), 2)

	var hits int
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	})
	h := handlers.RateLimitMiddleware(limiter)(next)

	do := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/datasets/upload", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	// Burst of 2, then 429.
	require.Equal(t, http.StatusOK, do("10.0.0.1:4000").Code)
	require.Equal(t, http.StatusOK, do("10.0.0.1:4000").Code)

	rec := do("10.0.0.1:4000")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, 2, hits)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	var body handlers.RateLimitError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "rate_limit_exceeded", body.Error)
	assert.GreaterOrEqual(t, body.RetryAfter, 1)

	// Another client is unaffected.
	assert.Equal(t, http.StatusOK, do("10.0.0.2:4000").Code)
}
