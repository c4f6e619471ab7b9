package httpmiddleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, h http.Handler, remoteAddr string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimit(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("under limit", func(t *testing.T) {
		h := RateLimit(RateLimitConfig{Max: 5, Window: time.Minute})(ok)
		for i := range 5 {
			w := serve(t, h, "192.168.1.1:12345", nil)
			assert.Equal(t, http.StatusOK, w.Code, "request %d should pass", i+1)
			assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
			assert.NotEmpty(t, w.Header().Get("X-RateLimit-Remaining"))
			assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
		}
	})

	t.Run("over limit", func(t *testing.T) {
		h := RateLimit(RateLimitConfig{Max: 2, Window: time.Minute})(ok)
		for range 2 {
			w := serve(t, h, "10.0.0.1:9999", nil)
			require.Equal(t, http.StatusOK, w.Code)
		}

		w := serve(t, h, "10.0.0.1:9999", nil)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, w.Header().Get("Retry-After"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, float64(429), body["code"])
		assert.Equal(t, "rate limit exceeded", body["message"])
	})

	t.Run("keys are independent", func(t *testing.T) {
		h := RateLimit(RateLimitConfig{Max: 1, Window: time.Minute})(ok)

		assert.Equal(t, http.StatusOK, serve(t, h, "10.0.0.1:1234", nil).Code)
		assert.Equal(t, http.StatusOK, serve(t, h, "10.0.0.2:1234", nil).Code)
		// Same client IP on a new port is still the same key.
		assert.Equal(t, http.StatusTooManyRequests, serve(t, h, "10.0.0.1:5678", nil).Code)
	})

	t.Run("custom key func", func(t *testing.T) {
		h := RateLimit(RateLimitConfig{
			Max:    1,
			Window: time.Minute,
			KeyFunc: func(r *http.Request) string {
				return r.Header.Get("X-API-Key")
			},
		})(ok)

		assert.Equal(t, http.StatusOK, serve(t, h, "", map[string]string{"X-API-Key": "key-a"}).Code)
		assert.Equal(t, http.StatusTooManyRequests, serve(t, h, "", map[string]string{"X-API-Key": "key-a"}).Code)
		assert.Equal(t, http.StatusOK, serve(t, h, "", map[string]string{"X-API-Key": "key-b"}).Code)
	})

	t.Run("x-forwarded-for wins over remote addr", func(t *testing.T) {
		h := RateLimit(RateLimitConfig{Max: 1, Window: time.Minute})(ok)
		xff := map[string]string{"X-Forwarded-For": "203.0.113.50, 70.41.3.18"}

		assert.Equal(t, http.StatusOK, serve(t, h, "192.168.1.1:4444", xff).Code)
		assert.Equal(t, http.StatusTooManyRequests, serve(t, h, "192.168.1.2:5555", xff).Code)
	})
}

func TestBucketRotate(t *testing.T) {
	window := time.Minute
	start := time.Date(2025, time.June, 16, 15, 0, 0, 0, time.UTC)

	b := &bucket{curr: 4, currStart: start}

	// Within the window nothing moves.
	b.rotate(start.Add(30*time.Second), window)
	assert.Equal(t, float64(4), b.curr)
	assert.Equal(t, float64(0), b.prev)

	// After the window elapses the counts shift into prev.
	b.rotate(start.Add(window+time.Second), window)
	assert.Equal(t, float64(0), b.curr)
	assert.Equal(t, float64(4), b.prev)

	// Two windows later the old counts are gone entirely.
	b.rotate(start.Add(3*window), window)
	assert.Equal(t, float64(0), b.prev)
}

func TestLimiterEvict(t *testing.T) {
	l := newLimiter(RateLimitConfig{Max: 10, Window: time.Minute})
	now := time.Date(2025, time.June, 16, 15, 0, 0, 0, time.UTC)

	_, _, ok := l.take("stale", now)
	require.True(t, ok)
	_, _, ok = l.take("fresh", now.Add(90*time.Second))
	require.True(t, ok)

	l.evict(now.Add(2 * time.Minute))

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.NotContains(t, l.buckets, "stale")
	assert.Contains(t, l.buckets, "fresh")
}
