package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter(t *testing.T) {
	t.Run("blocks requests exceeding limit", func(t *testing.T) {
		limiter := NewRateLimiter(3, time.Minute)
		defer limiter.Close()

		for i := 0; i < 3; i++ {
			assert.True(t, limiter.Allow("device-a"), "request %d should be allowed", i+1)
		}
		assert.False(t, limiter.Allow("device-a"))
		assert.True(t, limiter.Allow("device-b"), "limits are per key")
	})

	t.Run("resets after window", func(t *testing.T) {
		limiter := NewRateLimiter(1, 50*time.Millisecond)
		defer limiter.Close()

		assert.True(t, limiter.Allow("device-a"))
		assert.False(t, limiter.Allow("device-a"))

		time.Sleep(60 * time.Millisecond)
		assert.True(t, limiter.Allow("device-a"))
	})

	t.Run("remaining returns correct count", func(t *testing.T) {
		limiter := NewRateLimiter(5, time.Minute)
		defer limiter.Close()

		assert.Equal(t, 5, limiter.Remaining("device-a"))
		limiter.Allow("device-a")
		limiter.Allow("device-a")
		assert.Equal(t, 3, limiter.Remaining("device-a"))
	})

	t.Run("concurrent access is safe", func(t *testing.T) {
		limiter := NewRateLimiter(100, time.Minute)
		defer limiter.Close()

		var wg sync.WaitGroup
		var mu sync.Mutex
		allowed := 0
		for i := 0; i < 150; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if limiter.Allow("device-a") {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 100, allowed)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		limiter := NewRateLimiter(1, time.Minute)
		limiter.Close()
		limiter.Close()
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := NewRateLimiter(1, time.Minute)
	defer limiter.Close()

	router := gin.New()
	router.Use(RateLimit(limiter, "X-Device-ID"))
	router.GET("/cart", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	get := func(deviceID string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/cart", nil)
		if deviceID != "" {
			req.Header.Set("X-Device-ID", deviceID)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	first := get("device-1")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", first.Header().Get("X-RateLimit-Remaining"))

	limited := get("device-1")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Contains(t, limited.Body.String(), "RATE_LIMIT_EXCEEDED")

	assert.Equal(t, http.StatusOK, get("device-2").Code)
	assert.Equal(t, http.StatusOK, get("").Code, "anonymous devices are keyed by IP")
	assert.Equal(t, http.StatusTooManyRequests, get("").Code)
}
