package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRateLimitedRouter(mw *RateLimitMiddleware) *gin.Engine {
	router := gin.New()
	router.Use(mw.Handle())
	router.GET("/api/v1/users", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func doRequest(router *gin.Engine, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimitMiddleware_BlocksExcessRequests(t *testing.T) {
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = redisClient.Close() }()

	router := newRateLimitedRouter(NewRateLimitMiddleware(RateLimitConfig{
		Redis:  redisClient,
		Limit:  3,
		Window: time.Minute,
	}))

	for i := 0; i < 3; i++ {
		w := doRequest(router, "10.0.0.1:12345")
		require.Equal(t, http.StatusOK, w.Code, "запрос %d должен пройти", i+1)
		assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
	}

	w := doRequest(router, "10.0.0.1:12345")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	// Другой IP считается отдельно
	assert.Equal(t, http.StatusOK, doRequest(router, "10.0.0.2:12345").Code)
}

func TestRateLimitMiddleware_WindowExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = redisClient.Close() }()

	router := newRateLimitedRouter(NewRateLimitMiddleware(RateLimitConfig{
		Redis:  redisClient,
		Limit:  1,
		Window: time.Minute,
	}))

	assert.Equal(t, http.StatusOK, doRequest(router, "10.0.0.1:1").Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(router, "10.0.0.1:1").Code)

	mr.FastForward(2 * time.Minute)

	assert.Equal(t, http.StatusOK, doRequest(router, "10.0.0.1:1").Code)
}

func TestRateLimitMiddleware_FailOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = redisClient.Close() }()

	router := newRateLimitedRouter(NewRateLimitMiddleware(RateLimitConfig{
		Redis: redisClient,
		Limit: 1,
	}))

	mr.Close()

	for i := 0; i < 3; i++ {
		w := doRequest(router, "10.0.0.1:1")
		assert.Equal(t, http.StatusOK, w.Code, "при недоступном Redis запросы проходят")
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}
}
