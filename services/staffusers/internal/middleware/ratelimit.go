package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"example.com/staff-users/pkg/logger"
)

// fixedWindowScript атомарно увеличивает счётчик окна и ставит TTL на первом запросе.
var fixedWindowScript = redis.NewScript(`
	local current = redis.call("INCR", KEYS[1])
	if current == 1 then
		redis.call("EXPIRE", KEYS[1], ARGV[1])
	end
	return current
`)

// RateLimitConfig - конфигурация rate limiter.
type RateLimitConfig struct {
	Redis     *redis.Client
	Limit     int           // Лимит запросов (по умолчанию 100)
	Window    time.Duration // Временное окно (по умолчанию 1 минута)
	KeyPrefix string        // Префикс ключей в Redis (по умолчанию "rate")
}

// RateLimitMiddleware ограничивает число запросов с одного IP в окне.
// При недоступном Redis запросы пропускаются (fail-open).
type RateLimitMiddleware struct {
	redis  *redis.Client
	limit  int
	window time.Duration
	prefix string
}

// NewRateLimitMiddleware создаёт новый middleware для rate limiting.
func NewRateLimitMiddleware(cfg RateLimitConfig) *RateLimitMiddleware {
	if cfg.Limit <= 0 {
		cfg.Limit = 100
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "rate"
	}

	return &RateLimitMiddleware{
		redis:  cfg.Redis,
		limit:  cfg.Limit,
		window: cfg.Window,
		prefix: cfg.KeyPrefix,
	}
}

// Handle возвращает Gin handler function для middleware.
func (m *RateLimitMiddleware) Handle() gin.HandlerFunc {
	windowSec := int(m.window.Seconds())
	if windowSec < 1 {
		windowSec = 1
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		log := logger.FromContext(ctx)

		clientIP := c.ClientIP()
		count, err := m.increment(ctx, m.prefix+":"+clientIP, windowSec)
		if err != nil {
			log.Warn().Err(err).Msg("Ошибка проверки rate limit")
			c.Next()
			return
		}

		remaining := m.limit - count
		if remaining < 0 {
			remaining = 0
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(m.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(m.window).Unix(), 10))

		if count > m.limit {
			log.Warn().
				Str("client_ip", clientIP).
				Int("limit", m.limit).
				Msg("Rate limit превышен")

			c.Header("Retry-After", strconv.Itoa(windowSec))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limit_exceeded",
				"message": fmt.Sprintf("Превышен лимит запросов. Попробуйте через %d секунд", windowSec),
			})
			return
		}

		c.Next()
	}
}

func (m *RateLimitMiddleware) increment(ctx context.Context, key string, windowSec int) (int, error) {
	return fixedWindowScript.Run(ctx, m.redis, []string{key}, windowSec).Int()
}
