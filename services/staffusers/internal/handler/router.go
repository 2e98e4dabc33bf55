package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"example.com/staff-users/pkg/logger"
	"example.com/staff-users/pkg/metrics"
	"example.com/staff-users/services/staffusers/internal/middleware"
)

// ReadinessChecker - функция проверки готовности сервиса.
type ReadinessChecker func(ctx context.Context) error

// Router - конфигурация роутера.
type Router struct {
	engine         *gin.Engine
	service        string
	users          UserLister
	authMW         *middleware.AuthMiddleware
	rateLimitMW    *middleware.RateLimitMiddleware
	readinessCheck ReadinessChecker
}

// RouterConfig - параметры для создания роутера.
type RouterConfig struct {
	Service        string // Имя сервиса для метрик и спанов
	Users          UserLister
	AuthMW         *middleware.AuthMiddleware
	RateLimitMW    *middleware.RateLimitMiddleware // nil - rate limiting выключен
	ReadinessCheck ReadinessChecker                // опциональная проверка готовности для /readyz
	Debug          bool                            // Режим отладки Gin
}

// NewRouter создаёт и настраивает HTTP роутер.
func NewRouter(cfg RouterConfig) *Router {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.Service == "" {
		cfg.Service = "staff-users"
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	engine.Use(middleware.SecurityHeaders())
	engine.Use(otelgin.Middleware(cfg.Service))
	engine.Use(metrics.GinMetricsMiddleware(cfg.Service))
	engine.Use(middleware.RequestTracing())

	r := &Router{
		engine:         engine,
		service:        cfg.Service,
		users:          cfg.Users,
		authMW:         cfg.AuthMW,
		rateLimitMW:    cfg.RateLimitMW,
		readinessCheck: cfg.ReadinessCheck,
	}

	r.setupRoutes()
	return r
}

func (r *Router) setupRoutes() {
	// Health endpoints (без rate limiting и auth)
	r.engine.GET("/healthz", r.livenessCheck)
	r.engine.GET("/readyz", r.readinessCheckHandler)

	v1 := r.engine.Group("/api/v1")
	if r.rateLimitMW != nil {
		v1.Use(r.rateLimitMW.Handle())
	}
	if r.authMW != nil {
		v1.Use(r.authMW.Handle())
	}

	userHandler := NewUserHandler(r.users)
	{
		v1.GET("/users", userHandler.ListUsers)
		v1.GET("/userstwo", userHandler.ListUsers)
	}
}

// Engine возвращает Gin engine для запуска сервера.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// livenessCheck - проверка живости. 200 OK, пока процесс отвечает.
func (r *Router) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive", "service": r.service})
}

// readinessCheckHandler - проверка готовности (Postgres + Kafka).
func (r *Router) readinessCheckHandler(c *gin.Context) {
	if r.readinessCheck == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := r.readinessCheck(ctx); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("Сервис не готов")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
