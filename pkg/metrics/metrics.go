// Package metrics предоставляет Prometheus метрики сервиса.
// Содержит метрики HTTP запросов, метрики воркера шины и HTTP server для /metrics endpoint.
//
// Использование:
//
//	srv := metrics.NewServer(":9090", "staff-users", metrics.WithReadinessCheck(check))
//	go srv.Start()
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/staff-users/pkg/logger"
)

// Исходы обработки сообщения шины (label outcome).
const (
	OutcomePublished = "published"
	OutcomeSkipped   = "skipped"   // ключ или топик не совпали
	OutcomePoison    = "poison"    // сообщение нельзя обработать, offset коммитится
	OutcomeRetry     = "retry"     // временная ошибка, offset не коммитится
	OutcomeNotFound  = "not_found" // пользователь не найден
	OutcomeAmbiguous = "ambiguous" // больше одной строки для user_id
)

// =============================================================================
// Метрики
// =============================================================================

var (
	// RequestsTotal - счётчик всех HTTP запросов.
	// PromQL пример: rate(requests_total{service="staff-users"}[5m])
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "requests_total",
			Help: "Общее количество запросов по сервису, методу и статусу",
		},
		[]string{"service", "method", "status"},
	)

	// RequestDuration - гистограмма latency HTTP запросов.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "request_duration_seconds",
			Help:    "Время выполнения запроса в секундах",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"service", "method"},
	)

	// BusMessagesTotal - счётчик обработанных сообщений шины по исходу.
	// PromQL пример: rate(bus_messages_total{outcome="retry"}[5m]) - частота временных ошибок
	BusMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bus_messages_total",
			Help: "Количество сообщений шины по исходу обработки",
		},
		[]string{"outcome"},
	)

	// BusMessageDuration - время одной попытки обработки сообщения.
	BusMessageDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bus_message_duration_seconds",
			Help:    "Время обработки сообщения шины в секундах",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	// BusPublishTotal - счётчик публикаций ответов по статусу (success / error).
	BusPublishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bus_publish_total",
			Help: "Количество публикаций в шину по статусу",
		},
		[]string{"status"},
	)

	// BusConsumerLag - отставание consumer group от конца топика запросов (сообщений).
	BusConsumerLag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bus_consumer_lag",
			Help: "Отставание consumer group от конца топика в сообщениях",
		},
	)
)

// =============================================================================
// HTTP Server для /metrics endpoint
// =============================================================================

// ReadinessChecker - функция проверки готовности сервиса.
// Возвращает nil если сервис готов принимать трафик, иначе - ошибку.
type ReadinessChecker func(ctx context.Context) error

// Server - HTTP сервер для экспорта метрик Prometheus.
type Server struct {
	httpServer     *http.Server
	service        string
	readinessCheck ReadinessChecker
}

// Option - функциональная опция для настройки Server.
type Option func(*Server)

// WithReadinessCheck добавляет проверку готовности для /readyz endpoint.
// Если checker возвращает ошибку - /readyz вернёт 503 Service Unavailable.
func WithReadinessCheck(checker ReadinessChecker) Option {
	return func(s *Server) {
		s.readinessCheck = checker
	}
}

// NewServer создаёт новый metrics server.
func NewServer(addr, service string, opts ...Option) *Server {
	s := &Server{
		service: service,
	}

	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"alive"}`))
	})

	mux.HandleFunc("/readyz", s.handleReady)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return s
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if s.readinessCheck == nil {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.readinessCheck(ctx); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		// Детали ошибки наружу не выводим
		_, _ = w.Write([]byte(`{"status":"not_ready"}`))
		logger.Warn().Err(err).Str("service", s.service).Msg("Readiness check failed")
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ready"}`))
}

// Handler возвращает http.Handler сервера (используется в тестах).
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start запускает HTTP сервер для метрик.
// Блокирующий вызов - запускать в горутине.
func (s *Server) Start() error {
	log := logger.With().Str("service", s.service).Logger()
	log.Info().Str("addr", s.httpServer.Addr).Msg("Запуск Metrics Server")

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully останавливает сервер.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// =============================================================================
// Запись метрик
// =============================================================================

// RecordRequest записывает метрики HTTP запроса.
// status - результат: "success" или "error".
func RecordRequest(service, method, status string, duration time.Duration) {
	RequestsTotal.WithLabelValues(service, method, status).Inc()
	RequestDuration.WithLabelValues(service, method).Observe(duration.Seconds())
}

// RecordBusMessage записывает исход одной попытки обработки сообщения шины.
func RecordBusMessage(outcome string, duration time.Duration) {
	BusMessagesTotal.WithLabelValues(outcome).Inc()
	BusMessageDuration.Observe(duration.Seconds())
}

// RecordPublish записывает результат публикации в шину.
func RecordPublish(err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	BusPublishTotal.WithLabelValues(status).Inc()
}

// RecordConsumerLag записывает текущее отставание consumer group.
func RecordConsumerLag(lag int64) {
	BusConsumerLag.Set(float64(lag))
}

// GinMetricsMiddleware возвращает Gin middleware для сбора HTTP метрик.
func GinMetricsMiddleware(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := "success"
		if c.Writer.Status() >= 400 {
			status = "error"
		}

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		RecordRequest(service, path, status, time.Since(start))
	}
}
