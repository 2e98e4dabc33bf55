// Package main - точка входа сервиса сотрудников.
// Сервис отдаёт таблицу staff_users по HTTP и отвечает на запросы post_get_user из Kafka,
// подставляя имя автора записи в user_reg.createdby.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"example.com/staff-users/pkg/circuitbreaker"
	"example.com/staff-users/pkg/config"
	"example.com/staff-users/pkg/db"
	"example.com/staff-users/pkg/healthcheck"
	"example.com/staff-users/pkg/jwt"
	"example.com/staff-users/pkg/kafka"
	"example.com/staff-users/pkg/logger"
	"example.com/staff-users/pkg/metrics"
	"example.com/staff-users/pkg/tracing"
	"example.com/staff-users/services/staffusers/internal/app"
	"example.com/staff-users/services/staffusers/internal/handler"
	"example.com/staff-users/services/staffusers/internal/middleware"
	"example.com/staff-users/services/staffusers/internal/repository"
	"example.com/staff-users/services/staffusers/internal/worker"
)

func main() {
	// Загружаем конфигурацию
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Ошибка загрузки конфигурации")
	}

	// Инициализируем логгер
	logger.Init(logger.Config{
		Level:   cfg.App.LogLevel,
		Pretty:  cfg.App.LogPretty,
		Service: cfg.App.Name,
	})

	logger.Info().
		Str("env", cfg.App.Env).
		Msg("Запуск сервиса сотрудников")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Error().Err(err).Msg("Сервис завершился с ошибкой")
		stop()
		os.Exit(1)
	}

	logger.Info().Msg("Сервис сотрудников остановлен")
}

func run(ctx context.Context, cfg *config.Config) error {
	// === Observability: Tracing ===

	shutdownTracing, err := tracing.InitTracer(tracing.Config{
		ServiceName: cfg.App.Name,
		Endpoint:    cfg.Jaeger.OTLPEndpoint(),
		Environment: cfg.App.Env,
		Enabled:     cfg.Jaeger.Enabled,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("Не удалось инициализировать tracing")
		shutdownTracing = nil
	}

	// === Postgres (общий пул для HTTP и воркера) ===

	database, err := db.ConnectPostgres(cfg.Postgres, cfg.IsDevelopment())
	if err != nil {
		logger.Fatal().Err(err).Msg("Ошибка подключения к Postgres")
	}
	logger.Info().Msg("Подключено к Postgres")

	breaker := circuitbreaker.New("postgres-staff-users")
	users := repository.NewStaffUserRepository(database, breaker, cfg.Postgres.QueryTimeout)

	// === Kafka ===

	kafkaCfg := kafka.Config{
		Brokers:          cfg.Kafka.Brokers,
		ConsumerGroup:    cfg.Kafka.ConsumerGroup,
		StartOffset:      cfg.Kafka.StartOffset,
		SessionTimeout:   cfg.Kafka.SessionTimeout,
		PublishTimeout:   cfg.Kafka.PublishTimeout,
		FlushTimeout:     cfg.Kafka.FlushTimeout,
		RetryMaxInterval: cfg.Kafka.RetryMaxInterval,
	}

	if cfg.Kafka.EnsureTopics {
		topics := []kafka.TopicSpec{
			{Name: cfg.Kafka.RequestTopic},
			{Name: cfg.Kafka.ResponseTopic},
		}
		if cfg.Kafka.DLQTopic != "" {
			topics = append(topics, kafka.TopicSpec{Name: cfg.Kafka.DLQTopic})
		}

		ensureCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := kafka.EnsureTopics(ensureCtx, cfg.Kafka.Brokers, topics...); err != nil {
			logger.Warn().Err(err).Msg("Не удалось создать топики Kafka")
		}
		cancel()
	}

	producer, err := kafka.NewProducer(kafkaCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Ошибка создания Kafka producer")
	}

	consumer, err := kafka.NewConsumer(kafkaCfg, cfg.Kafka.RequestTopic)
	if err != nil {
		logger.Fatal().Err(err).Msg("Ошибка создания Kafka consumer")
	}

	processor := worker.NewProcessor(users, producer, worker.Config{
		RequestTopic:  cfg.Kafka.RequestTopic,
		ResponseTopic: cfg.Kafka.ResponseTopic,
		DLQTopic:      cfg.Kafka.DLQTopic,
	})
	busWorker := worker.New(consumer, processor)

	// === Readiness: Postgres + Kafka ===

	readiness := healthcheck.Composite(
		func(ctx context.Context) error { return healthcheck.CheckPostgres(ctx, database) },
		func(ctx context.Context) error { return healthcheck.CheckKafka(ctx, cfg.Kafka.Brokers) },
	)

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.Addr(), cfg.App.Name, metrics.WithReadinessCheck(metrics.ReadinessChecker(readiness)))
		go func() {
			if err := metricsServer.Start(); err != nil {
				logger.Error().Err(err).Msg("Ошибка Metrics Server")
			}
		}()
	}

	// === HTTP ===

	jwtManager, err := jwt.NewManager(jwt.Config{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Ошибка инициализации JWT")
	}

	var rateLimitMW *middleware.RateLimitMiddleware
	if cfg.RateLimit.Enabled {
		redisClient := db.ConnectRedis(cfg.Redis)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error().Err(err).Msg("Ошибка закрытия Redis")
			}
		}()

		rateLimitMW = middleware.NewRateLimitMiddleware(middleware.RateLimitConfig{
			Redis:  redisClient,
			Limit:  cfg.RateLimit.RequestsLimit,
			Window: cfg.RateLimit.Window,
		})
		logger.Info().
			Int("limit", cfg.RateLimit.RequestsLimit).
			Dur("window", cfg.RateLimit.Window).
			Msg("Rate limiting включён")
	}

	router := handler.NewRouter(handler.RouterConfig{
		Service:        cfg.App.Name,
		Users:          users,
		AuthMW:         middleware.NewAuthMiddleware(jwtManager),
		RateLimitMW:    rateLimitMW,
		ReadinessCheck: handler.ReadinessChecker(readiness),
		Debug:          cfg.IsDevelopment(),
	})

	listener, err := app.Listen(cfg.HTTP.Addr())
	if err != nil {
		logger.Fatal().Err(err).Msg("Ошибка создания listener")
	}

	srv := &http.Server{
		Handler:      router.Engine(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	supervisor, err := app.New(app.Config{
		Server:          srv,
		Listener:        listener,
		Worker:          busWorker,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	})
	if err != nil {
		return err
	}

	// Порядок освобождения: сначала consumer (выход из группы), затем flush producer
	supervisor.OnShutdown("kafka-consumer", func(context.Context) error { return consumer.Close() })
	supervisor.OnShutdown("kafka-producer", func(context.Context) error { return producer.Close() })
	supervisor.OnShutdown("postgres", func(context.Context) error { return db.Close(database) })
	if metricsServer != nil {
		supervisor.OnShutdown("metrics-server", metricsServer.Shutdown)
	}
	if shutdownTracing != nil {
		supervisor.OnShutdown("tracing", shutdownTracing)
	}

	return supervisor.Run(ctx)
}
