// Package config предоставляет загрузку конфигурации из переменных окружения.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config содержит полную конфигурацию сервиса.
type Config struct {
	App       AppConfig
	HTTP      HTTPConfig
	Postgres  PostgresConfig
	Kafka     KafkaConfig
	JWT       JWTConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Jaeger    JaegerConfig
	Metrics   MetricsConfig
}

// AppConfig содержит общие настройки приложения.
type AppConfig struct {
	Name      string `env:"APP_NAME" envDefault:"staff-users"`
	Env       string `env:"APP_ENV" envDefault:"development"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"false"`
}

// HTTPConfig содержит настройки HTTP сервера.
// Имена переменных HOST/PORT совместимы с прежним деплоем.
type HTTPConfig struct {
	Host            string        `env:"HOST_STAFF_USERS" envDefault:"0.0.0.0"`
	Port            int           `env:"PORT_STAFF_USERS" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"10s"`
	IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Addr возвращает адрес HTTP сервера.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// PostgresConfig содержит настройки подключения к PostgreSQL.
// Пул соединений общий для HTTP обработчиков и воркера шины.
type PostgresConfig struct {
	URL             string        `env:"POSTGRES_URL_STAFF_USERS,required"`
	MaxOpenConns    int           `env:"POSTGRES_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"POSTGRES_MAX_IDLE_CONNS" envDefault:"10"`
	ConnMaxLifetime time.Duration `env:"POSTGRES_CONN_MAX_LIFETIME" envDefault:"5m"`
	QueryTimeout    time.Duration `env:"POSTGRES_QUERY_TIMEOUT" envDefault:"3s"`
}

// KafkaConfig содержит настройки подключения к Kafka.
// Автокоммит не настраивается: offset коммитится только после терминального шага обработки.
type KafkaConfig struct {
	Brokers          []string      `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	ConsumerGroup    string        `env:"KAFKA_CONSUMER_GROUP" envDefault:"consumer-group-a"`
	RequestTopic     string        `env:"KAFKA_REQUEST_TOPIC" envDefault:"post_get_user"`
	ResponseTopic    string        `env:"KAFKA_RESPONSE_TOPIC" envDefault:"response_user"`
	DLQTopic         string        `env:"KAFKA_DLQ_TOPIC"` // Пусто - DLQ отключена
	SessionTimeout   time.Duration `env:"KAFKA_SESSION_TIMEOUT" envDefault:"6s"`
	StartOffset      string        `env:"KAFKA_START_OFFSET" envDefault:"earliest"` // earliest | latest
	PublishTimeout   time.Duration `env:"KAFKA_PUBLISH_TIMEOUT" envDefault:"5s"`
	FlushTimeout     time.Duration `env:"KAFKA_FLUSH_TIMEOUT" envDefault:"1s"`
	EnsureTopics     bool          `env:"KAFKA_ENSURE_TOPICS" envDefault:"true"`
	RetryMaxInterval time.Duration `env:"KAFKA_RETRY_MAX_INTERVAL" envDefault:"30s"`
}

// JWTConfig содержит настройки проверки bearer токенов (HS256).
type JWTConfig struct {
	Secret string `env:"JWT_SECRET,required"`
	Issuer string `env:"JWT_ISSUER"` // Пусто - издатель не проверяется
}

// RedisConfig содержит настройки подключения к Redis.
type RedisConfig struct {
	Host     string `env:"REDIS_HOST" envDefault:"localhost"`
	Port     int    `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`

	// Лимитер выполняет одну короткую команду на запрос: таймауты малы,
	// чтобы при недоступном Redis запрос быстро уходил в fail-open.
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"20"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"500ms"`
	OpTimeout    time.Duration `env:"REDIS_OP_TIMEOUT" envDefault:"200ms"`
	MaxRetries   int           `env:"REDIS_MAX_RETRIES" envDefault:"1"`
}

// Addr возвращает адрес Redis сервера.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RateLimitConfig - настройки ограничения запросов к HTTP API.
type RateLimitConfig struct {
	Enabled       bool          `env:"RATE_LIMIT_ENABLED" envDefault:"false"`
	RequestsLimit int           `env:"RATE_LIMIT_REQUESTS" envDefault:"100"`
	Window        time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
}

// JaegerConfig содержит настройки трассировки Jaeger.
type JaegerConfig struct {
	Enabled  bool   `env:"JAEGER_ENABLED" envDefault:"false"`
	Host     string `env:"JAEGER_HOST" envDefault:"localhost"`
	OTLPPort int    `env:"JAEGER_OTLP_PORT" envDefault:"4317"` // OTLP gRPC порт
}

// OTLPEndpoint возвращает OTLP gRPC endpoint для Jaeger.
func (c JaegerConfig) OTLPEndpoint() string {
	return fmt.Sprintf("%s:%d", c.Host, c.OTLPPort)
}

// MetricsConfig содержит настройки Prometheus метрик.
type MetricsConfig struct {
	Enabled bool `env:"METRICS_ENABLED" envDefault:"true"`
	Port    int  `env:"METRICS_PORT" envDefault:"9090"`
}

// Addr возвращает адрес для Metrics HTTP сервера.
func (c MetricsConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Load загружает конфигурацию из переменных окружения.
// Опционально загружает .env файл, если он существует.
func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файл не найден)
	_ = godotenv.Load()

	return parse()
}

// LoadFromFile загружает конфигурацию из указанного .env файла.
func LoadFromFile(path string) (*Config, error) {
	if err := godotenv.Load(path); err != nil {
		return nil, fmt.Errorf("ошибка загрузки .env файла %s: %w", path, err)
	}

	return parse()
}

func parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("ошибка парсинга конфигурации: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate проверяет значения, которые env не умеет проверить тегами.
func (c *Config) validate() error {
	switch c.Kafka.StartOffset {
	case "earliest", "latest":
	default:
		return fmt.Errorf("KAFKA_START_OFFSET: ожидается earliest или latest, получено %q", c.Kafka.StartOffset)
	}
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS: список брокеров пуст")
	}
	return nil
}

// IsDevelopment возвращает true, если приложение запущено в development режиме.
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}
