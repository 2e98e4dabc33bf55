// Package healthcheck предоставляет функции проверки готовности сервиса.
// Используется проверкой готовности (/readyz).
package healthcheck

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"example.com/staff-users/pkg/kafka"
)

// Check - одна проверка готовности.
type Check func(ctx context.Context) error

// CheckPostgres проверяет доступность Postgres через GORM.
func CheckPostgres(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	return nil
}

// CheckRedis проверяет доступность Redis.
func CheckRedis(ctx context.Context, rdb *redis.Client) error {
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// CheckKafka проверяет, что хотя бы один брокер принимает соединения.
func CheckKafka(ctx context.Context, brokers []string) error {
	if err := kafka.Ping(ctx, brokers); err != nil {
		return fmt.Errorf("kafka: %w", err)
	}
	return nil
}

// Composite объединяет несколько проверок в одну.
// Возвращает первую ошибку или nil если все проверки пройдены.
func Composite(checks ...Check) Check {
	return func(ctx context.Context) error {
		for _, check := range checks {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}
