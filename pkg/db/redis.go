package db

import (
	"github.com/redis/go-redis/v9"

	"example.com/staff-users/pkg/config"
)

// ConnectRedis создаёт клиент Redis для rate limiter.
// Соединение ленивое: недоступный Redis не мешает старту, лимитер работает в режиме fail-open.
// Таймауты чтения и записи равны OpTimeout, так что зависший Redis
// задерживает HTTP-запрос не дольше OpTimeout*(MaxRetries+1).
func ConnectRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.OpTimeout,
		WriteTimeout: cfg.OpTimeout,
		PoolTimeout:  cfg.OpTimeout,
		MaxRetries:   cfg.MaxRetries,
	})
}
