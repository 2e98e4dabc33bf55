package kafka

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/segmentio/kafka-go"

	"example.com/staff-users/pkg/logger"
)

// TopicSpec описывает топик, который должен существовать к старту воркера.
type TopicSpec struct {
	Name              string
	NumPartitions     int
	ReplicationFactor int
}

// EnsureTopics создаёт недостающие топики через контроллер кластера.
// Уже существующие топики не считаются ошибкой.
func EnsureTopics(ctx context.Context, brokers []string, topics ...TopicSpec) error {
	if len(brokers) == 0 {
		return fmt.Errorf("не указаны брокеры Kafka")
	}

	conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return fmt.Errorf("подключение к брокеру %s: %w", brokers[0], err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("получение контроллера кластера: %w", err)
	}

	var dialer kafka.Dialer
	controllerConn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("подключение к контроллеру: %w", err)
	}
	defer controllerConn.Close()

	for _, t := range topics {
		if t.Name == "" {
			continue
		}

		cfg := kafka.TopicConfig{
			Topic:             t.Name,
			NumPartitions:     t.NumPartitions,
			ReplicationFactor: t.ReplicationFactor,
		}
		if cfg.NumPartitions <= 0 {
			cfg.NumPartitions = 1
		}
		if cfg.ReplicationFactor <= 0 {
			cfg.ReplicationFactor = 1
		}

		err := controllerConn.CreateTopics(cfg)
		if err != nil && !errors.Is(err, kafka.TopicAlreadyExists) {
			return fmt.Errorf("создание топика %s: %w", t.Name, err)
		}

		logger.Debug().
			Str("topic", t.Name).
			Int("partitions", cfg.NumPartitions).
			Msg("Топик Kafka готов")
	}

	return nil
}

// Ping проверяет, что хотя бы один брокер принимает соединения.
func Ping(ctx context.Context, brokers []string) error {
	var lastErr error
	for _, broker := range brokers {
		conn, err := kafka.DialContext(ctx, "tcp", broker)
		if err != nil {
			lastErr = err
			continue
		}
		_ = conn.Close()
		return nil
	}

	if lastErr == nil {
		return fmt.Errorf("не указаны брокеры Kafka")
	}
	return fmt.Errorf("брокеры Kafka недоступны: %w", lastErr)
}
