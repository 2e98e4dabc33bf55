package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"example.com/staff-users/pkg/logger"
)

// ErrPublish возвращается, если брокер не подтвердил запись за PublishTimeout.
var ErrPublish = errors.New("ошибка публикации в Kafka")

const (
	defaultPublishTimeout = 5 * time.Second
	defaultFlushTimeout   = time.Second
)

// messageWriter - часть kafka.Writer, которой пользуется Producer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer отправляет сообщения в Kafka синхронно и ждёт подтверждения от всех in-sync реплик.
// Один Producer живёт всё время работы процесса и безопасен для конкурентного использования.
type Producer struct {
	writer messageWriter
	cfg    Config
}

// NewProducer создаёт новый Producer для отправки сообщений в Kafka.
func NewProducer(cfg Config) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("не указаны брокеры Kafka")
	}

	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = defaultPublishTimeout
	}
	if cfg.FlushTimeout <= 0 {
		cfg.FlushTimeout = defaultFlushTimeout
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{}, // Одинаковый ключ - одна партиция
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: cfg.PublishTimeout,
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}

	logger.Info().
		Strs("brokers", cfg.Brokers).
		Dur("publish_timeout", cfg.PublishTimeout).
		Msg("Создан Kafka Producer")

	return newProducer(writer, cfg), nil
}

func newProducer(w messageWriter, cfg Config) *Producer {
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = defaultPublishTimeout
	}
	if cfg.FlushTimeout <= 0 {
		cfg.FlushTimeout = defaultFlushTimeout
	}
	return &Producer{writer: w, cfg: cfg}
}

// Publish отправляет сообщение в топик и ждёт подтверждения брокера не дольше PublishTimeout.
// Стандартные headers (trace_id, correlation_id, timestamp) добавляются из context.
// Любая ошибка оборачивается в ErrPublish.
func (p *Producer) Publish(ctx context.Context, topic string, key, value []byte, extraHeaders map[string]string) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.PublishTimeout)
	defer cancel()

	msg := kafka.Message{
		Topic:   topic,
		Key:     key,
		Value:   value,
		Headers: buildHeaders(ctx, extraHeaders),
		Time:    time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		logger.Ctx(ctx).Error().
			Err(err).
			Str("target_topic", topic).
			Str("key", string(key)).
			Msg("Ошибка отправки сообщения в Kafka")
		return fmt.Errorf("%w: топик %s: %w", ErrPublish, topic, err)
	}

	logger.Ctx(ctx).Debug().
		Str("target_topic", topic).
		Str("key", string(key)).
		Msg("Сообщение отправлено в Kafka")

	return nil
}

// SendToDLQ копирует исходное сообщение в dead-letter топик с причиной ошибки в headers.
func (p *Producer) SendToDLQ(ctx context.Context, dlqTopic string, original *Message, processingErr error) error {
	headers := make(map[string]string, len(original.Headers)+2)
	for k, v := range original.Headers {
		headers[k] = v
	}
	headers[HeaderDLQError] = processingErr.Error()
	headers[HeaderDLQOriginalTopic] = original.Topic

	return p.Publish(ctx, dlqTopic, original.Key, original.Value, headers)
}

// buildHeaders собирает headers из context и дополнительных параметров.
// Значения из extra имеют приоритет над значениями из context.
func buildHeaders(ctx context.Context, extra map[string]string) []kafka.Header {
	values := make(map[string]string, 3+len(extra))

	if traceID := TraceIDFromContext(ctx); traceID != "" {
		values[HeaderTraceID] = traceID
	}
	if correlationID := CorrelationIDFromContext(ctx); correlationID != "" {
		values[HeaderCorrelationID] = correlationID
	}
	values[HeaderTimestamp] = time.Now().UTC().Format(time.RFC3339Nano)

	for k, v := range extra {
		values[k] = v
	}

	headers := make([]kafka.Header, 0, len(values))
	for k, v := range values {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	return headers
}

// Close сбрасывает буферы writer и закрывает соединения.
// Ждёт не дольше FlushTimeout, после чего возвращает ошибку.
func (p *Producer) Close() error {
	logger.Info().Msg("Закрытие Kafka Producer")

	done := make(chan error, 1)
	go func() {
		done <- p.writer.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.Error().Err(err).Msg("Ошибка при закрытии Kafka Producer")
			return fmt.Errorf("ошибка закрытия producer: %w", err)
		}
	case <-time.After(p.cfg.FlushTimeout):
		logger.Warn().
			Dur("flush_timeout", p.cfg.FlushTimeout).
			Msg("Kafka Producer не закрылся за отведённое время")
		return fmt.Errorf("ошибка закрытия producer: превышен таймаут %s", p.cfg.FlushTimeout)
	}

	logger.Info().Msg("Kafka Producer закрыт")
	return nil
}
