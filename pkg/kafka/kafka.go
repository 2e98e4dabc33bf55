// Package kafka предоставляет обёртки над kafka-go для request/response воркера шины.
// Включает Producer с подтверждением от всех реплик, Consumer с ручным коммитом
// offset и создание топиков при старте.
package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"example.com/staff-users/pkg/logger"
)

// Ключи для headers сообщений Kafka.
const (
	// HeaderTraceID - идентификатор трассировки для distributed tracing.
	HeaderTraceID = "trace_id"

	// HeaderCorrelationID - идентификатор корреляции для связи запроса и ответа.
	HeaderCorrelationID = "correlation_id"

	// HeaderTimestamp - временная метка создания сообщения.
	HeaderTimestamp = "timestamp"

	// HeaderDLQError - текст ошибки, из-за которой сообщение попало в DLQ.
	HeaderDLQError = "dlq_error"

	// HeaderDLQOriginalTopic - исходный топик сообщения в DLQ.
	HeaderDLQOriginalTopic = "dlq_original_topic"
)

// Значения StartOffset для новой consumer group.
const (
	OffsetEarliest = "earliest"
	OffsetLatest   = "latest"
)

// Config содержит настройки для подключения к Kafka.
type Config struct {
	// Brokers - список адресов брокеров Kafka.
	Brokers []string

	// ConsumerGroup - имя consumer group для Consumer.
	ConsumerGroup string

	// StartOffset - с какого offset читать, если у группы нет закоммиченного: earliest или latest.
	StartOffset string

	// SessionTimeout - таймаут сессии участника группы.
	SessionTimeout time.Duration

	// PublishTimeout - максимальное время ожидания подтверждения записи брокером.
	PublishTimeout time.Duration

	// FlushTimeout - сколько ждать закрытия writer при завершении.
	FlushTimeout time.Duration

	// RetryMaxInterval - потолок экспоненциальной задержки между повторами сообщения.
	RetryMaxInterval time.Duration
}

// Message представляет сообщение Kafka с метаданными.
type Message struct {
	Key       []byte
	Value     []byte
	Topic     string
	Partition int
	Offset    int64

	// Headers - заголовки сообщения (trace_id, correlation_id и т.д.).
	Headers map[string]string

	Time time.Time
}

// fromKafkaMessage конвертирует kafka.Message в Message.
func fromKafkaMessage(m kafka.Message) *Message {
	headers := make(map[string]string, len(m.Headers))
	for _, h := range m.Headers {
		headers[h.Key] = string(h.Value)
	}

	return &Message{
		Key:       m.Key,
		Value:     m.Value,
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Headers:   headers,
		Time:      m.Time,
	}
}

// kafkaPosition возвращает kafka.Message, достаточный для коммита offset.
func (m *Message) kafkaPosition() kafka.Message {
	return kafka.Message{
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
	}
}

// TraceIDFromContext извлекает trace_id из context.
// Делегирует в pkg/logger для единообразной работы с контекстом.
func TraceIDFromContext(ctx context.Context) string {
	return logger.TraceIDFromContext(ctx)
}

// CorrelationIDFromContext извлекает correlation_id из context.
func CorrelationIDFromContext(ctx context.Context) string {
	return logger.CorrelationIDFromContext(ctx)
}

// contextFromMessage создаёт context с trace_id/correlation_id из headers
// и логгером, привязанным к позиции сообщения.
func contextFromMessage(ctx context.Context, msg *Message) context.Context {
	ctx = logger.NewContextWithIDs(ctx, msg.Headers[HeaderTraceID], msg.Headers[HeaderCorrelationID])
	return logger.WithMessage(ctx, msg.Topic, msg.Partition, msg.Offset)
}
