// Package worker реализует request/response воркер шины: получает запрос с
// user_id автора, подставляет имя из staff_users и публикует ответ.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"example.com/staff-users/pkg/kafka"
	"example.com/staff-users/pkg/logger"
	"example.com/staff-users/pkg/metrics"
	"example.com/staff-users/pkg/tracing"
	"example.com/staff-users/services/staffusers/internal/domain"
	"example.com/staff-users/services/staffusers/internal/envelope"
)

// Ключи конвертов и сообщений.
const (
	// RequestKey - внешний key конверта, который принимает воркер.
	RequestKey = "post_get_user"

	// ResponseKey - внешний key конверта ответа.
	ResponseKey = "register_landlords"

	// RoutingKey - ключ Kafka-сообщения ответа.
	RoutingKey = "key"
)

// NameResolver разрешает user_id в имя пользователя.
type NameResolver interface {
	ResolveName(ctx context.Context, userID string) (string, error)
}

// Publisher публикует сообщения в шину.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte, headers map[string]string) error
	SendToDLQ(ctx context.Context, dlqTopic string, original *kafka.Message, processingErr error) error
}

// Config - топики воркера.
type Config struct {
	RequestTopic  string
	ResponseTopic string
	DLQTopic      string // Пусто - poison-сообщения только логируются
}

// Processor обрабатывает одно сообщение запроса.
// Состояния: получено -> конверт разобран -> проверен key/топик -> разобран payload ->
// имя найдено -> payload преобразован -> ответ опубликован -> offset закоммичен.
type Processor struct {
	resolver  NameResolver
	publisher Publisher
	cfg       Config
	tracer    trace.Tracer
}

// NewProcessor создаёт обработчик запросов.
func NewProcessor(resolver NameResolver, publisher Publisher, cfg Config) *Processor {
	return &Processor{
		resolver:  resolver,
		publisher: publisher,
		cfg:       cfg,
		tracer:    tracing.Tracer("staffusers/worker"),
	}
}

// result - итог одной попытки обработки.
type result struct {
	outcome string
	err     error
}

// Handle обрабатывает сообщение и возвращает решение о коммите offset.
// Сигнатура совпадает с kafka.Handler.
func (p *Processor) Handle(ctx context.Context, msg *kafka.Message) kafka.Decision {
	start := time.Now()

	if logger.CorrelationIDFromContext(ctx) == "" {
		ctx = logger.WithCorrelationID(ctx, correlationID(msg))
	}

	ctx, span := p.tracer.Start(ctx, "staffusers.process_request",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination.name", msg.Topic),
			attribute.Int("messaging.kafka.destination.partition", msg.Partition),
			attribute.Int64("messaging.kafka.message.offset", msg.Offset),
		),
	)
	defer span.End()

	res := p.process(ctx, msg)
	metrics.RecordBusMessage(res.outcome, time.Since(start))
	span.SetAttributes(attribute.String("staffusers.outcome", res.outcome))

	switch res.outcome {
	case metrics.OutcomeRetry:
		span.SetStatus(codes.Error, res.err.Error())
		return kafka.Retry
	case metrics.OutcomePoison, metrics.OutcomeNotFound, metrics.OutcomeAmbiguous:
		span.RecordError(res.err)
		p.deadLetter(ctx, msg, res.err)
	}

	return kafka.Commit
}

func (p *Processor) process(ctx context.Context, msg *kafka.Message) result {
	log := logger.FromContext(ctx)

	env, err := envelope.Decode(msg.Value)
	if err != nil {
		log.Warn().Err(err).Msg("Некорректный конверт, сообщение пропущено")
		return result{outcome: metrics.OutcomePoison, err: err}
	}

	if env.Key != RequestKey || msg.Topic != p.cfg.RequestTopic {
		log.Debug().
			Str("envelope_key", env.Key).
			Msg("Сообщение не для этого воркера, пропущено")
		return result{outcome: metrics.OutcomeSkipped}
	}

	inner, err := envelope.ParseInner(env.Payload)
	if err != nil {
		log.Warn().Err(err).Msg("Некорректный payload запроса, сообщение пропущено")
		return result{outcome: metrics.OutcomePoison, err: err}
	}

	userID := inner.CreatedBy()
	log = log.With().Str("user_id", userID).Logger()

	name, err := p.resolver.ResolveName(ctx, userID)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		log.Warn().Msg("Пользователь не найден, сообщение пропущено")
		return result{outcome: metrics.OutcomeNotFound, err: err}
	case errors.Is(err, domain.ErrUserAmbiguous):
		log.Warn().Msg("Несколько пользователей с одним user_id, сообщение пропущено")
		return result{outcome: metrics.OutcomeAmbiguous, err: err}
	case err != nil:
		log.Error().Err(err).Msg("Хранилище недоступно, offset не коммитится")
		return result{outcome: metrics.OutcomeRetry, err: err}
	}

	inner.SetCreatedBy(name)
	payload, err := inner.Marshal()
	if err != nil {
		log.Warn().Err(err).Msg("Не удалось сериализовать payload ответа")
		return result{outcome: metrics.OutcomePoison, err: err}
	}

	out, err := envelope.Encode(envelope.Envelope{Key: ResponseKey, Payload: payload})
	if err != nil {
		log.Warn().Err(err).Msg("Не удалось собрать конверт ответа")
		return result{outcome: metrics.OutcomePoison, err: err}
	}

	err = p.publisher.Publish(ctx, p.cfg.ResponseTopic, []byte(RoutingKey), out, nil)
	metrics.RecordPublish(err)
	if err != nil {
		log.Error().Err(err).Msg("Ответ не опубликован, offset не коммитится")
		return result{outcome: metrics.OutcomeRetry, err: err}
	}

	log.Info().
		Str("response_topic", p.cfg.ResponseTopic).
		Msg("Ответ опубликован")
	return result{outcome: metrics.OutcomePublished}
}

// deadLetter копирует poison-сообщение в DLQ, если она настроена.
// Ошибка DLQ не мешает коммиту.
func (p *Processor) deadLetter(ctx context.Context, msg *kafka.Message, cause error) {
	if p.cfg.DLQTopic == "" || cause == nil {
		return
	}

	if err := p.publisher.SendToDLQ(ctx, p.cfg.DLQTopic, msg, cause); err != nil {
		logger.Ctx(ctx).Error().
			Err(err).
			Str("dlq_topic", p.cfg.DLQTopic).
			Msg("Ошибка отправки в DLQ")
	}
}

// correlationID детерминирован для позиции сообщения,
// поэтому повторы одного сообщения получают один и тот же идентификатор.
func correlationID(msg *kafka.Message) string {
	position := fmt.Sprintf("%s/%d/%d", msg.Topic, msg.Partition, msg.Offset)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(position)).String()
}
