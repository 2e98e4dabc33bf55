package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"

	"example.com/staff-users/pkg/logger"
)

// Decision - решение обработчика о судьбе сообщения.
type Decision int

const (
	// Commit - сообщение обработано (успешно или как poison), offset можно коммитить.
	Commit Decision = iota

	// Retry - временная ошибка, offset не коммитится, сообщение обрабатывается повторно.
	Retry
)

func (d Decision) String() string {
	switch d {
	case Commit:
		return "commit"
	case Retry:
		return "retry"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// Handler обрабатывает одно сообщение.
// Получает context с trace_id/correlation_id из headers и логгером с позицией сообщения.
type Handler func(ctx context.Context, msg *Message) Decision

// ErrReaderClosed возвращается из Run, если reader был закрыт до отмены context.
var ErrReaderClosed = errors.New("kafka reader закрыт")

const (
	pollErrorDelay = 500 * time.Millisecond
	commitTimeout  = 5 * time.Second

	defaultRetryInitialInterval = 200 * time.Millisecond
	defaultRetryMaxInterval     = 30 * time.Second
)

// messageReader - часть kafka.Reader, которой пользуется Consumer.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Stats() kafka.ReaderStats
	Close() error
}

// Consumer читает сообщения из Kafka в составе consumer group и передаёт их обработчику
// строго по одному. Offset коммитится синхронно только после решения Commit.
type Consumer struct {
	reader     messageReader
	topic      string
	newBackOff func() backoff.BackOff
	pollDelay  time.Duration
}

// NewConsumer создаёт Consumer для чтения топика в составе группы cfg.ConsumerGroup.
// Автокоммит выключен: CommitInterval = 0 делает CommitMessages синхронным.
func NewConsumer(cfg Config, topic string) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("не указаны брокеры Kafka")
	}

	if topic == "" {
		return nil, fmt.Errorf("не указан топик")
	}

	if cfg.ConsumerGroup == "" {
		return nil, fmt.Errorf("не указан group ID")
	}

	startOffset := kafka.FirstOffset
	if cfg.StartOffset == OffsetLatest {
		startOffset = kafka.LastOffset
	}

	readerCfg := kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          topic,
		GroupID:        cfg.ConsumerGroup,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB максимум
		MaxWait:        100 * time.Millisecond,
		CommitInterval: 0,
		StartOffset:    startOffset,
		Logger:         kafka.LoggerFunc(logReaderEvent),
		ErrorLogger:    kafka.LoggerFunc(logReaderError),
	}
	if cfg.SessionTimeout > 0 {
		readerCfg.SessionTimeout = cfg.SessionTimeout
	}

	reader := kafka.NewReader(readerCfg)

	logger.Info().
		Strs("brokers", cfg.Brokers).
		Str("topic", topic).
		Str("group_id", cfg.ConsumerGroup).
		Str("start_offset", cfg.StartOffset).
		Msg("Создан Kafka Consumer")

	return newConsumer(reader, topic, cfg.RetryMaxInterval), nil
}

func newConsumer(r messageReader, topic string, retryMaxInterval time.Duration) *Consumer {
	if retryMaxInterval <= 0 {
		retryMaxInterval = defaultRetryMaxInterval
	}

	return &Consumer{
		reader: r,
		topic:  topic,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = defaultRetryInitialInterval
			b.MaxInterval = retryMaxInterval
			b.MaxElapsedTime = 0 // Повторяем, пока не отменят context
			b.Reset()
			return b
		},
		pollDelay: pollErrorDelay,
	}
}

// Run читает сообщения и передаёт их handler, пока не отменён ctx.
// При отмене ctx возвращает nil: незакоммиченное сообщение будет прочитано повторно
// после перезапуска или ребалансировки.
//
// Решение Retry приводит к повторной обработке того же сообщения с экспоненциальной
// задержкой, поэтому порядок внутри партиции не нарушается.
func (c *Consumer) Run(ctx context.Context, handler Handler) error {
	logger.Info().
		Str("topic", c.topic).
		Msg("Запуск чтения сообщений из Kafka")

	for {
		if ctx.Err() != nil {
			logger.Info().
				Str("topic", c.topic).
				Msg("Получен сигнал завершения, остановка Consumer")
			return nil
		}

		kafkaMsg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			if errors.Is(err, io.EOF) {
				return ErrReaderClosed
			}
			logger.Error().
				Err(err).
				Str("topic", c.topic).
				Msg("Ошибка чтения сообщения из Kafka")
			c.sleep(ctx, c.pollDelay)
			continue
		}

		msg := fromKafkaMessage(kafkaMsg)
		if !c.handle(ctx, msg, handler) {
			// Context отменён во время повторов, offset не коммитим.
			continue
		}

		c.commit(ctx, msg)
	}
}

// handle вызывает handler до решения Commit.
// Возвращает false, если ctx отменили раньше.
func (c *Consumer) handle(ctx context.Context, msg *Message, handler Handler) bool {
	msgCtx := contextFromMessage(ctx, msg)
	log := logger.FromContext(msgCtx)

	log.Debug().
		Str("key", string(msg.Key)).
		Msg("Получено сообщение из Kafka")

	b := backoff.WithContext(c.newBackOff(), ctx)
	for attempt := 1; ; attempt++ {
		if handler(msgCtx, msg) == Commit {
			return true
		}

		delay := b.NextBackOff()
		if delay == backoff.Stop {
			return false
		}

		log.Warn().
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("Повторная обработка сообщения после временной ошибки")

		if !c.sleep(ctx, delay) {
			return false
		}
	}
}

// commit синхронно коммитит offset сообщения.
// Коммит выполняется даже если ctx уже отменён: сообщение обработано полностью.
func (c *Consumer) commit(ctx context.Context, msg *Message) {
	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), commitTimeout)
	defer cancel()

	if err := c.reader.CommitMessages(commitCtx, msg.kafkaPosition()); err != nil {
		logger.Error().
			Err(err).
			Str("topic", msg.Topic).
			Int("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Msg("Ошибка коммита offset")
	}
}

// sleep ждёт d или отмены ctx. Возвращает false при отмене.
func (c *Consumer) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Close закрывает Consumer и покидает consumer group.
func (c *Consumer) Close() error {
	logger.Info().
		Str("topic", c.topic).
		Msg("Закрытие Kafka Consumer")

	if err := c.reader.Close(); err != nil {
		logger.Error().
			Err(err).
			Str("topic", c.topic).
			Msg("Ошибка при закрытии Kafka Consumer")
		return fmt.Errorf("ошибка закрытия consumer: %w", err)
	}

	logger.Info().
		Str("topic", c.topic).
		Msg("Kafka Consumer закрыт")
	return nil
}

// Lag возвращает текущее отставание Consumer от конца топика.
// Воркер периодически выгружает его в метрику bus_consumer_lag.
func (c *Consumer) Lag() int64 {
	return c.reader.Stats().Lag
}

// logReaderEvent пишет внутренние события reader.
// События группы (присоединение, назначение партиций) поднимаются до Info.
func logReaderEvent(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "assign") || strings.Contains(lower, "joined group") || strings.Contains(lower, "generation") {
		logger.Info().Str("component", "kafka-reader").Msg(msg)
		return
	}
	logger.Debug().Str("component", "kafka-reader").Msg(msg)
}

func logReaderError(format string, args ...interface{}) {
	logger.Error().Str("component", "kafka-reader").Msg(fmt.Sprintf(format, args...))
}
