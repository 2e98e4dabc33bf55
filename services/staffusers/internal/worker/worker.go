package worker

import (
	"context"
	"time"

	"example.com/staff-users/pkg/kafka"
	"example.com/staff-users/pkg/logger"
	"example.com/staff-users/pkg/metrics"
)

// defaultLagInterval - период выгрузки отставания consumer group в метрики.
const defaultLagInterval = 15 * time.Second

// MessageSource доставляет сообщения обработчику и коммитит offset по его решению.
// Реализуется *kafka.Consumer.
type MessageSource interface {
	Run(ctx context.Context, handler kafka.Handler) error
}

// LagSource сообщает отставание от конца топика. *kafka.Consumer его реализует.
type LagSource interface {
	Lag() int64
}

// Worker связывает источник сообщений с Processor.
type Worker struct {
	source      MessageSource
	processor   *Processor
	lagInterval time.Duration
}

// New создаёт воркер шины.
func New(source MessageSource, processor *Processor) *Worker {
	return &Worker{source: source, processor: processor, lagInterval: defaultLagInterval}
}

// Run блокируется до отмены ctx или фатальной ошибки источника.
// Ошибки отдельных сообщений воркер не останавливают.
func (w *Worker) Run(ctx context.Context) error {
	logger.Info().
		Str("request_topic", w.processor.cfg.RequestTopic).
		Str("response_topic", w.processor.cfg.ResponseTopic).
		Bool("dlq_enabled", w.processor.cfg.DLQTopic != "").
		Msg("Воркер шины запущен")

	lagCtx, stopLag := context.WithCancel(ctx)
	defer stopLag()
	if ls, ok := w.source.(LagSource); ok {
		go w.reportLag(lagCtx, ls)
	}

	err := w.source.Run(ctx, w.processor.Handle)

	logger.Info().Err(err).Msg("Воркер шины остановлен")
	return err
}

// reportLag пишет отставание в bus_consumer_lag сразу и далее каждые lagInterval.
func (w *Worker) reportLag(ctx context.Context, ls LagSource) {
	ticker := time.NewTicker(w.lagInterval)
	defer ticker.Stop()

	for {
		metrics.RecordConsumerLag(ls.Lag())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
