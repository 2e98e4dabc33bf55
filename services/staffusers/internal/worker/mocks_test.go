package worker

import (
	"bytes"
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"

	"example.com/staff-users/pkg/kafka"
	"example.com/staff-users/pkg/logger"
)

// =============================================================================
// Моки для тестов воркера
// =============================================================================

// mockResolver - мок NameResolver.
type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) ResolveName(ctx context.Context, userID string) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

// mockPublisher - мок Publisher.
type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, topic string, key, value []byte, headers map[string]string) error {
	args := m.Called(ctx, topic, key, value, headers)
	return args.Error(0)
}

func (m *mockPublisher) SendToDLQ(ctx context.Context, dlqTopic string, original *kafka.Message, processingErr error) error {
	args := m.Called(ctx, dlqTopic, original, processingErr)
	return args.Error(0)
}

// fakeSource - источник сообщений, который ведёт журнал событий вместо Kafka.
// Retry повторяет сообщение не более maxAttempts раз и не коммитит его.
type fakeSource struct {
	msgs        []*kafka.Message
	maxAttempts int
	events      *[]string
}

func (s *fakeSource) Run(ctx context.Context, handler kafka.Handler) error {
	for _, msg := range s.msgs {
		for attempt := 0; attempt < s.maxAttempts; attempt++ {
			if handler(ctx, msg) == kafka.Commit {
				*s.events = append(*s.events, "commit")
				break
			}
			*s.events = append(*s.events, "retry")
		}
	}
	return nil
}

// laggingSource - fakeSource, который ещё и сообщает отставание.
// Run держит воркер до отмены ctx, чтобы успела сработать выгрузка метрики.
type laggingSource struct {
	lag atomic.Int64
}

func (s *laggingSource) Run(ctx context.Context, _ kafka.Handler) error {
	<-ctx.Done()
	return nil
}

func (s *laggingSource) Lag() int64 {
	return s.lag.Load()
}

// captureLogs перенаправляет глобальный логгер в буфер на время теста.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	prev := logger.Logger()
	logger.SetGlobalLogger(zerolog.New(&buf).Level(zerolog.DebugLevel))
	t.Cleanup(func() { logger.SetGlobalLogger(prev) })

	return &buf
}

func countLevel(buf *bytes.Buffer, level string) int {
	return strings.Count(buf.String(), `"level":"`+level+`"`)
}
