package app

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWorker блокируется до отмены ctx или до сигнала в stop.
type fakeWorker struct {
	stop    chan error
	started chan struct{}
	once    sync.Once
}

func newFakeWorker() *fakeWorker {
	return &fakeWorker{
		stop:    make(chan error, 1),
		started: make(chan struct{}),
	}
}

func (w *fakeWorker) Run(ctx context.Context) error {
	w.once.Do(func() { close(w.started) })
	select {
	case <-ctx.Done():
		return nil
	case err := <-w.stop:
		return err
	}
}

func newTestSupervisor(t *testing.T, worker Runner) (*Supervisor, string) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "pong")
	})

	s, err := New(Config{
		Server:          &http.Server{Handler: mux, ReadHeaderTimeout: time.Second},
		Listener:        ln,
		Worker:          worker,
		ShutdownTimeout: 2 * time.Second,
	})
	require.NoError(t, err)
	return s, "http://" + ln.Addr().String()
}

func runAsync(ctx context.Context, s *Supervisor) <-chan error {
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	return done
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("Supervisor не остановился")
		return nil
	}
}

func TestSupervisor_ServesAndStopsOnCancel(t *testing.T) {
	worker := newFakeWorker()
	s, baseURL := newTestSupervisor(t, worker)

	var released []string
	s.OnShutdown("consumer", func(ctx context.Context) error {
		released = append(released, "consumer")
		return nil
	})
	s.OnShutdown("producer", func(ctx context.Context) error {
		released = append(released, "producer")
		return errors.New("flush timeout")
	})
	s.OnShutdown("database", func(ctx context.Context) error {
		released = append(released, "database")
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, s)
	<-worker.started

	require.Eventually(t, func() bool {
		resp, err := http.Get(baseURL + "/ping")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, waitDone(t, done))

	// Ошибка одного ресурса не мешает освобождению остальных
	assert.Equal(t, []string{"consumer", "producer", "database"}, released)

	_, err := http.Get(baseURL + "/ping")
	assert.Error(t, err, "после остановки сервер не принимает соединения")
}

func TestSupervisor_WorkerFailureStopsServer(t *testing.T) {
	worker := newFakeWorker()
	s, baseURL := newTestSupervisor(t, worker)

	done := runAsync(context.Background(), s)
	<-worker.started

	brokerErr := errors.New("reader closed")
	worker.stop <- brokerErr

	err := waitDone(t, done)
	require.Error(t, err)
	assert.ErrorIs(t, err, brokerErr)

	_, err = http.Get(baseURL + "/ping")
	assert.Error(t, err)
}

func TestSupervisor_WorkerExitStopsServer(t *testing.T) {
	worker := newFakeWorker()
	s, _ := newTestSupervisor(t, worker)

	done := runAsync(context.Background(), s)
	<-worker.started

	worker.stop <- nil

	assert.NoError(t, waitDone(t, done))
}

func TestSupervisor_ServerFailureStopsWorker(t *testing.T) {
	worker := newFakeWorker()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	require.NoError(t, ln.Close())

	s, err := New(Config{
		Server:   &http.Server{Handler: http.NewServeMux(), ReadHeaderTimeout: time.Second},
		Listener: ln,
		Worker:   worker,
	})
	require.NoError(t, err)

	err = waitDone(t, runAsync(context.Background(), s))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP сервер")
}

func TestNew_Validation(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()

	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "без сервера", cfg: Config{Listener: ln, Worker: newFakeWorker()}},
		{name: "без listener", cfg: Config{Server: &http.Server{}, Worker: newFakeWorker()}},
		{name: "без воркера", cfg: Config{Server: &http.Server{}, Listener: ln}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.cfg)
			assert.Error(t, err)
			assert.Nil(t, s)
		})
	}

	s, err := New(Config{Server: &http.Server{}, Listener: ln, Worker: newFakeWorker()})
	require.NoError(t, err)
	assert.Equal(t, defaultShutdownTimeout, s.shutdownTimeout)
}
