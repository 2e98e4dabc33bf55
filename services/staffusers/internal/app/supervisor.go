// Package app собирает долгоживущие задачи сервиса и управляет их жизненным циклом.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"example.com/staff-users/pkg/logger"
)

const defaultShutdownTimeout = 10 * time.Second

// Runner - долгоживущая задача, которая блокируется до отмены ctx.
// Реализуется *worker.Worker.
type Runner interface {
	Run(ctx context.Context) error
}

// Config - параметры Supervisor.
type Config struct {
	Server          *http.Server
	Listener        net.Listener
	Worker          Runner
	ShutdownTimeout time.Duration // Время на остановку HTTP сервера и освобождение ресурсов
}

type closer struct {
	name string
	fn   func(ctx context.Context) error
}

// Supervisor запускает HTTP сервер и воркер шины параллельно.
// Завершение любого из них (ошибкой или штатно) останавливает второй.
type Supervisor struct {
	server          *http.Server
	listener        net.Listener
	worker          Runner
	shutdownTimeout time.Duration
	closers         []closer
}

// New создаёт Supervisor.
func New(cfg Config) (*Supervisor, error) {
	if cfg.Server == nil || cfg.Listener == nil {
		return nil, errors.New("не задан HTTP сервер или listener")
	}
	if cfg.Worker == nil {
		return nil, errors.New("не задан воркер шины")
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	return &Supervisor{
		server:          cfg.Server,
		listener:        cfg.Listener,
		worker:          cfg.Worker,
		shutdownTimeout: cfg.ShutdownTimeout,
	}, nil
}

// OnShutdown регистрирует освобождение ресурса после остановки задач.
// Ресурсы освобождаются в порядке регистрации: consumer, producer, база.
func (s *Supervisor) OnShutdown(name string, fn func(ctx context.Context) error) {
	s.closers = append(s.closers, closer{name: name, fn: fn})
}

// Run блокируется до отмены ctx или завершения одной из задач.
// Возвращает первую ошибку задач; nil при штатной остановке.
func (s *Supervisor) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()

		logger.Info().Str("addr", s.listener.Addr().String()).Msg("HTTP сервер запущен")
		if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP сервер: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.WithoutCancel(gctx), s.shutdownTimeout)
		defer shutdownCancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("остановка HTTP сервера: %w", err)
		}
		logger.Info().Msg("HTTP сервер остановлен")
		return nil
	})

	g.Go(func() error {
		defer cancel()

		if err := s.worker.Run(gctx); err != nil {
			return fmt.Errorf("воркер шины: %w", err)
		}
		return nil
	})

	err := g.Wait()
	if err != nil {
		logger.Error().Err(err).Msg("Сервис остановлен с ошибкой")
	}

	s.release()
	return err
}

func (s *Supervisor) release() {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	for _, c := range s.closers {
		if err := c.fn(ctx); err != nil {
			logger.Error().Err(err).Str("resource", c.name).Msg("Ошибка освобождения ресурса")
			continue
		}
		logger.Debug().Str("resource", c.name).Msg("Ресурс освобождён")
	}
}
