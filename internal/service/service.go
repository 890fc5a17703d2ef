// Package service связывает приём событий, обработчик решений и хранилища настроек и чёрного списка.
package service

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/mmeshcher/autorefund/internal/model"
	"github.com/mmeshcher/autorefund/internal/settings"
)

// ErrQueueFull возвращается, если очередь событий переполнена.
var ErrQueueFull = errors.New("event queue is full")

// ErrStopped возвращается после остановки обработки событий.
var ErrStopped = errors.New("service stopped")

// Engine описывает обработчик событий площадки.
type Engine interface {
	Handle(ctx context.Context, ev model.Event) model.Outcome
}

// SettingsStore описывает хранилище настроек.
type SettingsStore interface {
	Snapshot() model.Settings
	Update(ctx context.Context, p settings.Patch) (model.Settings, error)
}

// BlacklistStore описывает чёрный список.
type BlacklistStore interface {
	List() []string
	Contains(username string) bool
	Add(ctx context.Context, username string) (bool, error)
	Remove(ctx context.Context, username string) (bool, error)
}

// Service принимает события в очередь и обрабатывает их по одному.
type Service struct {
	engine    Engine
	settings  SettingsStore
	blacklist BlacklistStore
	logger    *zap.Logger

	// mu защищает stopped и отправку в queue: после остановки в очередь ничего не попадает.
	mu      sync.Mutex
	stopped bool
	queue   chan model.Event
}

// NewService создаёт сервис с очередью событий размера queueSize.
func NewService(engine Engine, settings SettingsStore, blacklist BlacklistStore, queueSize int, logger *zap.Logger) *Service {
	return &Service{
		engine:    engine,
		settings:  settings,
		blacklist: blacklist,
		logger:    logger,
		queue:     make(chan model.Event, queueSize),
	}
}

// Submit ставит событие в очередь без ожидания.
func (s *Service) Submit(ev model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}

	select {
	case s.queue <- ev:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run обрабатывает события последовательно до отмены ctx. Перед возвратом
// обрабатывает события, уже стоящие в очереди. Начатая обработка события не прерывается отменой ctx.
func (s *Service) Run(ctx context.Context) {
	handleCtx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			s.stop()
			s.drain(handleCtx)
			s.logger.Info("event processing stopped")
			return
		case ev := <-s.queue:
			s.engine.Handle(handleCtx, ev)
		}
	}
}

func (s *Service) stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
}

func (s *Service) drain(ctx context.Context) {
	for {
		select {
		case ev := <-s.queue:
			s.engine.Handle(ctx, ev)
		default:
			return
		}
	}
}

// Settings возвращает текущие настройки.
func (s *Service) Settings() model.Settings {
	return s.settings.Snapshot()
}

// UpdateSettings применяет частичное изменение настроек.
func (s *Service) UpdateSettings(ctx context.Context, p settings.Patch) (model.Settings, error) {
	return s.settings.Update(ctx, p)
}

// Blacklist возвращает чёрный список.
func (s *Service) Blacklist() []string {
	return s.blacklist.List()
}

// AddToBlacklist вручную добавляет покупателя в чёрный список.
func (s *Service) AddToBlacklist(ctx context.Context, username string) (bool, error) {
	return s.blacklist.Add(ctx, username)
}

// RemoveFromBlacklist вручную удаляет покупателя из чёрного списка.
func (s *Service) RemoveFromBlacklist(ctx context.Context, username string) (bool, error) {
	return s.blacklist.Remove(ctx, username)
}
