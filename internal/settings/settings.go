// Package settings хранит политику автовозвратов и сохраняет её при каждом изменении.
package settings

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/govalues/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/autorefund/internal/model"
)

var (
	// ErrNotFound возвращается хранилищем, если сохранённых настроек ещё нет.
	ErrNotFound = errors.New("settings not found")
	// ErrNegativePrice возвращается при попытке установить отрицательную максимальную сумму.
	ErrNegativePrice = errors.New("max price must not be negative")
	// ErrInvalidStar возвращается для оценки вне диапазона 1..5.
	ErrInvalidStar = errors.New("stars must be within 1..5")
	// ErrNotPersisted возвращается, если изменение применено в памяти, но не сохранено.
	ErrNotPersisted = errors.New("settings not persisted")
)

// Persister описывает долговременное хранилище настроек.
type Persister interface {
	LoadSettings(ctx context.Context) (model.Settings, error)
	SaveSettings(ctx context.Context, s model.Settings) error
}

// Patch содержит частичное изменение настроек. Nil-поля не меняются.
type Patch struct {
	Stars                    map[int]bool
	MaxPrice                 *decimal.Decimal
	BlockUser                *bool
	RefundNotification       *bool
	FeedbackDeleteEnabled    *bool
	RefundNotificationTarget *int64
	BlacklistMessage         *string
}

// Store держит текущие настройки процесса.
type Store struct {
	mu        sync.RWMutex
	current   model.Settings
	persister Persister
	logger    *zap.Logger
}

// Load читает настройки из хранилища. Отсутствующие или повреждённые настройки
// заменяются значениями по умолчанию, которые сразу сохраняются.
func Load(ctx context.Context, p Persister, logger *zap.Logger) *Store {
	s := &Store{persister: p, logger: logger}

	loaded, err := p.LoadSettings(ctx)
	switch {
	case err == nil && validate(loaded) == nil:
		s.current = loaded
		logger.Info("settings loaded")
		return s
	case err == nil:
		logger.Error("stored settings are invalid, resetting to defaults", zap.Error(validate(loaded)))
	case errors.Is(err, ErrNotFound):
		logger.Info("settings not found, using defaults")
	default:
		logger.Error("failed to load settings, using defaults", zap.Error(err))
	}

	s.current = model.DefaultSettings()
	if err := p.SaveSettings(ctx, s.current); err != nil {
		logger.Error("failed to save default settings", zap.Error(err))
	}
	return s
}

func validate(s model.Settings) error {
	if s.MaxPrice.IsNeg() {
		return ErrNegativePrice
	}
	return nil
}

// Snapshot возвращает копию текущих настроек.
func (s *Store) Snapshot() model.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// ShouldRefundForStars сообщает, включён ли возврат для оценки stars.
func (s *Store) ShouldRefundForStars(stars int) bool {
	return s.Snapshot().StarFlag(stars)
}

// Update применяет изменение и сохраняет настройки. Ошибка валидации не меняет состояние.
// Ошибка сохранения оборачивает ErrNotPersisted: в памяти изменение остаётся.
func (s *Store) Update(ctx context.Context, p Patch) (model.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current
	for stars, enabled := range p.Stars {
		if stars < 1 || stars > 5 {
			return s.current, fmt.Errorf("%w: %d", ErrInvalidStar, stars)
		}
		next.StarEnabled[stars-1] = enabled
	}
	if p.MaxPrice != nil {
		next.MaxPrice = *p.MaxPrice
	}
	if p.BlockUser != nil {
		next.BlockUser = *p.BlockUser
	}
	if p.RefundNotification != nil {
		next.RefundNotification = *p.RefundNotification
	}
	if p.FeedbackDeleteEnabled != nil {
		next.FeedbackDeleteEnabled = *p.FeedbackDeleteEnabled
	}
	if p.RefundNotificationTarget != nil {
		next.RefundNotificationTarget = *p.RefundNotificationTarget
	}
	if p.BlacklistMessage != nil {
		next.BlacklistMessage = *p.BlacklistMessage
	}

	if err := validate(next); err != nil {
		return s.current, err
	}

	s.current = next
	if err := s.persister.SaveSettings(ctx, next); err != nil {
		s.logger.Error("failed to save settings, change kept in memory only", zap.Error(err))
		return next, fmt.Errorf("%w: %w", ErrNotPersisted, err)
	}
	s.logger.Debug("settings saved")
	return next, nil
}
