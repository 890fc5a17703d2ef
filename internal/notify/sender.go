package notify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mmeshcher/autorefund/internal/model"
)

var (
	// ErrDisabled возвращается, если уведомления выключены в настройках.
	ErrDisabled = errors.New("notifications disabled")
	// ErrNoTarget возвращается, если получатель уведомлений не настроен.
	ErrNoTarget = errors.New("notification target not configured")
)

// Sink доставляет текст получателю target.
type Sink interface {
	Send(ctx context.Context, target int64, text string) error
}

// SettingsSource отдаёт текущие настройки.
type SettingsSource interface {
	Snapshot() model.Settings
}

// Sender отправляет уведомления с учётом настроек refund_notification и refund_notification_chat_id.
type Sender struct {
	sink     Sink
	settings SettingsSource
	logger   *zap.Logger
}

// NewSender создаёт отправителя уведомлений.
func NewSender(sink Sink, settings SettingsSource, logger *zap.Logger) *Sender {
	return &Sender{
		sink:     sink,
		settings: settings,
		logger:   logger,
	}
}

// Notify формирует и отправляет уведомление. Ошибка доставки только возвращается вызывающему,
// выполненные действия она не отменяет.
func (s *Sender) Notify(ctx context.Context, n model.Notification) error {
	cfg := s.settings.Snapshot()
	if !cfg.RefundNotification {
		return ErrDisabled
	}
	if cfg.RefundNotificationTarget == 0 {
		s.logger.Warn("notification target not configured")
		return ErrNoTarget
	}

	text := Compose(n.Kind, n.Username)
	if err := s.sink.Send(ctx, cfg.RefundNotificationTarget, text); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}

	s.logger.Debug("notification sent", zap.String("kind", string(n.Kind)), zap.String("username", n.Username))
	return nil
}
