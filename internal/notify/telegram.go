package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// botAPI описывает методы *tgbotapi.BotAPI, нужные TelegramSink.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSink отправляет уведомления через Telegram-бота в режиме HTML.
type TelegramSink struct {
	bot botAPI
}

// NewTelegramSink авторизует бота по токену.
func NewTelegramSink(token string, logger *zap.Logger) (*TelegramSink, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("authorize telegram bot: %w", err)
	}
	bot.Debug = false
	logger.Info("telegram bot authorized", zap.String("account", bot.Self.UserName))

	return &TelegramSink{bot: bot}, nil
}

// Send отправляет text в чат target.
func (t *TelegramSink) Send(ctx context.Context, target int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(target, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// LogSink пишет уведомления в лог. Используется, когда бот не настроен.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink создаёт LogSink.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Send записывает уведомление в лог.
func (l *LogSink) Send(ctx context.Context, target int64, text string) error {
	l.logger.Info("notification", zap.Int64("target", target), zap.String("text", text))
	return nil
}
