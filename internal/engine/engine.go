// Package engine принимает решения о возвратах и чёрном списке по событиям площадки
// и выполняет их через аккаунт магазина.
package engine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mmeshcher/autorefund/internal/model"
	"github.com/mmeshcher/autorefund/internal/notify"
)

// ErrUnknownEvent возвращается для событий, не являющихся FeedbackEvent или OrderEvent.
var ErrUnknownEvent = errors.New("unknown event type")

// Account описывает действия аккаунта магазина на площадке.
type Account interface {
	GetOrder(ctx context.Context, orderID string) (*model.Order, error)
	Refund(ctx context.Context, orderID string) error
	SendMessage(ctx context.Context, chatID int64, text string) error
	GetChatByName(ctx context.Context, username string) (*model.Chat, error)
}

// SettingsSource отдаёт текущие настройки.
type SettingsSource interface {
	Snapshot() model.Settings
}

// Blacklist описывает чёрный список покупателей.
type Blacklist interface {
	Contains(username string) bool
	Add(ctx context.Context, username string) (bool, error)
}

// Notifier отправляет уведомление оператору.
type Notifier interface {
	Notify(ctx context.Context, n model.Notification) error
}

// Engine обрабатывает события площадки.
type Engine struct {
	account   Account
	settings  SettingsSource
	blacklist Blacklist
	notifier  Notifier
	shopID    int64
	logger    *zap.Logger
}

// New создаёт обработчик событий. Сообщения аккаунта магазина shopID игнорируются.
// Нулевой shopID означает, что аккаунт не задан, и фильтр собственных сообщений выключен.
func New(account Account, settings SettingsSource, blacklist Blacklist, notifier Notifier, shopID int64, logger *zap.Logger) *Engine {
	return &Engine{
		account:   account,
		settings:  settings,
		blacklist: blacklist,
		notifier:  notifier,
		shopID:    shopID,
		logger:    logger,
	}
}

// target описывает адресата действий по одному событию.
type target struct {
	orderID  string
	username string
	// chatID равен 0, если чат нужно найти по имени покупателя.
	chatID int64
}

// Handle обрабатывает одно событие. Ошибки не выходят за пределы Handle: они пишутся в лог
// и возвращаются в Outcome.Err.
func (e *Engine) Handle(ctx context.Context, ev model.Event) model.Outcome {
	var out model.Outcome

	switch ev := ev.(type) {
	case model.FeedbackEvent:
		out = e.handleFeedback(ctx, ev)
	case model.OrderEvent:
		out = e.handleOrder(ctx, ev)
	default:
		out.Err = fmt.Errorf("%w: %T", ErrUnknownEvent, ev)
	}

	if out.Err != nil {
		e.logger.Error("event processing aborted", zap.Error(out.Err))
	}
	return out
}

func (e *Engine) handleFeedback(ctx context.Context, ev model.FeedbackEvent) model.Outcome {
	if !ev.Kind.Valid() {
		return model.Outcome{}
	}
	if e.shopID != 0 && ev.AuthorID == e.shopID {
		e.logger.Debug("ignoring own message", zap.Int64("chat_id", ev.ChatID))
		return model.Outcome{}
	}

	orderID, err := ExtractOrderID(ev.Text)
	if err != nil {
		return model.Outcome{Err: err}
	}

	cfg := e.settings.Snapshot()
	if ev.Kind == model.FeedbackDeleted && !cfg.FeedbackDeleteEnabled {
		e.logger.Debug("feedback deletion trigger disabled", zap.String("order_id", orderID))
		return model.Outcome{}
	}

	order, err := e.account.GetOrder(ctx, orderID)
	if err != nil {
		return model.Outcome{Err: fmt.Errorf("get order %s: %w", orderID, err)}
	}

	d := DecideFeedback(cfg, ev.Kind, *order, e.blacklist.Contains(order.BuyerUsername))
	if d.NoOp() {
		e.logger.Debug("no action",
			zap.String("order_id", orderID),
			zap.String("kind", string(ev.Kind)),
			zap.String("reason", d.Reason),
		)
		return model.Outcome{}
	}

	return e.execute(ctx, d, cfg.BlacklistMessage, target{
		orderID:  orderID,
		username: order.BuyerUsername,
		chatID:   ev.ChatID,
	})
}

func (e *Engine) handleOrder(ctx context.Context, ev model.OrderEvent) model.Outcome {
	cfg := e.settings.Snapshot()

	d := DecideOrder(cfg, ev, e.blacklist.Contains(ev.BuyerUsername))
	if d.NoOp() {
		return model.Outcome{}
	}

	return e.execute(ctx, d, cfg.BlacklistMessage, target{
		orderID:  ev.OrderID,
		username: ev.BuyerUsername,
	})
}

// execute выполняет решение. Возврат всегда идёт первым: неудачный возврат прерывает обработку,
// а неудачная запись чёрного списка возврат уже не отменит.
func (e *Engine) execute(ctx context.Context, d model.Decision, message string, t target) model.Outcome {
	var out model.Outcome
	log := e.logger.With(zap.String("order_id", t.orderID), zap.String("username", t.username))

	if d.Refund {
		if err := e.account.Refund(ctx, t.orderID); err != nil {
			out.Err = fmt.Errorf("refund order %s: %w", t.orderID, err)
			return out
		}
		out.Refunded = true
		log.Info("order refunded")
	}

	if d.Blacklist {
		added, err := e.blacklist.Add(ctx, t.username)
		if err != nil {
			log.Error("blacklist change not persisted", zap.Error(err))
		}
		if !added {
			log.Info("user already blacklisted")
			return out
		}
		out.Blacklisted = true
	}

	if d.Message {
		out.Messaged = e.sendMessage(ctx, log, t, message)
	}

	if d.Notification != nil {
		err := e.notifier.Notify(ctx, *d.Notification)
		switch {
		case err == nil:
			out.Notified = true
		case errors.Is(err, notify.ErrDisabled), errors.Is(err, notify.ErrNoTarget):
		default:
			log.Warn("notification not delivered", zap.Error(err))
		}
	}

	log.Info("event processed",
		zap.Bool("refunded", out.Refunded),
		zap.Bool("blacklisted", out.Blacklisted),
		zap.Bool("messaged", out.Messaged),
		zap.Bool("notified", out.Notified),
	)
	return out
}

func (e *Engine) sendMessage(ctx context.Context, log *zap.Logger, t target, message string) bool {
	chatID := t.chatID
	if chatID == 0 {
		chat, err := e.account.GetChatByName(ctx, t.username)
		if err != nil {
			log.Warn("chat lookup failed", zap.Error(err))
			return false
		}
		if chat == nil {
			log.Warn("chat not found")
			return false
		}
		chatID = chat.ID
	}

	if err := e.account.SendMessage(ctx, chatID, message); err != nil {
		log.Warn("message not sent", zap.Int64("chat_id", chatID), zap.Error(err))
		return false
	}
	return true
}
