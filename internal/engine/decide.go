package engine

import (
	"errors"
	"fmt"

	"github.com/mmeshcher/autorefund/internal/model"
	"github.com/mmeshcher/autorefund/internal/validation"
)

// ErrMalformedEvent возвращается, если в событии об отзыве нет номера заказа.
var ErrMalformedEvent = errors.New("malformed event: order id not found")

// ExtractOrderID извлекает номер заказа из текста события об отзыве.
func ExtractOrderID(text string) (string, error) {
	id, ok := validation.FindOrderID(text)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrMalformedEvent, text)
	}
	return id, nil
}

func skip(reason string) model.Decision {
	return model.Decision{Reason: reason}
}

// DecideFeedback решает, что делать с отзывом kind к заказу order.
// blacklisted отражает состояние покупателя до обработки события.
func DecideFeedback(s model.Settings, kind model.FeedbackKind, order model.Order, blacklisted bool) model.Decision {
	if kind == model.FeedbackDeleted {
		return decideDeleted(s, order, blacklisted)
	}
	if !kind.Valid() {
		return skip("not a feedback event")
	}

	if !s.WithinPrice(order.Sum) {
		return skip("order sum exceeds max price")
	}
	if order.Review == nil {
		return skip("order has no review")
	}
	if !s.StarFlag(order.Review.Stars) {
		return skip("refund disabled for rating")
	}

	d := model.Decision{Refund: true}
	if !blacklisted && s.BlockUser {
		d.Blacklist = true
		d.Message = true
		d.Notification = &model.Notification{
			Kind:     model.NotificationRefundedAndBlacklisted,
			Username: order.BuyerUsername,
		}
	}
	return d
}

func decideDeleted(s model.Settings, order model.Order, blacklisted bool) model.Decision {
	switch {
	case !s.FeedbackDeleteEnabled:
		return skip("feedback deletion trigger disabled")
	case !s.BlockUser:
		return skip("blacklisting disabled")
	case order.Status == model.OrderStatusRefunded:
		return skip("order already refunded")
	case !s.WithinPrice(order.Sum):
		return skip("order sum exceeds max price")
	case blacklisted:
		return skip("user already blacklisted")
	}

	return model.Decision{
		Blacklist: true,
		Message:   true,
		Notification: &model.Notification{
			Kind:     model.NotificationBlacklistedOnly,
			Username: order.BuyerUsername,
		},
	}
}

// DecideOrder решает, нужно ли вернуть средства за новый заказ покупателя из чёрного списка.
func DecideOrder(s model.Settings, ev model.OrderEvent, blacklisted bool) model.Decision {
	if !blacklisted {
		return skip("user not blacklisted")
	}
	if !s.WithinPrice(ev.Sum) {
		return skip("order sum exceeds max price")
	}

	return model.Decision{
		Refund:  true,
		Message: true,
		Notification: &model.Notification{
			Kind:     model.NotificationOrderBlockedRefund,
			Username: ev.BuyerUsername,
		},
	}
}
