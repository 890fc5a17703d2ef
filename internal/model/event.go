package model

import "github.com/govalues/decimal"

// FeedbackKind описывает тип изменения отзыва.
type FeedbackKind string

const (
	FeedbackNew     FeedbackKind = "NEW"
	FeedbackChanged FeedbackKind = "CHANGED"
	FeedbackDeleted FeedbackKind = "DELETED"
)

// Valid сообщает, что тип относится к событиям об отзывах.
func (k FeedbackKind) Valid() bool {
	switch k {
	case FeedbackNew, FeedbackChanged, FeedbackDeleted:
		return true
	}
	return false
}

// Event описывает событие площадки. Реализуется только FeedbackEvent и OrderEvent.
type Event interface {
	event()
}

// FeedbackEvent описывает системное сообщение площадки о новом, изменённом или удалённом отзыве.
// Номер заказа содержится в тексте сообщения в виде #XXXXXXXX.
type FeedbackEvent struct {
	Kind     FeedbackKind
	AuthorID int64
	ChatID   int64
	Text     string
}

// OrderEvent описывает новый заказ.
type OrderEvent struct {
	OrderID       string
	BuyerUsername string
	Sum           decimal.Decimal
}

func (FeedbackEvent) event() {}
func (OrderEvent) event()    {}
