// Package model содержит доменные сущности сервиса автовозвратов.
package model

import "github.com/govalues/decimal"

// DefaultBlacklistMessage отправляется покупателю при добавлении в чёрный список, если текст не настроен.
const DefaultBlacklistMessage = "Вы в черном списке магазина. ❌"

// Settings описывает политику автовозвратов магазина.
type Settings struct {
	// StarEnabled[i] отвечает за оценку i+1.
	StarEnabled              [5]bool
	MaxPrice                 decimal.Decimal
	BlockUser                bool
	RefundNotification       bool
	FeedbackDeleteEnabled    bool
	RefundNotificationTarget int64
	BlacklistMessage         string
}

// DefaultSettings возвращает настройки по умолчанию.
func DefaultSettings() Settings {
	return Settings{
		MaxPrice:         decimal.MustParse("1"),
		BlockUser:        true,
		BlacklistMessage: DefaultBlacklistMessage,
	}
}

// StarFlag возвращает признак возврата для оценки stars. Для оценок вне 1..5 возвращает false.
func (s Settings) StarFlag(stars int) bool {
	if stars < 1 || stars > 5 {
		return false
	}
	return s.StarEnabled[stars-1]
}

// WithinPrice сообщает, что сумма не превышает порог max_price.
func (s Settings) WithinPrice(sum decimal.Decimal) bool {
	return sum.Cmp(s.MaxPrice) <= 0
}

// OrderStatus описывает статус заказа на площадке.
type OrderStatus string

const (
	OrderStatusPaid     OrderStatus = "PAID"
	OrderStatusClosed   OrderStatus = "CLOSED"
	OrderStatusRefunded OrderStatus = "REFUNDED"
)

// Review описывает отзыв покупателя к заказу.
type Review struct {
	Stars int
	Text  string
}

// Order описывает снимок заказа, полученный от площадки.
type Order struct {
	ID            string
	Status        OrderStatus
	Sum           decimal.Decimal
	BuyerUsername string
	Review        *Review
}

// Chat описывает диалог с покупателем.
type Chat struct {
	ID   int64
	Name string
}
