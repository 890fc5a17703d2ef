// Package notify формирует и отправляет уведомления оператору магазина.
package notify

import (
	"fmt"
	"html"

	"github.com/mmeshcher/autorefund/internal/model"
)

const prefix = "[AutoRefund]"

// Compose возвращает текст уведомления для исхода kind. Имя покупателя экранируется для HTML-разметки.
// Для неизвестного kind возвращает пустую строку.
func Compose(kind model.NotificationKind, username string) string {
	u := html.EscapeString(username)

	switch kind {
	case model.NotificationBlacklistedOnly:
		return fmt.Sprintf("%s Пользователь %s добавлен в ЧС", prefix, u)
	case model.NotificationRefundedAndBlacklisted:
		return fmt.Sprintf("%s\n<b>Возврат выполнен.</b>\n<i>Пользователь %s добавлен в ЧС</i>", prefix, u)
	case model.NotificationOrderBlockedRefund:
		return fmt.Sprintf("%s Пользователь %s из ЧС попытался оформить заказ. Выполнен автоматический возврат", prefix, u)
	}
	return ""
}
