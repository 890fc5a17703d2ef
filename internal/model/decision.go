package model

// NotificationKind описывает тип уведомления оператору.
type NotificationKind string

const (
	NotificationBlacklistedOnly        NotificationKind = "BLACKLISTED_ONLY"
	NotificationRefundedAndBlacklisted NotificationKind = "REFUNDED_AND_BLACKLISTED"
	NotificationOrderBlockedRefund     NotificationKind = "ORDER_BLOCKED_REFUND"
)

// Notification описывает уведомление оператору о покупателе.
type Notification struct {
	Kind     NotificationKind
	Username string
}

// Decision содержит решение по одному событию. Не сохраняется.
type Decision struct {
	Refund       bool
	Blacklist    bool
	Message      bool
	Notification *Notification
	// Reason поясняет отказ от действий, пусто если хотя бы одно действие выбрано.
	Reason string
}

// NoOp сообщает, что решение не требует никаких действий.
func (d Decision) NoOp() bool {
	return !d.Refund && !d.Blacklist && !d.Message && d.Notification == nil
}

// Outcome описывает фактически выполненные действия по событию.
type Outcome struct {
	Refunded    bool
	Blacklisted bool
	Messaged    bool
	Notified    bool
	Err         error
}
