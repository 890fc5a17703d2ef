// Package validation содержит функции валидации входных данных.
package validation

import (
	"regexp"
	"unicode/utf8"
)

// orderIDPattern — номер заказа площадки: решётка и восемь заглавных латинских букв или цифр.
var orderIDPattern = regexp.MustCompile(`#([A-Z0-9]{8})`)

var strictOrderID = regexp.MustCompile(`^[A-Z0-9]{8}$`)

// usernamePattern задаёт допустимое имя покупателя на площадке.
var usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}_.\-]+$`)

const maxUsernameLen = 64

// FindOrderID извлекает первый номер заказа вида #XXXXXXXX из текста и возвращает его без решётки.
func FindOrderID(text string) (string, bool) {
	m := orderIDPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// IsValidOrderID проверяет номер заказа без решётки.
func IsValidOrderID(id string) bool {
	return strictOrderID.MatchString(id)
}

// IsValidUsername проверяет имя покупателя.
func IsValidUsername(username string) bool {
	if username == "" || utf8.RuneCountInString(username) > maxUsernameLen {
		return false
	}
	return usernamePattern.MatchString(username)
}
