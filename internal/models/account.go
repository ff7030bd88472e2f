package models

import "strings"

// Account — торговый аккаунт из acct_info с API-ключами биржи.
// Ключи живут только внутри гейтвея, в логи — только через Masked().
type Account struct {
	ID        int64
	Name      string
	APIKey    string
	APISecret string
}

// Masked возвращает ключ со звёздочками для логов.
func Masked(s string) string {
	if s == "" {
		return ""
	}
	return strings.Repeat("*", len(s))
}
