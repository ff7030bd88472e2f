package helper

import "strings"

const contractSuffix = "_USDT"

// Contract: "BTC" -> "BTC_USDT". В monitor_list символы голые,
// на бирже — с суффиксом расчётной валюты.
func Contract(symbol string) string {
	if strings.HasSuffix(symbol, contractSuffix) {
		return symbol
	}
	return symbol + contractSuffix
}

// SymbolOf: "BTC_USDT" -> "BTC".
func SymbolOf(contract string) string {
	return strings.TrimSuffix(contract, contractSuffix)
}
