package models

import "time"

// Типизированные записи на границе гейтвея: дальше по коду никакие
// сырые ответы биржи не ходят.

// ContractSpec — метаданные фьючерсного контракта.
type ContractSpec struct {
	Name         string  // "BTC_USDT"
	Symbol       string  // "BTC"
	Multiplier   float64 // quanto_multiplier: сколько базовой монеты в одном контракте
	OrderSizeMin int64
	OrderSizeMax int64
	LeverageMax  int
	LastPrice    float64
}

type Ticker struct {
	Contract        string
	Last            float64
	Volume24hSettle float64 // оборот за 24ч в валюте расчёта (USDT)
}

type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// LivePosition — живая позиция с биржи, не персистится.
// Size со знаком: >0 long, <0 short, 0 — позиции нет.
type LivePosition struct {
	Contract      string
	Symbol        string
	Size          int64
	Value         float64
	Leverage      float64
	UnrealizedPnl float64
}
