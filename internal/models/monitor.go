package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type StrategyType string

const (
	StrategyBreak       StrategyType = "break"
	StrategyOscillation StrategyType = "oscillation"
)

type SyncStatus string

const (
	StatusWaiting SyncStatus = "waiting"
	StatusOpened  SyncStatus = "opened"
	StatusClosed  SyncStatus = "closed"
)

// PositionSide как в monitor_list: "long"/"short" или пустая строка,
// пока направление ещё не известно.
type PositionSide string

const (
	PosSideNone  PositionSide = ""
	PosSideLong  PositionSide = "long"
	PosSideShort PositionSide = "short"
)

// Monitor — строка monitor_list: намерение держать позицию по symbol
// на конкретном аккаунте. Уникальность: (account_id, symbol, strategy_type).
// Движок синхронизации двигает только sync_status/position_side/last_sync_time,
// остальные поля правит оператор через веб.
type Monitor struct {
	ID             int64
	AccountID      int64
	Symbol         string // без суффикса, контракт на бирже = symbol_USDT
	StrategyType   StrategyType
	AllocatedMoney decimal.Decimal // капитал на сделку, USDT
	Leverage       int
	TakeProfit     decimal.Decimal // абсолютный порог PnL в USDT
	SyncStatus     SyncStatus
	PositionSide   PositionSide
	IsActive       bool
	LastSyncTime   time.Time
}
