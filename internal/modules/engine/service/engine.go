package service

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"auto_trader/internal/models"
	"auto_trader/pkg/logger"
)

// Registry — персистентные намерения (monitor_list + acct_info).
type Registry interface {
	ActiveAccounts(ctx context.Context) ([]models.Account, error)
	ListActive(ctx context.Context, accountID int64) ([]models.Monitor, error)
	MarkOpened(ctx context.Context, monitorID int64, side models.PositionSide) error
	MarkClosed(ctx context.Context, monitorID int64) error
	SetPositionSide(ctx context.Context, monitorID int64, side models.PositionSide) error
	Touch(ctx context.Context, monitorID int64) error
}

// RangeStore — свежие снапшоты диапазонов для сигналов.
type RangeStore interface {
	FreshSnapshots(ctx context.Context, staleAfter time.Duration) (map[string]models.Snapshot, error)
}

// ExchangeClient — клиент биржи, привязанный к одному аккаунту.
type ExchangeClient interface {
	Positions(ctx context.Context, force bool) ([]models.LivePosition, error)
	OpenPosition(ctx context.Context, symbol string, side models.PositionSide,
		capital decimal.Decimal, leverage int) (bool, error)
	ClosePosition(ctx context.Context, symbol string) (bool, error)
}

// ClientProvider раздаёт клиентов по аккаунтам.
type ClientProvider interface {
	ClientFor(acct models.Account) ExchangeClient
}

// Notifier — событийные уведомления (телеграм либо stdout).
type Notifier interface {
	Sendf(format string, args ...any)
}

// Engine сверяет мониторы с живыми позициями биржи и двигает их по
// waiting -> opened -> closed. Каждый прогон независим: всё состояние
// перечитывается из базы и с биржи, в памяти между тиками ничего не живёт.
type Engine struct {
	registry Registry
	ranges   RangeStore
	clients  ClientProvider
	notify   Notifier

	staleAfter  time.Duration
	openedGrace time.Duration

	now func() time.Time
}

type Deps struct {
	Registry    Registry
	Ranges      RangeStore
	Clients     ClientProvider
	Notify      Notifier
	StaleAfter  time.Duration
	OpenedGrace time.Duration
}

func New(d Deps) *Engine {
	return &Engine{
		registry:    d.Registry,
		ranges:      d.Ranges,
		clients:     d.Clients,
		notify:      d.Notify,
		staleAfter:  d.StaleAfter,
		openedGrace: d.OpenedGrace,
		now:         time.Now,
	}
}

// RunOnce — один полный прогон: аккаунты параллельно, паника в одном
// аккаунте не задевает остальных и не роняет процесс.
func (e *Engine) RunOnce(ctx context.Context) error {
	accounts, err := e.registry.ActiveAccounts(ctx)
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		logger.Info("[SYNC] нет аккаунтов с активными мониторами")
		return nil
	}

	snaps, err := e.ranges.FreshSnapshots(ctx, e.staleAfter)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	for _, acct := range accounts {
		wg.Add(1)
		go func(acct models.Account) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					logger.Error("[SYNC] паника в аккаунте %d (%s): %v", acct.ID, acct.Name, r)
				}
			}()
			e.syncAccount(ctx, acct, snaps)
		}(acct)
	}
	wg.Wait()
	return nil
}
