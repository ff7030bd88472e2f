package service

import (
	"context"

	"auto_trader/internal/errs"
	"auto_trader/internal/helper"
	"auto_trader/internal/models"
	"auto_trader/pkg/logger"
)

// syncAccount — прогон одного аккаунта: waiting на открытие, opened на
// тейк, затем свип бесхозных позиций. Ошибка по одному монитору не
// останавливает соседние.
func (e *Engine) syncAccount(ctx context.Context, acct models.Account, snaps map[string]models.Snapshot) {
	cl := e.clients.ClientFor(acct)

	positions, err := cl.Positions(ctx, false)
	if err != nil {
		if errs.IsCredential(err) {
			// битые ключи ретраить бессмысленно, чинит оператор
			logger.Error("[SYNC] аккаунт %d (%s): ключи не работают, пропущен: %v",
				acct.ID, acct.Name, err)
			return
		}
		logger.Error("[SYNC] аккаунт %d: позиции не получены: %v", acct.ID, err)
		return
	}

	monitors, err := e.registry.ListActive(ctx, acct.ID)
	if err != nil {
		logger.Error("[SYNC] аккаунт %d: мониторы не прочитаны: %v", acct.ID, err)
		return
	}

	posByContract := make(map[string]models.LivePosition, len(positions))
	for _, p := range positions {
		posByContract[p.Contract] = p
	}

	for _, m := range monitors {
		var mErr error
		switch m.SyncStatus {
		case models.StatusWaiting:
			mErr = e.processWaiting(ctx, cl, m, snaps, posByContract)
		case models.StatusOpened:
			mErr = e.processOpened(ctx, cl, m, posByContract)
		case models.StatusClosed:
			// финальное состояние, трогает только оператор
		default:
			logger.Warn("[SYNC] монитор %d: неизвестный статус %q", m.ID, m.SyncStatus)
		}
		if mErr != nil {
			logger.Error("[SYNC] монитор %d (%s %s): %v", m.ID, m.Symbol, m.StrategyType, mErr)
		}
	}

	e.sweepOrphans(ctx, acct, cl, monitors, positions)
}

// protectedContracts — контракты всех активных мониторов. Статус роли
// не играет: пока монитор активен, позицию по его символу свип не
// трогает, даже если монитор уже closed.
func protectedContracts(monitors []models.Monitor) map[string]bool {
	set := make(map[string]bool, len(monitors))
	for _, m := range monitors {
		set[helper.Contract(m.Symbol)] = true
	}
	return set
}
