package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"auto_trader/internal/helper"
	"auto_trader/internal/models"
	"auto_trader/pkg/logger"
)

// processOpened держит открытый монитор в синхроне с биржей: достраивает
// направление, закрывает по тейку, добивает статус, если позиция исчезла
// с биржи сама (ручное закрытие, ликвидация).
func (e *Engine) processOpened(
	ctx context.Context,
	cl ExchangeClient,
	m models.Monitor,
	positions map[string]models.LivePosition,
) error {
	p, live := positions[helper.Contract(m.Symbol)]
	if !live {
		return e.openedGone(ctx, m)
	}

	if m.PositionSide == models.PosSideNone {
		side := sideOfSize(p.Size)
		if err := e.registry.SetPositionSide(ctx, m.ID, side); err != nil {
			return err
		}
		logger.Info("[SYNC] монитор %d: направление восстановлено из позиции: %s", m.ID, side)
	}

	pnl := decimal.NewFromFloat(p.UnrealizedPnl)
	if pnl.Cmp(m.TakeProfit) >= 0 {
		closed, err := cl.ClosePosition(ctx, m.Symbol)
		if err != nil {
			return fmt.Errorf("take profit close %s: %w", m.Symbol, err)
		}
		if closed {
			if err := e.registry.MarkClosed(ctx, m.ID); err != nil {
				return err
			}
			e.notify.Sendf("тейк-профит %s: PnL %s >= %s, позиция закрыта",
				m.Symbol, pnl.StringFixed(2), m.TakeProfit.StringFixed(2))
			return nil
		}
		// позиция исчезла между чтением и закрытием, добьёт следующий тик
		return nil
	}

	return e.registry.Touch(ctx, m.ID)
}

// openedGone: позиции на бирже нет. Сразу после открытия это нормально
// (ордер ещё расходится по стакану), поэтому даём грейс; после него
// считаем, что позицию закрыли мимо нас, и закрываем монитор без биржи.
func (e *Engine) openedGone(ctx context.Context, m models.Monitor) error {
	if e.now().Sub(m.LastSyncTime) < e.openedGrace {
		return nil
	}

	if err := e.registry.MarkClosed(ctx, m.ID); err != nil {
		return err
	}
	logger.Warn("[SYNC] монитор %d (%s): позиция пропала с биржи, монитор закрыт", m.ID, m.Symbol)
	e.notify.Sendf("позиция %s исчезла с биржи, монитор закрыт", m.Symbol)
	return nil
}

func sideOfSize(size int64) models.PositionSide {
	if size < 0 {
		return models.PosSideShort
	}
	return models.PosSideLong
}
