package service

import (
	"context"
	"fmt"

	"auto_trader/internal/helper"
	"auto_trader/internal/models"
	"auto_trader/pkg/logger"
)

// processWaiting решает, пора ли открываться. Сигнал считается только по
// свежему снапшоту; если на контракте уже висит живая позиция (например
// ручная), открытие откладывается до её исчезновения.
func (e *Engine) processWaiting(
	ctx context.Context,
	cl ExchangeClient,
	m models.Monitor,
	snaps map[string]models.Snapshot,
	positions map[string]models.LivePosition,
) error {
	sn, ok := snaps[m.Symbol]
	if !ok || !sn.Fresh(e.now(), e.staleAfter) {
		// нет свежей цены, значит нет сигнала
		return e.registry.Touch(ctx, m.ID)
	}

	side := signalSide(m.StrategyType, sn)
	if side == models.PosSideNone {
		return e.registry.Touch(ctx, m.ID)
	}

	if _, live := positions[helper.Contract(m.Symbol)]; live {
		logger.Warn("[SYNC] монитор %d: сигнал %s по %s, но на контракте уже есть позиция, ждём",
			m.ID, side, m.Symbol)
		return e.registry.Touch(ctx, m.ID)
	}

	opened, err := cl.OpenPosition(ctx, m.Symbol, side, m.AllocatedMoney, m.Leverage)
	if err != nil {
		return fmt.Errorf("open %s %s: %w", m.Symbol, side, err)
	}
	if !opened {
		return e.registry.Touch(ctx, m.ID)
	}

	// статус пишем только после подтверждения биржи
	if err := e.registry.MarkOpened(ctx, m.ID, side); err != nil {
		return err
	}
	e.notify.Sendf("открыта позиция %s %s (стратегия %s, капитал %s, плечо %d)",
		m.Symbol, side, m.StrategyType, m.AllocatedMoney.String(), m.Leverage)
	return nil
}

// signalSide — правило входа по стратегии.
// break: пробой диапазона (last выше high -> long, ниже low -> short).
// oscillation: возврат к краю (ratio ниже середины -> long, выше -> short),
// ровно на середине сигнала нет.
func signalSide(strategy models.StrategyType, sn models.Snapshot) models.PositionSide {
	switch strategy {
	case models.StrategyBreak:
		if sn.LastPrice > sn.High20 {
			return models.PosSideLong
		}
		if sn.LastPrice < sn.Low20 {
			return models.PosSideShort
		}
	case models.StrategyOscillation:
		if sn.PositionRatio < 0.5 {
			return models.PosSideLong
		}
		if sn.PositionRatio > 0.5 {
			return models.PosSideShort
		}
	}
	return models.PosSideNone
}
