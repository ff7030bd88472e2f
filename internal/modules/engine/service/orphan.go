package service

import (
	"context"

	"auto_trader/internal/models"
	"auto_trader/pkg/logger"
)

// sweepOrphans закрывает живые позиции, за которыми не стоит ни одного
// живого монитора. Сопоставление только по контракту: монитор на символ
// защищает любую позицию по нему, включая открытую руками.
func (e *Engine) sweepOrphans(
	ctx context.Context,
	acct models.Account,
	cl ExchangeClient,
	monitors []models.Monitor,
	positions []models.LivePosition,
) {
	protected := protectedContracts(monitors)

	for _, p := range positions {
		if protected[p.Contract] {
			continue
		}

		logger.Warn("[SYNC] аккаунт %d: бесхозная позиция %s size=%d, закрываем",
			acct.ID, p.Contract, p.Size)
		closed, err := cl.ClosePosition(ctx, p.Symbol)
		if err != nil {
			logger.Error("[SYNC] аккаунт %d: бесхозная %s не закрыта: %v", acct.ID, p.Contract, err)
			continue
		}
		if closed {
			e.notify.Sendf("аккаунт %s: закрыта бесхозная позиция %s (size=%d)",
				acct.Name, p.Contract, p.Size)
		}
	}
}
