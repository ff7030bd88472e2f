package notify

import (
	"context"

	"go.uber.org/fx"

	"auto_trader/internal/models"
	"auto_trader/internal/modules/config"
	gateio "auto_trader/internal/modules/gateio/service"
	registry "auto_trader/internal/modules/registry/service"
	"auto_trader/pkg/logger"
)

// gateLister собирает живые позиции по всем активным аккаунтам.
type gateLister struct {
	registry *registry.Store
	mgr      *gateio.Manager
}

func (l *gateLister) AllPositions(ctx context.Context) (map[string][]models.LivePosition, error) {
	accounts, err := l.registry.ActiveAccounts(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]models.LivePosition, len(accounts))
	for _, a := range accounts {
		positions, pErr := l.mgr.ClientFor(a).Positions(ctx, true)
		if pErr != nil {
			logger.Warn("[NOTIFY] позиции аккаунта %d не получены: %v", a.ID, pErr)
			continue
		}
		out[a.Name] = positions
	}
	return out, nil
}

func Module() fx.Option {
	return fx.Module("notify",
		fx.Provide(
			func(r *registry.Store, mgr *gateio.Manager) PositionLister {
				return &gateLister{registry: r, mgr: mgr}
			},
			func(lc fx.Lifecycle, cfg *config.Config, lister PositionLister) (Notifier, error) {
				if cfg.Telegram.Token == "" {
					logger.Info("[NOTIFY] телеграм не настроен, уведомления в лог")
					return NewStdout(), nil
				}

				tg, err := NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, lister)
				if err != nil {
					return nil, err
				}
				lc.Append(fx.Hook{
					OnStart: func(ctx context.Context) error { return tg.Start(context.Background()) },
					OnStop: func(ctx context.Context) error {
						tg.Stop()
						return nil
					},
				})
				return tg, nil
			},
		),
	)
}
