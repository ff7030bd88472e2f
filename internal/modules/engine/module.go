package engine

import (
	"auto_trader/internal/models"
	"auto_trader/internal/modules/config"
	service "auto_trader/internal/modules/engine/service"
	gateio "auto_trader/internal/modules/gateio/service"
	pricerange "auto_trader/internal/modules/pricerange/service"
	registry "auto_trader/internal/modules/registry/service"
	"auto_trader/internal/notify"

	"go.uber.org/fx"
)

// managerProvider сужает *gateio.Manager до интерфейса движка.
type managerProvider struct {
	mgr *gateio.Manager
}

func (p managerProvider) ClientFor(acct models.Account) service.ExchangeClient {
	return p.mgr.ClientFor(acct)
}

func Module() fx.Option {
	return fx.Module("engine",
		fx.Provide(
			func(cfg *config.Config, r *registry.Store, ranges *pricerange.Store,
				mgr *gateio.Manager, n notify.Notifier) *service.Engine {
				return service.New(service.Deps{
					Registry:    r,
					Ranges:      ranges,
					Clients:     managerProvider{mgr: mgr},
					Notify:      n,
					StaleAfter:  cfg.StaleAfter,
					OpenedGrace: cfg.OpenedGrace,
				})
			},
		),
	)
}
