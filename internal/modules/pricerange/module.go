package pricerange

import (
	"auto_trader/internal/modules/config"
	gateio "auto_trader/internal/modules/gateio/service"
	service "auto_trader/internal/modules/pricerange/service"
	"auto_trader/pkg/db"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("pricerange",
		fx.Provide(
			func(txm *db.PgTxManager) *service.Store {
				return service.NewStore(txm)
			},
			func(cfg *config.Config, store *service.Store, mgr *gateio.Manager) *service.Updater {
				return service.NewUpdater(store, mgr.Public(), cfg.PriceRangeDays)
			},
			func(store *service.Store, mgr *gateio.Manager) *service.StreamWorker {
				return service.NewStreamWorker(store, mgr.Public())
			},
		),
	)
}
