package scheduler

import (
	"context"

	"go.uber.org/fx"

	"auto_trader/internal/modules/config"
	engine "auto_trader/internal/modules/engine/service"
	health "auto_trader/internal/modules/health/service"
	pricerange "auto_trader/internal/modules/pricerange/service"
	service "auto_trader/internal/modules/scheduler/service"
)

func Module() fx.Option {
	return fx.Module("scheduler",
		fx.Provide(
			func(cfg *config.Config, upd *pricerange.Updater, eng *engine.Engine,
				sw *pricerange.StreamWorker, state *health.State) *service.Scheduler {

				// тик = свежие цены, потом синк позиций
				tick := func(ctx context.Context) error {
					if err := upd.RefreshTicks(ctx); err != nil {
						return err
					}
					return eng.RunOnce(ctx)
				}

				var stream service.Job
				if cfg.StreamTickers {
					stream = sw.Run
				}

				return service.New(service.Deps{
					Daily:     upd.RunDaily,
					Tick:      tick,
					Stream:    stream,
					TickEvery: cfg.TickInterval,
					DailyAt:   cfg.DailyAt,
					Health:    state,
				})
			},
		),
	)
}
