package gateio

import (
	"auto_trader/internal/modules/config"
	service "auto_trader/internal/modules/gateio/service"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("gateio",
		fx.Provide(
			func(cfg *config.Config) *service.Manager {
				return service.NewManager(service.Opts{
					Timeout:   cfg.HTTPTimeout,
					RPS:       cfg.ExchangeRPS,
					CacheTTL:  cfg.PositionCacheTTL,
					ReadRetry: cfg.ExchangeRetry(),
				})
			},
		),
	)
}
