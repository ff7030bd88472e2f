package registry

import (
	service "auto_trader/internal/modules/registry/service"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("registry",
		fx.Provide(
			service.New, // *service.Store
		),
	)
}
