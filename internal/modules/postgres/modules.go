package postgres

import (
	"context"
	"fmt"

	"auto_trader/internal/modules/config"
	"auto_trader/pkg/db"

	"go.uber.org/fx"
)

// Module поднимает пул к постгресу и отдаёт TxManager.
// Недоступная база на старте — фатально для всего процесса.
func Module() fx.Option {
	return fx.Module("postgres",
		fx.Provide(
			func(ctx context.Context, cfg *config.Config) (*db.PgTxManager, error) {
				poolMaster, err := db.NewPool(ctx, db.PoolConfig{
					DSN:     cfg.DB,
					Acquire: cfg.DBRetry(),
				})
				if err != nil {
					return nil, fmt.Errorf("failed to create poolMaster: %w", err)
				}

				return db.NewPgTxManager(poolMaster, cfg.DBRetry()), nil
			},
		),
	)
}
