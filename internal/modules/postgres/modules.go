package postgres

import (
	"context"
	"fmt"

	"signal_trader/internal/modules/config"
	"signal_trader/pkg/db"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("postgres",
		fx.Provide(
			func(ctx context.Context, cfg *config.Config) (*db.PgTxManager, error) {
				poolMaster, err := db.NewPool(ctx, db.PoolConfig{
					DSN: cfg.DB,
				})
				if err != nil {
					return nil, fmt.Errorf("failed to create poolMaster: %w", err)
				}

				err = poolMaster.Ping(ctx)
				if err != nil {
					return nil, err
				}

				return db.NewPgTxManager(poolMaster), nil
			},
		),
		fx.Invoke(func(lc fx.Lifecycle, txm *db.PgTxManager) {
			lc.Append(fx.Hook{
				OnStop: func(_ context.Context) error {
					txm.Close()
					return nil
				},
			})
		}),
	)
}
