package dispatcher

import (
	"context"
	"fmt"

	"signal_trader/internal/exchange"
	"signal_trader/internal/modules/config"
	healthsvc "signal_trader/internal/modules/health/service"
	"signal_trader/internal/positions"
	"signal_trader/internal/positions/pg"
	"signal_trader/internal/trader"
	"signal_trader/pkg/db"
	"signal_trader/pkg/logger"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("dispatcher",
		fx.Provide(
			func(cfg *config.Config) *exchange.RateLimiter {
				return exchange.NewRateLimiter(cfg.RateLimitRPS)
			},
			func(txm *db.PgTxManager) positions.Store {
				return pg.NewPositions(txm)
			},
			positions.NewLedger,
			exchange.NewPriceFeed,
			// реестр трейдеров собирается один раз на старте и дальше
			// не мутируется; диспетчер получает его по ссылке
			func(cfg *config.Config, limiter *exchange.RateLimiter, ledger *positions.Ledger, n trader.Notifier) map[string]*trader.Trader {
				traders := make(map[string]*trader.Trader, len(cfg.Traders))
				for _, tc := range cfg.Traders {
					ex := exchange.NewClient(limiter, tc.APIKey, tc.APISecret, tc.Passphrase, tc.DemoMode)
					traders[tc.ID] = trader.New(trader.Config{
						ID:          tc.ID,
						NotifyChat:  tc.NotifyChat,
						BuyTimeout:  cfg.BuyTimeout(),
						SellTimeout: cfg.SellTimeout(),
					}, ex, ledger, n)
				}
				return traders
			},
			New, // *Dispatcher
		),
		fx.Invoke(func(
			lc fx.Lifecycle,
			d *Dispatcher,
			traders map[string]*trader.Trader,
			feed *exchange.PriceFeed,
			state *healthsvc.State,
			cfg *config.Config,
			ctx context.Context,
		) {
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					for id, tr := range traders {
						if err := tr.Warmup(ctx); err != nil {
							return fmt.Errorf("load markets for trader %s: %w", id, err)
						}
						logger.Info("trader %s: markets loaded", id)
					}
					feed.Start(ctx, cfg.WatchSymbols)
					d.Start(ctx)
					state.SetReady(true)
					return nil
				},
				OnStop: func(stopCtx context.Context) error {
					state.SetReady(false)
					return d.Stop(stopCtx)
				},
			})
		}),
	)
}
