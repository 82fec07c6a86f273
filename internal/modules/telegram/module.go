package telegram

import (
	"context"

	"signal_trader/internal/modules/telegram/service"
	"signal_trader/internal/trader"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("telegram",
		fx.Provide(
			service.NewTelegram, // func(*config.Config, positions.Store, *exchange.PriceFeed) (*service.Telegram, error)
		),

		// Адаптер: *service.Telegram -> trader.Notifier
		fx.Provide(
			func(t *service.Telegram) trader.Notifier {
				return t
			},
		),

		fx.Invoke(
			func(lc fx.Lifecycle, t *service.Telegram, ctx context.Context) {
				lc.Append(fx.Hook{
					OnStart: func(_ context.Context) error {
						t.Start(ctx)
						return nil
					},
					OnStop: func(_ context.Context) error {
						t.Stop()
						return nil
					},
				})
			},
		),
	)
}
