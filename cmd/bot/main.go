package main

import (
	"context"
	"log"

	"signal_trader/internal/dispatcher"
	"signal_trader/internal/modules/config"
	"signal_trader/internal/modules/health"
	"signal_trader/internal/modules/postgres"
	"signal_trader/internal/modules/telegram"
	"signal_trader/internal/modules/webhook"
	"signal_trader/pkg/logger"
	"signal_trader/pkg/tracing"

	"go.uber.org/fx"
)

const serviceName = "signal_trader"

func main() {
	logger.SetServiceName(serviceName)
	tracing.SetServiceName(serviceName)
	if err := logger.Init(); err != nil {
		log.Fatal(err)
	}

	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		config.Module(),
		postgres.Module(),
		telegram.Module(),
		dispatcher.Module(),
		webhook.Module(),
		health.Module(),
		fx.Invoke(registerTracing),
	)
	app.Run()
}

func registerTracing(lc fx.Lifecycle, cfg *config.Config) error {
	if cfg.Jaeger.Host == "" {
		return nil
	}
	_, closeTracer, err := tracing.InitTracer(tracing.Config{
		Host: cfg.Jaeger.Host,
		Port: cfg.Jaeger.Port,
	})
	if err != nil {
		return err
	}
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			closeTracer()
			return nil
		},
	})
	return nil
}
