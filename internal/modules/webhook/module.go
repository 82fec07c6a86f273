package webhook

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/fx"

	"signal_trader/internal/dispatcher"
	"signal_trader/internal/modules/config"
	"signal_trader/internal/modules/webhook/service"
	"signal_trader/pkg/logger"
)

func Module() fx.Option {
	return fx.Module("webhook",
		fx.Provide(
			func(cfg *config.Config, d *dispatcher.Dispatcher) *service.Handler {
				return service.NewHandler(cfg.Webhook.Secret, d)
			},
		),
		fx.Invoke(RunHTTP),
	)
}

func RunHTTP(lc fx.Lifecycle, cfg *config.Config, h *service.Handler) {
	port := cfg.Service.PublicPort
	if port == 0 {
		port = 8080
	}
	addr := fmt.Sprintf("%s:%d", cfg.Service.Host, port)

	mux := http.NewServeMux()
	h.Register(mux)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			logger.Info("webhook: listening on %s", addr)
			go func() { _ = srv.Serve(ln) }()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
