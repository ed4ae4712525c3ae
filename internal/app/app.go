package app

import (
	"context"

	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/nooksocial/nook-engine/config"
	"github.com/nooksocial/nook-engine/internal/domain"
	deliveryhttp "github.com/nooksocial/nook-engine/internal/domain/farcaster/delivery/http"
	"github.com/nooksocial/nook-engine/internal/infrastructure/database"
	"github.com/nooksocial/nook-engine/internal/infrastructure/http/server"
	"github.com/nooksocial/nook-engine/internal/infrastructure/kafka"
	"github.com/nooksocial/nook-engine/internal/infrastructure/logger"
	"github.com/nooksocial/nook-engine/internal/infrastructure/metrics"
	"github.com/nooksocial/nook-engine/internal/infrastructure/redis"
)

// CreateApp creates the fx application with all dependencies
func CreateApp() fx.Option {
	return fx.Options(
		fx.Provide(config.Out),
		fx.Provide(logger.NewLogger),
		fx.Provide(database.NewPostgresDB),
		fx.Provide(redis.NewClient),
		fx.Provide(metrics.GetDefaultMetrics),
		kafka.Module,
		domain.Module,
		fx.Invoke(registerHTTPServer),
	)
}

func registerHTTPServer(
	lc fx.Lifecycle,
	cfg *config.ServiceConfig,
	handlers *deliveryhttp.Handlers,
	log zerolog.Logger,
) {
	srv := server.NewServer(cfg.Port, log.With().Str("component", "http-server").Logger())
	srv.RegisterMetrics()
	handlers.RegisterRoutes(srv)

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			return srv.Start()
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
