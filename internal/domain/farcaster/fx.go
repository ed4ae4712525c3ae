package farcaster

import (
	"go.uber.org/fx"

	deliveryhttp "github.com/nooksocial/nook-engine/internal/domain/farcaster/delivery/http"
	"github.com/nooksocial/nook-engine/internal/domain/farcaster/delivery/kafka"
	"github.com/nooksocial/nook-engine/internal/domain/farcaster/repository/cache"
	"github.com/nooksocial/nook-engine/internal/domain/farcaster/repository/http_clients/graph"
	"github.com/nooksocial/nook-engine/internal/domain/farcaster/repository/http_clients/hub"
	"github.com/nooksocial/nook-engine/internal/domain/farcaster/repository/postgres"
	"github.com/nooksocial/nook-engine/internal/domain/farcaster/usecase/buissines"
)

// Module provides farcaster domain dependencies
var Module = fx.Module(
	"farcaster",
	fx.Provide(
		postgres.NewEntityRepository,
		postgres.NewContentRepository,
		postgres.NewActionRepository,
		postgres.NewFeedRepository,
		cache.NewIdentityCache,
		hub.NewClient,
		graph.NewClient,
		buissines.NewUseCase,
		kafka.NewHandlers,
		deliveryhttp.NewHandlers,
	),
)
