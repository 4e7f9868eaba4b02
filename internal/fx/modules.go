package fx

import (
	"splat-tracker/internal/api"
	"splat-tracker/internal/config"
	"splat-tracker/internal/database"
	"splat-tracker/internal/livequery"
	"splat-tracker/internal/logger"
	"splat-tracker/internal/repository"
	"splat-tracker/internal/server"
	"splat-tracker/internal/service"

	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	// invalidation channels
	fx.Provide(livequery.NewTracker),
	fx.Provide(livequery.NewNotifier),
	// repos
	fx.Provide(repository.NewMatchRepository),
	fx.Provide(repository.NewAssetRepository),
	// api client
	fx.Provide(api.NewClient),
	// svc
	fx.Provide(service.NewHistoryService),
	fx.Provide(service.NewAggregationService),
	fx.Provide(service.NewBatchService),
	fx.Provide(service.NewIngestService),
	// server
	fx.Provide(server.New),
)
