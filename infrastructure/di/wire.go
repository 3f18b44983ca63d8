//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"neuronote/application/ports"
	"neuronote/infrastructure/config"
	"neuronote/infrastructure/storage"

	"github.com/google/wire"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideCloudWatchClient,
	ProvideDatabase,
	ProvideMemoryRepository,
	ProvideChatRepository,
	ProvideUserRepository,
	ProvideRepairQueue,
	ProvideEmbedder,
	ProvideVectorStore,
	ProvideReranker,
	ProvideSemanticIndex,
	ProvideEventBus,
	ProvideMetrics,
	ProvideCompletionGateway,
	ProvideCache,
	wire.Bind(new(ports.Cache), new(*RistrettoCache)),
	ProvideTunables,
	ProvideTracer,
	ProvideDomainConfig,
	ProvideIndexSync,
	ProvideRetrievalService,
	ProvideAvatarStore,
	wire.Bind(new(ports.AvatarStorage), new(*storage.AvatarStore)),
	ProvideLocker,
	ProvideRepairProcessor,
	ProvideCommandBus,
	ProvideQueryBus,
	ProvideErrorHandler,
	ProvideJWTValidator,
	ProvideAuthenticator,
	ProvideRateLimits,
	ProvideRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container. The returned cleanup
// closes the cache and the database.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil // Wire will replace this
}
