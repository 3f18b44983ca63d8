package di

import (
	"context"
	"testing"
	"time"

	"neuronote/application/commands"
	"neuronote/application/commands/bus"
	"neuronote/application/queries"
	"neuronote/infrastructure/config"
	"neuronote/infrastructure/messaging/local"
	"neuronote/infrastructure/metrics"
	pkgerrors "neuronote/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRistrettoCache_SetGetDelete(t *testing.T) {
	// Arrange
	cache, err := NewRistrettoCache(100)
	require.NoError(t, err)
	defer cache.Close()
	ctx := context.Background()

	// Act
	require.NoError(t, cache.Set(ctx, "tags:u1", []string{"go"}, time.Minute))
	v, found := cache.Get(ctx, "tags:u1")

	// Assert
	require.True(t, found)
	assert.Equal(t, []string{"go"}, v)

	require.NoError(t, cache.Delete(ctx, "tags:u1"))
	_, found = cache.Get(ctx, "tags:u1")
	assert.False(t, found)
}

func TestProvideJWTValidator_NoKeysDisablesBearer(t *testing.T) {
	validator, err := ProvideJWTValidator(&config.Config{})

	require.NoError(t, err)
	assert.Nil(t, validator)
}

func TestProvideJWTValidator_Secret(t *testing.T) {
	validator, err := ProvideJWTValidator(&config.Config{JWTSecret: "s3cret", JWTAudience: "neuronote"})

	require.NoError(t, err)
	assert.NotNil(t, validator)
}

func TestProvideReranker_DisabledIsNil(t *testing.T) {
	assert.Nil(t, ProvideReranker(&config.Config{RerankEnabled: true}))
	assert.Nil(t, ProvideReranker(&config.Config{RerankBaseURL: "http://rerank"}))
	assert.NotNil(t, ProvideReranker(&config.Config{RerankEnabled: true, RerankBaseURL: "http://rerank"}))
}

func TestProvideLocker_NilWithoutTable(t *testing.T) {
	assert.Nil(t, ProvideLocker(nil, &config.Config{}, zap.NewNop()))
}

func TestProvideRateLimits_CompletionBudgetWithoutTable(t *testing.T) {
	limits := ProvideRateLimits(nil, &config.Config{}, pkgerrors.NewErrorHandler(zap.NewNop(), false), zap.NewNop())

	assert.NotNil(t, limits.IP)
	assert.NotNil(t, limits.User)
	assert.NotNil(t, limits.LLM)
}

func TestProvideEventBus_LocalWithoutBusName(t *testing.T) {
	bus := ProvideEventBus(nil, &config.Config{}, zap.NewNop())

	assert.IsType(t, &local.Bus{}, bus)
}

func TestProvideMetrics_DefaultsToPrometheus(t *testing.T) {
	m := ProvideMetrics(nil, &config.Config{MetricsSink: "prometheus"}, zap.NewNop())

	assert.IsType(t, &metrics.Collector{}, m)
}

func TestProvideCompletionGateway_UnknownProvider(t *testing.T) {
	_, err := ProvideCompletionGateway(&config.Config{LLMProvider: "nope"}, metrics.NewCollector("t"), zap.NewNop())

	assert.Error(t, err)
}

func TestCommandHandler_RejectsWrongType(t *testing.T) {
	h := commandHandler(func(ctx context.Context, cmd commands.DeleteMemoryCommand) (string, error) {
		return "ok", nil
	})

	_, err := h.Handle(context.Background(), commands.CreateSessionCommand{UserID: "u"})

	assert.ErrorIs(t, err, bus.ErrInvalidCommand)
}

func TestQueryHandler_PassesResult(t *testing.T) {
	h := queryHandler(func(ctx context.Context, q queries.ListTagsQuery) (*queries.ListTagsResult, error) {
		return &queries.ListTagsResult{Tags: []string{q.UserID}, Count: 1}, nil
	})

	result, err := h.Handle(context.Background(), queries.ListTagsQuery{UserID: "u1"})

	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, result.(*queries.ListTagsResult).Tags)
}
