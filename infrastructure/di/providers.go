package di

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"neuronote/application/commands"
	"neuronote/application/commands/bus"
	commands_handlers "neuronote/application/commands/handlers"
	"neuronote/application/ports"
	"neuronote/application/queries"
	querybus "neuronote/application/queries/bus"
	queries_handlers "neuronote/application/queries/handlers"
	"neuronote/application/services"
	domainconfig "neuronote/domain/config"
	"neuronote/infrastructure/config"
	"neuronote/infrastructure/llm"
	"neuronote/infrastructure/lock"
	"neuronote/infrastructure/messaging/eventbridge"
	"neuronote/infrastructure/messaging/local"
	"neuronote/infrastructure/metrics"
	"neuronote/infrastructure/persistence/sqlstore"
	"neuronote/infrastructure/repair"
	"neuronote/infrastructure/storage"
	"neuronote/infrastructure/vector"
	"neuronote/interfaces/http/rest"
	"neuronote/interfaces/http/rest/middleware"
	"neuronote/pkg/auth"
	pkgerrors "neuronote/pkg/errors"
	"neuronote/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	serviceName = "neuronote"

	cacheEntries       = 10_000
	slowQueryThreshold = 2 * time.Second
	tagsCacheTTL       = 5 * time.Minute

	ipRequestsPerMinute   = 300
	userRequestsPerMinute = 120
	llmRequestsPerMinute  = 30
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	if cfg.LogLevel != "" {
		level, err := zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
		}
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}

	return zapCfg.Build()
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideDatabase opens the relational store and applies migrations
func ProvideDatabase(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*sqlstore.DB, func(), error) {
	db, err := sqlstore.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseDSN, logger)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := db.Close(); err != nil {
			logger.Warn("Failed to close database", zap.Error(err))
		}
	}
	return db, cleanup, nil
}

func ProvideMemoryRepository(db *sqlstore.DB) ports.MemoryRepository {
	return sqlstore.NewMemoryRepository(db)
}

func ProvideChatRepository(db *sqlstore.DB) ports.ChatRepository {
	return sqlstore.NewChatRepository(db)
}

func ProvideUserRepository(db *sqlstore.DB) ports.UserRepository {
	return sqlstore.NewUserRepository(db)
}

func ProvideRepairQueue(db *sqlstore.DB) ports.IndexRepairQueue {
	return sqlstore.NewRepairQueue(db)
}

// ProvideEmbedder creates the embedder selected by configuration
func ProvideEmbedder(cfg *config.Config) (vector.Embedder, error) {
	return vector.NewEmbedder(vector.EmbedderConfig{
		Provider:   cfg.EmbeddingProvider,
		Model:      cfg.EmbeddingModel,
		Dimensions: cfg.EmbeddingDimensions,
		BaseURL:    cfg.EmbeddingBaseURL,
		APIKey:     cfg.EmbeddingAPIKey,
	})
}

// ProvideVectorStore selects pgvector, which shares the Postgres pool, or the
// embedded chromem store.
func ProvideVectorStore(ctx context.Context, cfg *config.Config, db *sqlstore.DB) (vector.Store, error) {
	switch cfg.VectorBackend {
	case "pgvector":
		if db.Dialect() != sqlstore.Postgres {
			return nil, errors.New("pgvector backend requires the postgres database driver")
		}
		store := vector.NewPgVectorStore(db.SQL(), cfg.EmbeddingDimensions)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return store, nil
	case "chromem", "":
		return vector.NewChromemStore(cfg.VectorPersistDir)
	default:
		return nil, fmt.Errorf("unsupported vector backend: %s", cfg.VectorBackend)
	}
}

// ProvideReranker returns nil when reranking is disabled; the index then
// keeps vector order.
func ProvideReranker(cfg *config.Config) vector.Reranker {
	if !cfg.RerankEnabled || cfg.RerankBaseURL == "" {
		return nil
	}
	return vector.NewHTTPReranker(cfg.RerankBaseURL, cfg.RerankAPIKey, 30*time.Second)
}

func ProvideSemanticIndex(embedder vector.Embedder, store vector.Store, reranker vector.Reranker, logger *zap.Logger) ports.SemanticIndex {
	return vector.NewIndex(embedder, store, reranker, logger)
}

// ProvideEventBus publishes to EventBridge when a bus is configured and
// in-process otherwise.
func ProvideEventBus(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) ports.EventBus {
	if cfg.EventBusName != "" {
		return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
	}
	return local.NewBus(logger)
}

// ProvideMetrics creates the metrics sink
func ProvideMetrics(client *awscloudwatch.Client, cfg *config.Config, logger *zap.Logger) ports.Metrics {
	if cfg.MetricsSink == "cloudwatch" {
		namespace := fmt.Sprintf("Neuronote/%s", cfg.Environment)
		return metrics.NewCloudWatch(client, namespace, logger)
	}
	return metrics.NewCollector(serviceName)
}

// ProvideCompletionGateway builds the configured provider behind retries and
// a circuit breaker.
func ProvideCompletionGateway(cfg *config.Config, m ports.Metrics, logger *zap.Logger) (ports.CompletionGateway, error) {
	var provider llm.Provider
	switch cfg.LLMProvider {
	case "openai", "":
		provider = llm.NewOpenAIGateway(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMMaxTokens)
	case "anthropic":
		provider = llm.NewAnthropicGateway(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMMaxTokens)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}
	return llm.NewResilientGateway(provider, cfg.LLMMaxRetries+1, m, logger), nil
}

// ProvideCache creates the shared ristretto cache
func ProvideCache() (*RistrettoCache, func(), error) {
	cache, err := NewRistrettoCache(cacheEntries)
	if err != nil {
		return nil, nil, err
	}
	return cache, cache.Close, nil
}

// ProvideTunables follows CONFIG_FILE when set
func ProvideTunables(logger *zap.Logger) (*config.Tunables, error) {
	return config.NewTunables(logger)
}

func ProvideTracer(cfg *config.Config) *observability.Tracer {
	return observability.NewTracer(serviceName, cfg.EnableTracing)
}

func ProvideDomainConfig() *domainconfig.DomainConfig {
	return domainconfig.DefaultDomainConfig()
}

func ProvideIndexSync(
	memoryRepo ports.MemoryRepository,
	index ports.SemanticIndex,
	repairs ports.IndexRepairQueue,
	eventBus ports.EventBus,
	m ports.Metrics,
	logger *zap.Logger,
) *services.IndexSync {
	return services.NewIndexSync(memoryRepo, index, repairs, eventBus, m, logger)
}

func ProvideRetrievalService(index ports.SemanticIndex, memoryRepo ports.MemoryRepository, m ports.Metrics, logger *zap.Logger) *services.RetrievalService {
	return services.NewRetrievalService(index, memoryRepo, m, logger)
}

// ProvideAvatarStore stores resized avatars under the upload directory
func ProvideAvatarStore(cfg *config.Config, logger *zap.Logger) (*storage.AvatarStore, error) {
	return storage.NewAvatarStore(cfg.UploadDir, cfg.PublicBaseURL, logger)
}

// ProvideLocker returns a DynamoDB-backed locker when LOCK_TABLE is set.
// Without one, reindex sweeps run unserialised.
func ProvideLocker(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.Locker {
	if cfg.LockTable == "" {
		return nil
	}
	owner, err := os.Hostname()
	if err != nil || owner == "" {
		owner = serviceName
	}
	return lock.NewDynamoLocker(client, cfg.LockTable, owner, logger)
}

// ProvideRepairProcessor drains the repair queue through IndexSync
func ProvideRepairProcessor(queue ports.IndexRepairQueue, sync *services.IndexSync, cfg *config.Config, logger *zap.Logger) *repair.Processor {
	return repair.NewProcessor(queue, sync, repair.Config{
		Interval:    cfg.RepairInterval,
		BatchSize:   cfg.RepairBatchSize,
		MaxAttempts: cfg.RepairMaxTries,
	}, logger)
}

// commandHandler adapts a typed handler method to the bus.
func commandHandler[C bus.Command, R any](handle func(context.Context, C) (R, error)) bus.CommandHandler {
	return bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) (interface{}, error) {
		c, ok := cmd.(C)
		if !ok {
			return nil, fmt.Errorf("%w: %T", bus.ErrInvalidCommand, cmd)
		}
		return handle(ctx, c)
	})
}

// commandHandlerNoResult adapts a handler that only reports an error.
func commandHandlerNoResult[C bus.Command](handle func(context.Context, C) error) bus.CommandHandler {
	return bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) (interface{}, error) {
		c, ok := cmd.(C)
		if !ok {
			return nil, fmt.Errorf("%w: %T", bus.ErrInvalidCommand, cmd)
		}
		return nil, handle(ctx, c)
	})
}

// ProvideCommandBus creates a command bus with registered handlers
func ProvideCommandBus(
	memoryRepo ports.MemoryRepository,
	chatRepo ports.ChatRepository,
	userRepo ports.UserRepository,
	sync *services.IndexSync,
	retrieval *services.RetrievalService,
	completion ports.CompletionGateway,
	tunables *config.Tunables,
	tracer *observability.Tracer,
	eventBus ports.EventBus,
	cache ports.Cache,
	avatars ports.AvatarStorage,
	locker ports.Locker,
	logger *zap.Logger,
) (*bus.CommandBus, error) {
	commandBus := bus.NewCommandBus(bus.LoggingMiddleware(logger))

	createMemory := commands_handlers.NewCreateMemoryHandler(memoryRepo, sync, eventBus, cache, logger)
	updateMemory := commands_handlers.NewUpdateMemoryHandler(memoryRepo, sync, eventBus, cache, logger)
	deleteMemory := commands_handlers.NewDeleteMemoryHandler(memoryRepo, sync, eventBus, cache, logger)
	repairIndex := commands_handlers.NewRepairMemoryIndexHandler(sync)
	reindex := commands_handlers.NewReindexHandler(memoryRepo, sync, locker, logger)
	createSession := commands_handlers.NewCreateSessionHandler(chatRepo, logger)
	sendMessage := commands_handlers.NewSendChatMessageOrchestrator(chatRepo, retrieval, completion, tunables, tracer, logger)
	editMessage := commands_handlers.NewEditChatMessageHandler(chatRepo, logger)
	deleteSession := commands_handlers.NewDeleteSessionHandler(chatRepo, eventBus, logger)
	updatePhoto := commands_handlers.NewUpdateProfilePhotoHandler(userRepo, memoryRepo, avatars, logger)

	err := errors.Join(
		commandBus.Register(commands.CreateMemoryCommand{}, commandHandler(createMemory.Handle)),
		commandBus.Register(commands.UpdateMemoryCommand{}, commandHandler(updateMemory.Handle)),
		commandBus.Register(commands.DeleteMemoryCommand{}, commandHandlerNoResult(deleteMemory.Handle)),
		commandBus.Register(commands.RepairMemoryIndexCommand{}, commandHandler(repairIndex.Handle)),
		commandBus.Register(commands.ReindexCommand{}, commandHandler(reindex.Handle)),
		commandBus.Register(commands.CreateSessionCommand{}, commandHandler(createSession.Handle)),
		commandBus.Register(commands.SendChatMessageCommand{}, commandHandler(sendMessage.Handle)),
		commandBus.Register(commands.EditChatMessageCommand{}, commandHandler(editMessage.Handle)),
		commandBus.Register(commands.DeleteSessionCommand{}, commandHandlerNoResult(deleteSession.Handle)),
		commandBus.Register(commands.UpdateProfilePhotoCommand{}, commandHandler(updatePhoto.Handle)),
	)
	if err != nil {
		return nil, err
	}
	return commandBus, nil
}

// queryHandler adapts a typed handler method to the bus.
func queryHandler[Q querybus.Query, R any](handle func(context.Context, Q) (R, error)) querybus.QueryHandler {
	return querybus.QueryHandlerFunc(func(ctx context.Context, query querybus.Query) (interface{}, error) {
		q, ok := query.(Q)
		if !ok {
			return nil, fmt.Errorf("invalid query type: %T", query)
		}
		return handle(ctx, q)
	})
}

// ProvideQueryBus creates a query bus with registered handlers. Tag lists
// are cached per user; memory writes evict them.
func ProvideQueryBus(
	memoryRepo ports.MemoryRepository,
	chatRepo ports.ChatRepository,
	userRepo ports.UserRepository,
	retrieval *services.RetrievalService,
	completion ports.CompletionGateway,
	tunables *config.Tunables,
	tracer *observability.Tracer,
	cache *RistrettoCache,
	domainCfg *domainconfig.DomainConfig,
	logger *zap.Logger,
) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus(querybus.SlowQueryMiddleware(logger, slowQueryThreshold))
	caching := querybus.NewCachingMiddleware(cache, tagsCacheTTL)

	memoryQueries := queries_handlers.NewMemoryQueryHandler(memoryRepo, domainCfg, logger)
	chatQueries := queries_handlers.NewChatQueryHandler(chatRepo, logger)
	profileQuery := queries_handlers.NewProfileQueryHandler(userRepo, memoryRepo)
	ask := queries_handlers.NewAskHandler(retrieval, completion, tunables, tracer, logger)

	err := errors.Join(
		queryBus.Register(queries.GetMemoryQuery{}, queryHandler(memoryQueries.GetMemory)),
		queryBus.Register(queries.ListMemoriesQuery{}, queryHandler(memoryQueries.ListMemories)),
		queryBus.Register(queries.ListRecentMemoriesQuery{}, queryHandler(memoryQueries.ListRecentMemories)),
		queryBus.Register(queries.SearchMemoriesQuery{}, queryHandler(memoryQueries.SearchMemories)),
		queryBus.Register(queries.ListTagsQuery{}, caching.Wrap(queryHandler(memoryQueries.ListTags))),
		queryBus.Register(queries.SearchByTagsQuery{}, queryHandler(memoryQueries.SearchByTags)),
		queryBus.Register(queries.ListSessionsQuery{}, queryHandler(chatQueries.ListSessions)),
		queryBus.Register(queries.ListMessagesQuery{}, queryHandler(chatQueries.ListMessages)),
		queryBus.Register(queries.GetProfileQuery{}, queryHandler(profileQuery.Handle)),
		queryBus.Register(queries.AskQuery{}, queryHandler(ask.Handle)),
	)
	if err != nil {
		return nil, err
	}
	return queryBus, nil
}

func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *pkgerrors.ErrorHandler {
	return pkgerrors.NewErrorHandler(logger, cfg.IsDevelopment())
}

// ProvideJWTValidator returns nil when neither a secret nor a public key is
// configured, leaving session cookies as the only credential.
func ProvideJWTValidator(cfg *config.Config) (*auth.JWTValidator, error) {
	if cfg.JWTSecret == "" && cfg.JWTPublicKey == "" {
		return nil, nil
	}

	jwtCfg := auth.JWTConfig{
		SigningMethod: "HS256",
		SecretKey:     cfg.JWTSecret,
		Issuer:        cfg.JWTIssuer,
	}
	if cfg.JWTPublicKey != "" {
		jwtCfg.SigningMethod = "RS256"
		jwtCfg.PublicKey = cfg.JWTPublicKey
	}
	if cfg.JWTAudience != "" {
		jwtCfg.Audience = []string{cfg.JWTAudience}
	}
	return auth.NewJWTValidator(jwtCfg)
}

func ProvideAuthenticator(
	validator *auth.JWTValidator,
	users ports.UserRepository,
	cache ports.Cache,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *middleware.Authenticator {
	return middleware.NewAuthenticator(validator, users, cache, errorHandler, logger)
}

// ProvideRateLimits builds the in-memory per-IP and per-user limiters. The
// completion routes get their own per-user budget, shared across instances
// through DynamoDB when a table is configured.
func ProvideRateLimits(
	client *awsdynamodb.Client,
	cfg *config.Config,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) rest.Limits {
	limits := rest.Limits{
		IP:   middleware.ByIP(auth.NewIPRateLimiter(ipRequestsPerMinute), ipRequestsPerMinute, errorHandler, logger),
		User: middleware.ByUser(auth.NewUserRateLimiter(userRequestsPerMinute), userRequestsPerMinute, errorHandler, logger),
	}
	var llmLimiter auth.RateLimiter = auth.NewUserRateLimiter(llmRequestsPerMinute)
	if cfg.RateLimitTable != "" {
		llmLimiter = auth.NewCompositeRateLimiter(
			llmLimiter,
			auth.NewDistributedRateLimiter(client, cfg.RateLimitTable, llmRequestsPerMinute, time.Minute, "LLM"),
		)
	}
	limits.LLM = middleware.ByUser(llmLimiter, llmRequestsPerMinute, errorHandler, logger)
	return limits
}

// ProvideRouter assembles the HTTP surface
func ProvideRouter(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	authenticator *middleware.Authenticator,
	errorHandler *pkgerrors.ErrorHandler,
	limits rest.Limits,
	m ports.Metrics,
	db *sqlstore.DB,
	cfg *config.Config,
	logger *zap.Logger,
) *rest.Router {
	return rest.NewRouter(commandBus, queryBus, authenticator, errorHandler, limits, m, db, rest.RouterConfig{
		CORSOrigins:     cfg.CORSOrigins,
		UploadDir:       cfg.UploadDir,
		MaxRequestBytes: cfg.MaxRequestBytes,
	}, logger)
}
