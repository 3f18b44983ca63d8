package rest

import (
	"context"
	"net/http"
	"time"

	"neuronote/application/commands/bus"
	"neuronote/application/ports"
	querybus "neuronote/application/queries/bus"
	"neuronote/interfaces/http/rest/handlers"
	"neuronote/interfaces/http/rest/middleware"
	pkgerrors "neuronote/pkg/errors"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterConfig carries the HTTP-facing settings.
type RouterConfig struct {
	CORSOrigins     []string
	UploadDir       string
	MaxRequestBytes int64
}

// Limits groups the rate limiters applied to secured routes. LLM applies
// only to routes that call the completion service; nil entries are skipped.
type Limits struct {
	IP   *middleware.RateLimiter
	User *middleware.RateLimiter
	LLM  *middleware.RateLimiter
}

// Router creates and configures the HTTP router
type Router struct {
	commandBus    *bus.CommandBus
	queryBus      *querybus.QueryBus
	authenticator *middleware.Authenticator
	errors        *pkgerrors.ErrorHandler
	limits        Limits
	metrics       ports.Metrics
	db            Pinger
	cfg           RouterConfig
	logger        *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	authenticator *middleware.Authenticator,
	errorHandler *pkgerrors.ErrorHandler,
	limits Limits,
	metrics ports.Metrics,
	db Pinger,
	cfg RouterConfig,
	logger *zap.Logger,
) *Router {
	return &Router{
		commandBus:    commandBus,
		queryBus:      queryBus,
		authenticator: authenticator,
		errors:        errorHandler,
		limits:        limits,
		metrics:       metrics,
		db:            db,
		cfg:           cfg,
		logger:        logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(rt.errors.Middleware)
	router.Use(middleware.Logger(rt.logger))
	router.Use(middleware.Metrics(rt.metrics))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           600,
	}))

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		rt.errors.HandleStatus(w, r, http.StatusNotFound, "Not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		rt.errors.HandleStatus(w, r, http.StatusMethodNotAllowed, "Method not allowed")
	})

	// Public endpoints
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if exporter, ok := rt.metrics.(interface{ Handler() http.Handler }); ok {
		router.Handle("/metrics", exporter.Handler())
	}
	if rt.cfg.UploadDir != "" {
		router.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(rt.cfg.UploadDir))))
	}

	memoryHandler := handlers.NewMemoryHandler(rt.commandBus, rt.queryBus, rt.errors, rt.cfg.MaxRequestBytes, rt.logger)
	chatHandler := handlers.NewChatHandler(rt.commandBus, rt.queryBus, rt.errors, rt.cfg.MaxRequestBytes, rt.logger)
	searchHandler := handlers.NewSearchHandler(rt.queryBus, rt.errors, rt.logger)
	profileHandler := handlers.NewProfileHandler(rt.commandBus, rt.queryBus, rt.errors, rt.logger)
	aiHandler := handlers.NewAIHandler(rt.queryBus, rt.errors, rt.logger)

	// Secured endpoints
	router.Group(func(r chi.Router) {
		if rt.limits.IP != nil {
			r.Use(rt.limits.IP.Middleware)
		}
		r.Use(rt.authenticator.Middleware)
		if rt.limits.User != nil {
			r.Use(rt.limits.User.Middleware)
		}

		r.Route("/memories", func(r chi.Router) {
			r.Post("/", memoryHandler.CreateMemory)
			r.Get("/", memoryHandler.ListMemories)
			r.Get("/recent", memoryHandler.ListRecentMemories)
			r.Get("/{id}", memoryHandler.GetMemory)
			r.Put("/{id}", memoryHandler.ReplaceMemory)
			r.Patch("/{id}", memoryHandler.PatchMemory)
			r.Delete("/{id}", memoryHandler.DeleteMemory)
		})

		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/search", searchHandler.Search)
			r.Get("/memories/{id}", memoryHandler.GetMemory)
		})

		r.Route("/chats", func(r chi.Router) {
			r.Post("/session", chatHandler.CreateSession)
			r.Get("/all/sessions", chatHandler.ListSessions)
			r.Patch("/message/{messageId}", chatHandler.EditMessage)
			r.With(rt.llmLimit).Post("/{sessionId}", chatHandler.SendMessage)
			r.Get("/{sessionId}/messages", chatHandler.ListMessages)
			r.Delete("/{sessionId}", chatHandler.DeleteSession)
		})

		r.With(rt.llmLimit).Get("/ai/ai/chat", aiHandler.Ask)
		r.Get("/search", searchHandler.Search)

		r.Route("/tags", func(r chi.Router) {
			r.Get("/me/all", searchHandler.ListTags)
			r.Get("/search", searchHandler.SearchByTags)
		})

		r.Route("/profile", func(r chi.Router) {
			r.Get("/me", profileHandler.GetProfile)
			r.Post("/me", profileHandler.UploadPhoto)
		})
	})

	return router
}

func (rt *Router) llmLimit(next http.Handler) http.Handler {
	if rt.limits.LLM == nil {
		return next
	}
	return rt.limits.LLM.Middleware(next)
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck reports ready once the relational store answers a ping
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	if rt.db != nil {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if err := rt.db.Ping(ctx); err != nil {
			rt.logger.Warn("Readiness check failed", zap.Error(err))
			rt.errors.HandleStatus(w, req, http.StatusServiceUnavailable, "Database unavailable")
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
