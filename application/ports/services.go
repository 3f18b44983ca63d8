package ports

import (
	"context"
	"errors"
	"io"
	"time"

	"neuronote/domain/config"
	"neuronote/domain/core/valueobjects"
	"neuronote/domain/events"
)

// IndexRecord is what the semantic index stores for one memory.
type IndexRecord struct {
	ID    string
	Text  string
	Title string
}

// RerankOptions asks for a second, cross-encoder stage.
type RerankOptions struct {
	TopN   int
	Fields []string
	Model  string
}

// SearchRequest is a two-stage semantic query.
type SearchRequest struct {
	QueryText string
	TopK      int
	Rerank    *RerankOptions
}

// RetrievalHit is one ranked result of a search.
type RetrievalHit struct {
	MemoryID string
	Score    float64
	Position int
	Fields   map[string]string
}

// SemanticIndex is the per-user vector index.
type SemanticIndex interface {
	Upsert(ctx context.Context, ns valueobjects.SemanticNamespace, records []IndexRecord) error
	DeleteOne(ctx context.Context, ns valueobjects.SemanticNamespace, id string) error
	Search(ctx context.Context, ns valueobjects.SemanticNamespace, req SearchRequest) ([]RetrievalHit, error)
}

// CompletionMessage is one role-tagged turn sent to the model.
type CompletionMessage struct {
	Role    valueobjects.Role
	Content string
}

// CompletionGateway is a stateless chat completion call.
type CompletionGateway interface {
	Complete(ctx context.Context, model string, messages []CompletionMessage) (valueobjects.ReplyContent, error)
}

// EventBus defines the interface for publishing domain events
type EventBus interface {
	Publish(ctx context.Context, event events.DomainEvent) error
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// Cache defines the interface for caching
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Metrics records the service's operational signals.
type Metrics interface {
	IndexDrift(operation string)
	IndexRepair(outcome string)
	RetrievalHits(candidates, kept int)
	Completion(provider string, duration time.Duration, err error)
	HTTPRequest(method, route string, status int, duration time.Duration)
}

// AvatarStorage persists profile photos and returns their public URL.
type AvatarStorage interface {
	Save(ctx context.Context, userID string, image io.Reader) (string, error)
}

// ErrLockHeld is returned by Locker.Acquire when another owner holds the
// resource.
var ErrLockHeld = errors.New("lock already held")

// Lease is a held lock. Release is safe to call after expiry.
type Lease interface {
	Release(ctx context.Context) error
}

// Locker serialises work on a named resource across processes.
type Locker interface {
	Acquire(ctx context.Context, resource string, ttl time.Duration) (Lease, error)
}

// RetrievalTunables exposes the current, possibly hot-reloaded, retrieval settings.
type RetrievalTunables interface {
	Retrieval() config.RetrievalConfig
}
