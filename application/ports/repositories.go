package ports

import (
	"context"
	"time"

	"neuronote/domain/core/entities"
)

// MemoryRepository defines the interface for memory persistence.
// Every read and write is filtered by owner; a row owned by someone else
// behaves exactly like a missing row.
type MemoryRepository interface {
	// Create inserts a new memory with its tags
	Create(ctx context.Context, memory *entities.Memory) error

	// Save overwrites an existing memory. NotFound if (id, userID) matches nothing.
	Save(ctx context.Context, memory *entities.Memory) error

	// FindByID returns the memory or NotFound
	FindByID(ctx context.Context, userID, id string) (*entities.Memory, error)

	// FindByIDs returns the subset of ids that exist for userID, in any order
	FindByIDs(ctx context.Context, userID string, ids []string) ([]*entities.Memory, error)

	// ListByUser returns memories newest first. A zero limit returns all.
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*entities.Memory, error)

	// Delete removes the memory or returns NotFound
	Delete(ctx context.Context, userID, id string) error

	// Search runs the keyword search and returns one page, newest first
	Search(ctx context.Context, criteria SearchCriteria) ([]*entities.Memory, error)

	// FindByTags returns memories carrying any of tags, newest first
	FindByTags(ctx context.Context, userID string, tags []string) ([]*entities.Memory, error)

	// ListTags returns the distinct tags used by userID
	ListTags(ctx context.Context, userID string) ([]string, error)

	// CountByUser counts memories owned by userID
	CountByUser(ctx context.Context, userID string) (int, error)

	// ListOwners returns every user id that owns at least one memory
	ListOwners(ctx context.Context) ([]string, error)
}

// SearchCriteria is a keyword query over title, content and tags.
type SearchCriteria struct {
	UserID   string
	Query    string
	Keywords []string
	Limit    int
	Offset   int
}

// SessionSummary is a session with its most recent message, if any.
type SessionSummary struct {
	Session       *entities.ChatSession
	LatestMessage *entities.ChatMessage
}

// ChatRepository defines the interface for chat sessions and messages.
type ChatRepository interface {
	CreateSession(ctx context.Context, session *entities.ChatSession) error

	// FindSession returns the session or NotFound when absent or not owned
	FindSession(ctx context.Context, userID, sessionID string) (*entities.ChatSession, error)

	// ListSessions returns sessions newest first with their latest message
	ListSessions(ctx context.Context, userID string) ([]SessionSummary, error)

	// AppendMessage stores a message at the end of its session
	AppendMessage(ctx context.Context, message *entities.ChatMessage) error

	// ListMessages returns messages oldest first; empty when the session is not owned
	ListMessages(ctx context.Context, userID, sessionID string) ([]*entities.ChatMessage, error)

	// RecentMessages returns at most limit latest messages, oldest first.
	// Stored roles are returned verbatim and are not validated here.
	RecentMessages(ctx context.Context, sessionID string, limit int) ([]*entities.ChatMessage, error)

	// UpdateMessageContent edits a message whose session belongs to userID
	UpdateMessageContent(ctx context.Context, userID, messageID, content string) (*entities.ChatMessage, error)

	// DeleteSession removes the messages and then the session in one
	// transaction and returns the number of messages removed
	DeleteSession(ctx context.Context, userID, sessionID string) (int, error)
}

// UserRepository reads users and auth sessions written by the auth system.
type UserRepository interface {
	FindByID(ctx context.Context, userID string) (*entities.User, error)
	UpdateImage(ctx context.Context, userID, image string, at time.Time) error
	FindSessionByToken(ctx context.Context, token string) (*entities.AuthSession, error)
}

// RepairOperation is the vector write that diverged.
type RepairOperation string

const (
	RepairUpsert RepairOperation = "upsert"
	RepairDelete RepairOperation = "delete"
)

// IndexRepair is a queued request to reconcile one memory's vector record.
type IndexRepair struct {
	ID        string
	MemoryID  string
	UserID    string
	Operation RepairOperation
	Attempts  int
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IndexRepairQueue is the durable outbox of pending index repairs.
type IndexRepairQueue interface {
	// Enqueue records a repair; a pending repair for the same memory is replaced
	Enqueue(ctx context.Context, repair IndexRepair) error

	// Pending returns repairs with fewer than maxAttempts attempts, oldest first
	Pending(ctx context.Context, limit, maxAttempts int) ([]IndexRepair, error)

	// Complete removes a repair
	Complete(ctx context.Context, id string) error

	// Fail increments the attempt counter and stores reason
	Fail(ctx context.Context, id, reason string) error
}
