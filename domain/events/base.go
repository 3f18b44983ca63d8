package events

import "time"

// SourceBackend is the EventBridge source of every event this service emits.
const SourceBackend = "neuronote.backend"

// Event types
const (
	TypeMemoryCreated       = "memory.created"
	TypeMemoryUpdated       = "memory.updated"
	TypeMemoryDeleted       = "memory.deleted"
	TypeMemoryIndexDrift    = "memory.index_drift"
	TypeMemoryIndexRepaired = "memory.index_repaired"
	TypeChatSessionDeleted  = "chat.session_deleted"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

func newBase(aggregateID, eventType string, at time.Time) BaseEvent {
	return BaseEvent{AggregateID: aggregateID, EventType: eventType, Timestamp: at, Version: 1}
}

// MemoryCreated is raised when a memory row is inserted.
type MemoryCreated struct {
	BaseEvent
	UserID string   `json:"user_id"`
	Tags   []string `json:"tags"`
}

func NewMemoryCreated(memoryID, userID string, tags []string, at time.Time) MemoryCreated {
	return MemoryCreated{BaseEvent: newBase(memoryID, TypeMemoryCreated, at), UserID: userID, Tags: tags}
}

// MemoryUpdated is raised when any memory field changes.
type MemoryUpdated struct {
	BaseEvent
	UserID         string `json:"user_id"`
	ContentChanged bool   `json:"content_changed"`
}

func NewMemoryUpdated(memoryID, userID string, contentChanged bool, at time.Time) MemoryUpdated {
	return MemoryUpdated{BaseEvent: newBase(memoryID, TypeMemoryUpdated, at), UserID: userID, ContentChanged: contentChanged}
}

// MemoryDeleted is raised after the row is removed.
type MemoryDeleted struct {
	BaseEvent
	UserID string `json:"user_id"`
}

func NewMemoryDeleted(memoryID, userID string, at time.Time) MemoryDeleted {
	return MemoryDeleted{BaseEvent: newBase(memoryID, TypeMemoryDeleted, at), UserID: userID}
}

// MemoryIndexDrift records that the vector index no longer mirrors the
// relational row. Consumers run the idempotent repair for the memory.
type MemoryIndexDrift struct {
	BaseEvent
	UserID    string `json:"user_id"`
	Operation string `json:"operation"`
	Reason    string `json:"reason"`
}

func NewMemoryIndexDrift(memoryID, userID, operation, reason string, at time.Time) MemoryIndexDrift {
	return MemoryIndexDrift{
		BaseEvent: newBase(memoryID, TypeMemoryIndexDrift, at),
		UserID:    userID,
		Operation: operation,
		Reason:    reason,
	}
}

// MemoryIndexRepaired is raised once a repair converged.
type MemoryIndexRepaired struct {
	BaseEvent
	UserID string `json:"user_id"`
	Action string `json:"action"`
}

func NewMemoryIndexRepaired(memoryID, userID, action string, at time.Time) MemoryIndexRepaired {
	return MemoryIndexRepaired{BaseEvent: newBase(memoryID, TypeMemoryIndexRepaired, at), UserID: userID, Action: action}
}

// ChatSessionDeleted is raised after a session and its messages are removed.
type ChatSessionDeleted struct {
	BaseEvent
	UserID       string `json:"user_id"`
	MessageCount int    `json:"message_count"`
}

func NewChatSessionDeleted(sessionID, userID string, messageCount int, at time.Time) ChatSessionDeleted {
	return ChatSessionDeleted{BaseEvent: newBase(sessionID, TypeChatSessionDeleted, at), UserID: userID, MessageCount: messageCount}
}
