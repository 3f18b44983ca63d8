package entities

import (
	"strings"
	"time"

	"neuronote/domain/core/valueobjects"
	pkgerrors "neuronote/pkg/errors"
)

// DefaultSessionTitle names sessions created without a title.
const DefaultSessionTitle = "New Chat"

// ChatSession groups an ordered conversation owned by one user.
type ChatSession struct {
	ID        string        `json:"id"`
	UserID    string        `json:"userId"`
	Title     string        `json:"title"`
	CreatedAt time.Time     `json:"createdAt"`
	Messages  []ChatMessage `json:"messages,omitempty"`
}

// NewChatSession creates a session. A blank title gets the default.
func NewChatSession(userID, title string, now time.Time) (*ChatSession, error) {
	if userID == "" {
		return nil, pkgerrors.NewValidationError("userID cannot be empty")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultSessionTitle
	}
	return &ChatSession{
		ID:        valueobjects.NewID(),
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
	}, nil
}

// ChatMessage is a single turn. Messages are append-only except for an
// explicit content edit.
type ChatMessage struct {
	ID        string            `json:"id"`
	SessionID string            `json:"sessionId"`
	Role      valueobjects.Role `json:"role"`
	Content   string            `json:"content"`
	CreatedAt time.Time         `json:"createdAt"`
}

// NewChatMessage creates a message for sessionID.
func NewChatMessage(sessionID string, role valueobjects.Role, content string, now time.Time) (*ChatMessage, error) {
	if sessionID == "" {
		return nil, pkgerrors.NewValidationError("sessionID cannot be empty")
	}
	if _, err := valueobjects.ParseRole(string(role)); err != nil {
		return nil, pkgerrors.NewValidationError(err.Error())
	}
	return &ChatMessage{
		ID:        valueobjects.NewID(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: now,
	}, nil
}
