package commands

import (
	"strings"

	"neuronote/domain/core/entities"
	pkgerrors "neuronote/pkg/errors"
)

// CreateSessionCommand opens a chat session
type CreateSessionCommand struct {
	UserID string `json:"userId" validate:"required"`
	Title  string `json:"title" validate:"max=200"`
}

func (c CreateSessionCommand) Validate() error {
	return validate(c)
}

// SendChatMessageCommand runs one retrieval-augmented chat turn
type SendChatMessageCommand struct {
	UserID    string `json:"userId" validate:"required"`
	SessionID string `json:"sessionId" validate:"required"`
	Message   string `json:"message" validate:"max=20000"`
}

func (c SendChatMessageCommand) Validate() error {
	if err := validate(c); err != nil {
		return err
	}
	if strings.TrimSpace(c.Message) == "" {
		return pkgerrors.NewValidationError("message is required")
	}
	return nil
}

// ChatReply is the outcome of one chat turn.
type ChatReply struct {
	Reply            string
	RelevantMemories []*entities.Memory
	UserMessage      *entities.ChatMessage
	AssistantMessage *entities.ChatMessage
}

// EditChatMessageCommand replaces a message's content
type EditChatMessageCommand struct {
	UserID    string `json:"userId" validate:"required"`
	MessageID string `json:"messageId" validate:"required"`
	Content   string `json:"content" validate:"max=20000"`
}

func (c EditChatMessageCommand) Validate() error {
	if err := validate(c); err != nil {
		return err
	}
	if strings.TrimSpace(c.Content) == "" {
		return pkgerrors.NewValidationError("content is required")
	}
	return nil
}

// DeleteSessionCommand removes a session and all of its messages
type DeleteSessionCommand struct {
	UserID    string `json:"userId" validate:"required"`
	SessionID string `json:"sessionId" validate:"required"`
}

func (c DeleteSessionCommand) Validate() error {
	return validate(c)
}
