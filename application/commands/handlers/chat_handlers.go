package handlers

import (
	"context"
	"time"

	"neuronote/application/commands"
	"neuronote/application/ports"
	"neuronote/domain/core/entities"
	"neuronote/domain/events"
	pkgerrors "neuronote/pkg/errors"

	"go.uber.org/zap"
)

// CreateSessionHandler opens chat sessions
type CreateSessionHandler struct {
	chatRepo ports.ChatRepository
	logger   *zap.Logger
}

func NewCreateSessionHandler(chatRepo ports.ChatRepository, logger *zap.Logger) *CreateSessionHandler {
	return &CreateSessionHandler{chatRepo: chatRepo, logger: logger}
}

func (h *CreateSessionHandler) Handle(ctx context.Context, cmd commands.CreateSessionCommand) (*entities.ChatSession, error) {
	session, err := entities.NewChatSession(cmd.UserID, cmd.Title, time.Now())
	if err != nil {
		return nil, err
	}
	if err := h.chatRepo.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	h.logger.Info("Chat session created",
		zap.String("sessionID", session.ID),
		zap.String("userID", cmd.UserID),
	)
	return session, nil
}

// EditChatMessageHandler replaces the content of a message
type EditChatMessageHandler struct {
	chatRepo ports.ChatRepository
	logger   *zap.Logger
}

func NewEditChatMessageHandler(chatRepo ports.ChatRepository, logger *zap.Logger) *EditChatMessageHandler {
	return &EditChatMessageHandler{chatRepo: chatRepo, logger: logger}
}

func (h *EditChatMessageHandler) Handle(ctx context.Context, cmd commands.EditChatMessageCommand) (*entities.ChatMessage, error) {
	msg, err := h.chatRepo.UpdateMessageContent(ctx, cmd.UserID, cmd.MessageID, cmd.Content)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return nil, pkgerrors.NewNotFoundMessage("Message not found or unauthorized")
		}
		return nil, err
	}

	h.logger.Info("Chat message edited",
		zap.String("messageID", cmd.MessageID),
		zap.String("userID", cmd.UserID),
	)
	return msg, nil
}

// DeleteSessionHandler removes a session with its messages
type DeleteSessionHandler struct {
	chatRepo ports.ChatRepository
	eventBus ports.EventBus
	logger   *zap.Logger
}

func NewDeleteSessionHandler(chatRepo ports.ChatRepository, eventBus ports.EventBus, logger *zap.Logger) *DeleteSessionHandler {
	return &DeleteSessionHandler{chatRepo: chatRepo, eventBus: eventBus, logger: logger}
}

func (h *DeleteSessionHandler) Handle(ctx context.Context, cmd commands.DeleteSessionCommand) error {
	removed, err := h.chatRepo.DeleteSession(ctx, cmd.UserID, cmd.SessionID)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return pkgerrors.NewNotFoundMessage("Session not found or unauthorized")
		}
		return err
	}

	event := events.NewChatSessionDeleted(cmd.SessionID, cmd.UserID, removed, time.Now())
	if err := h.eventBus.Publish(ctx, event); err != nil {
		h.logger.Warn("Failed to publish deletion event", zap.Error(err))
	}

	h.logger.Info("Chat session deleted",
		zap.String("sessionID", cmd.SessionID),
		zap.String("userID", cmd.UserID),
		zap.Int("messages", removed),
	)
	return nil
}
