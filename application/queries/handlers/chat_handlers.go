package handlers

import (
	"context"

	"neuronote/application/ports"
	"neuronote/application/queries"
	pkgerrors "neuronote/pkg/errors"

	"go.uber.org/zap"
)

// ChatQueryHandler serves session and message listings
type ChatQueryHandler struct {
	chatRepo ports.ChatRepository
	logger   *zap.Logger
}

func NewChatQueryHandler(chatRepo ports.ChatRepository, logger *zap.Logger) *ChatQueryHandler {
	return &ChatQueryHandler{chatRepo: chatRepo, logger: logger}
}

// ListSessions returns sessions newest first with their latest message
func (h *ChatQueryHandler) ListSessions(ctx context.Context, query queries.ListSessionsQuery) ([]queries.SessionView, error) {
	summaries, err := h.chatRepo.ListSessions(ctx, query.UserID)
	if err != nil {
		return nil, err
	}
	views := make([]queries.SessionView, 0, len(summaries))
	for _, s := range summaries {
		views = append(views, queries.NewSessionView(s.Session, s.LatestMessage))
	}
	return views, nil
}

// ListMessages returns messages oldest first. A session the caller does not
// own simply has no messages.
func (h *ChatQueryHandler) ListMessages(ctx context.Context, query queries.ListMessagesQuery) ([]queries.MessageView, error) {
	messages, err := h.chatRepo.ListMessages(ctx, query.UserID, query.SessionID)
	if err != nil {
		return nil, err
	}
	return queries.NewMessageViews(messages), nil
}

// ProfileQueryHandler loads the caller's profile
type ProfileQueryHandler struct {
	userRepo   ports.UserRepository
	memoryRepo ports.MemoryRepository
}

func NewProfileQueryHandler(userRepo ports.UserRepository, memoryRepo ports.MemoryRepository) *ProfileQueryHandler {
	return &ProfileQueryHandler{userRepo: userRepo, memoryRepo: memoryRepo}
}

func (h *ProfileQueryHandler) Handle(ctx context.Context, query queries.GetProfileQuery) (*queries.ProfileView, error) {
	user, err := h.userRepo.FindByID(ctx, query.UserID)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return nil, pkgerrors.NewNotFoundMessage("User not found")
		}
		return nil, err
	}

	count, err := h.memoryRepo.CountByUser(ctx, query.UserID)
	if err != nil {
		return nil, err
	}

	view := queries.NewProfileView(user, count)
	return &view, nil
}
