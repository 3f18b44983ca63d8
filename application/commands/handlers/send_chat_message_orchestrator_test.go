package handlers

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"neuronote/application/commands"
	"neuronote/application/ports"
	"neuronote/application/ports/mocks"
	"neuronote/application/services"
	"neuronote/domain/config"
	"neuronote/domain/core/entities"
	"neuronote/domain/core/valueobjects"
	pkgerrors "neuronote/pkg/errors"
	"neuronote/pkg/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type chatFixture struct {
	chat       *mocks.MockChatRepository
	memories   *mocks.MockMemoryRepository
	index      *mocks.MockSemanticIndex
	completion *mocks.MockCompletionGateway
	metrics    *mocks.MockMetrics
	handler    *SendChatMessageOrchestrator
}

func newChatFixture() *chatFixture {
	f := &chatFixture{
		chat:       new(mocks.MockChatRepository),
		memories:   new(mocks.MockMemoryRepository),
		index:      new(mocks.MockSemanticIndex),
		completion: new(mocks.MockCompletionGateway),
		metrics:    new(mocks.MockMetrics),
	}
	f.metrics.On("RetrievalHits", mock.Anything, mock.Anything).Return()
	retrieval := services.NewRetrievalService(f.index, f.memories, f.metrics, zap.NewNop())
	f.handler = NewSendChatMessageOrchestrator(
		f.chat,
		retrieval,
		f.completion,
		mocks.StaticTunables{Config: config.DefaultRetrievalConfig()},
		observability.NewTracer("test", false),
		zap.NewNop(),
	)
	return f
}

func session() *entities.ChatSession {
	return &entities.ChatSession{ID: "s1", UserID: "user-1", Title: "New Chat", CreatedAt: time.Now()}
}

func TestSendChatMessageOrchestrator_Handle_Success(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newChatFixture()
	history := []*entities.ChatMessage{
		{ID: "h1", SessionID: "s1", Role: valueobjects.RoleUser, Content: "I went to Rome"},
		{ID: "h2", SessionID: "s1", Role: valueobjects.RoleAssistant, Content: "Nice!"},
	}
	mem := entities.ReconstructMemory("m1", "user-1", "Trip", "Rome in May", nil, nil, false, time.Now(), time.Now())

	f.chat.On("FindSession", ctx, "user-1", "s1").Return(session(), nil)
	f.chat.On("RecentMessages", ctx, "s1", 10).Return(history, nil)
	f.chat.On("AppendMessage", ctx, mock.MatchedBy(func(m *entities.ChatMessage) bool {
		return m.Role == valueobjects.RoleUser && m.Content == "when was it?"
	})).Return(nil).Once()
	f.index.On("Search", mock.Anything, mock.Anything, mock.Anything).
		Return([]ports.RetrievalHit{{MemoryID: "m1", Score: 0.7}}, nil)
	f.memories.On("FindByIDs", mock.Anything, "user-1", []string{"m1"}).Return([]*entities.Memory{mem}, nil)
	f.completion.On("Complete", mock.Anything, "mistral-large-latest", mock.MatchedBy(func(msgs []ports.CompletionMessage) bool {
		last := msgs[len(msgs)-1]
		return len(msgs) == 4 &&
			msgs[0].Role == valueobjects.RoleSystem &&
			msgs[1].Content == "I went to Rome" &&
			strings.Contains(last.Content, "- Trip: Rome in May")
	})).Return(valueobjects.ChunkList(
		valueobjects.ReplyChunk{Kind: "text", Text: "In "},
		valueobjects.ReplyChunk{Kind: "image"},
		valueobjects.ReplyChunk{Kind: "text", Text: "May."},
	), nil)
	f.chat.On("AppendMessage", ctx, mock.MatchedBy(func(m *entities.ChatMessage) bool {
		return m.Role == valueobjects.RoleAssistant && m.Content == "In May."
	})).Return(nil).Once()

	// Act
	reply, err := f.handler.Handle(ctx, commands.SendChatMessageCommand{UserID: "user-1", SessionID: "s1", Message: "when was it?"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "In May.", reply.Reply)
	require.Len(t, reply.RelevantMemories, 1)
	assert.Equal(t, "m1", reply.RelevantMemories[0].ID())
	f.chat.AssertExpectations(t)
	f.completion.AssertExpectations(t)
}

func TestSendChatMessageOrchestrator_Handle_LowScoreStillCompletes(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture()
	f.chat.On("FindSession", ctx, "user-1", "s1").Return(session(), nil)
	f.chat.On("RecentMessages", ctx, "s1", 10).Return([]*entities.ChatMessage{}, nil)
	f.chat.On("AppendMessage", ctx, mock.Anything).Return(nil)
	f.index.On("Search", mock.Anything, mock.Anything, mock.Anything).
		Return([]ports.RetrievalHit{{MemoryID: "m1", Score: 0.15}}, nil)
	f.completion.On("Complete", mock.Anything, mock.Anything, mock.MatchedBy(func(msgs []ports.CompletionMessage) bool {
		return strings.HasSuffix(msgs[len(msgs)-1].Content, "## CONTEXTUAL USER MEMORIES")
	})).Return(valueobjects.ReplyContent{}, nil)

	reply, err := f.handler.Handle(ctx, commands.SendChatMessageCommand{UserID: "user-1", SessionID: "s1", Message: "hi"})

	require.NoError(t, err)
	assert.Equal(t, "I don't know how to respond.", reply.Reply)
	assert.Empty(t, reply.RelevantMemories)
	f.chat.AssertNumberOfCalls(t, "AppendMessage", 2)
	f.memories.AssertNotCalled(t, "FindByIDs", mock.Anything, mock.Anything, mock.Anything)
}

func TestSendChatMessageOrchestrator_Handle_SessionNotFound(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture()
	f.chat.On("FindSession", ctx, "user-2", "s1").Return(nil, pkgerrors.NewNotFoundError("Session"))

	_, err := f.handler.Handle(ctx, commands.SendChatMessageCommand{UserID: "user-2", SessionID: "s1", Message: "hi"})

	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
	assert.Equal(t, "Session not found", pkgerrors.GetAppError(err).Message)
	f.chat.AssertNotCalled(t, "AppendMessage", mock.Anything, mock.Anything)
}

func TestSendChatMessageOrchestrator_Handle_InvalidStoredRole(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture()
	f.chat.On("FindSession", ctx, "user-1", "s1").Return(session(), nil)
	f.chat.On("RecentMessages", ctx, "s1", 10).Return([]*entities.ChatMessage{
		{ID: "h1", SessionID: "s1", Role: valueobjects.Role("narrator"), Content: "?"},
	}, nil)
	f.chat.On("AppendMessage", ctx, mock.Anything).Return(nil)
	f.index.On("Search", mock.Anything, mock.Anything, mock.Anything).Return([]ports.RetrievalHit{}, nil)

	_, err := f.handler.Handle(ctx, commands.SendChatMessageCommand{UserID: "user-1", SessionID: "s1", Message: "hi"})

	assert.True(t, pkgerrors.IsInternal(err))
	f.completion.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
}

func TestSendChatMessageOrchestrator_Handle_CompletionFailureIsUpstream(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture()
	f.chat.On("FindSession", ctx, "user-1", "s1").Return(session(), nil)
	f.chat.On("RecentMessages", ctx, "s1", 10).Return([]*entities.ChatMessage{}, nil)
	f.chat.On("AppendMessage", ctx, mock.Anything).Return(nil).Once()
	f.index.On("Search", mock.Anything, mock.Anything, mock.Anything).Return([]ports.RetrievalHit{}, nil)
	f.completion.On("Complete", mock.Anything, mock.Anything, mock.Anything).
		Return(valueobjects.ReplyContent{}, errors.New("503"))

	_, err := f.handler.Handle(ctx, commands.SendChatMessageCommand{UserID: "user-1", SessionID: "s1", Message: "hi"})

	assert.True(t, pkgerrors.IsUpstream(err))
	// the user turn stays, no assistant turn is written
	f.chat.AssertNumberOfCalls(t, "AppendMessage", 1)
}

func TestSendChatMessageCommand_Validate_MessageRequired(t *testing.T) {
	err := commands.SendChatMessageCommand{UserID: "u", SessionID: "s", Message: "  "}.Validate()
	assert.True(t, pkgerrors.IsValidation(err))
}
