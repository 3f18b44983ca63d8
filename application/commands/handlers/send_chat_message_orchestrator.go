package handlers

import (
	"context"
	"time"

	"neuronote/application/commands"
	"neuronote/application/ports"
	"neuronote/application/services"
	"neuronote/domain/core/entities"
	"neuronote/domain/core/valueobjects"
	pkgerrors "neuronote/pkg/errors"
	"neuronote/pkg/observability"

	"go.uber.org/zap"
)

// SendChatMessageOrchestrator runs one retrieval-augmented chat turn:
// persist the user turn, retrieve relevant memories, build the prompt,
// complete, normalise and persist the reply.
type SendChatMessageOrchestrator struct {
	chatRepo   ports.ChatRepository
	retrieval  *services.RetrievalService
	completion ports.CompletionGateway
	tunables   ports.RetrievalTunables
	tracer     *observability.Tracer
	logger     *zap.Logger
}

// NewSendChatMessageOrchestrator creates a new orchestrator instance
func NewSendChatMessageOrchestrator(
	chatRepo ports.ChatRepository,
	retrieval *services.RetrievalService,
	completion ports.CompletionGateway,
	tunables ports.RetrievalTunables,
	tracer *observability.Tracer,
	logger *zap.Logger,
) *SendChatMessageOrchestrator {
	return &SendChatMessageOrchestrator{
		chatRepo:   chatRepo,
		retrieval:  retrieval,
		completion: completion,
		tunables:   tunables,
		tracer:     tracer,
		logger:     logger,
	}
}

// Handle orchestrates the chat turn
func (o *SendChatMessageOrchestrator) Handle(ctx context.Context, cmd commands.SendChatMessageCommand) (*commands.ChatReply, error) {
	cfg := o.tunables.Retrieval().Normalize()
	o.tracer.Annotate(ctx, "userID", cmd.UserID)

	// Step 1: the session must exist and belong to the caller
	session, err := o.chatRepo.FindSession(ctx, cmd.UserID, cmd.SessionID)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return nil, pkgerrors.NewNotFoundMessage("Session not found")
		}
		return nil, err
	}

	// History is read before the user turn is stored so it holds prior
	// messages only
	var history []*entities.ChatMessage
	if cfg.HistoryWindow > 0 {
		history, err = o.chatRepo.RecentMessages(ctx, session.ID, cfg.HistoryWindow)
		if err != nil {
			return nil, err
		}
	}

	// Step 2: persist the user turn before anything can fail upstream
	userMsg, err := entities.NewChatMessage(session.ID, valueobjects.RoleUser, cmd.Message, time.Now())
	if err != nil {
		return nil, err
	}
	if err := o.chatRepo.AppendMessage(ctx, userMsg); err != nil {
		return nil, err
	}

	// Steps 3 and 4: retrieve and hydrate
	var memories []*entities.Memory
	err = o.tracer.Trace(ctx, "retrieve", func(ctx context.Context) error {
		var rerr error
		memories, rerr = o.retrieval.Relevant(ctx, cmd.UserID, cmd.Message, cfg)
		return rerr
	})
	if err != nil {
		return nil, err
	}

	// Step 5: prompt
	prompt, err := services.BuildChatPrompt(history, cmd.Message, memories)
	if err != nil {
		o.logger.Error("Stored chat history is invalid",
			zap.String("sessionID", session.ID),
			zap.Error(err),
		)
		return nil, err
	}

	// Steps 6 and 7: complete and normalise
	var content valueobjects.ReplyContent
	err = o.tracer.Trace(ctx, "complete", func(ctx context.Context) error {
		cctx, cancel := context.WithTimeout(ctx, cfg.CompleteTimeout)
		defer cancel()
		var cerr error
		content, cerr = o.completion.Complete(cctx, cfg.Model, prompt)
		return cerr
	})
	if err != nil {
		if pkgerrors.GetAppError(err) == nil {
			err = pkgerrors.NewUpstreamError("completion", err)
		}
		return nil, err
	}
	reply := content.Normalize(cfg.ChatFallback)

	// Step 8: persist the assistant turn
	assistantMsg, err := entities.NewChatMessage(session.ID, valueobjects.RoleAssistant, reply, time.Now())
	if err != nil {
		return nil, err
	}
	if err := o.chatRepo.AppendMessage(ctx, assistantMsg); err != nil {
		return nil, err
	}

	o.logger.Info("Chat turn completed",
		zap.String("sessionID", session.ID),
		zap.String("userID", cmd.UserID),
		zap.Int("history", len(history)),
		zap.Int("relevantMemories", len(memories)),
	)

	return &commands.ChatReply{
		Reply:            reply,
		RelevantMemories: memories,
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
	}, nil
}
