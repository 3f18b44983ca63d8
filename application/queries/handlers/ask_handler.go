package handlers

import (
	"context"

	"neuronote/application/ports"
	"neuronote/application/queries"
	"neuronote/application/services"
	"neuronote/pkg/common"
	pkgerrors "neuronote/pkg/errors"
	"neuronote/pkg/observability"

	"go.uber.org/zap"
)

// AskHandler answers a one-shot question from the caller's memories.
// Retrieval is the same as a chat turn; nothing is persisted.
type AskHandler struct {
	retrieval  *services.RetrievalService
	completion ports.CompletionGateway
	tunables   ports.RetrievalTunables
	tracer     *observability.Tracer
	logger     *zap.Logger
}

func NewAskHandler(
	retrieval *services.RetrievalService,
	completion ports.CompletionGateway,
	tunables ports.RetrievalTunables,
	tracer *observability.Tracer,
	logger *zap.Logger,
) *AskHandler {
	return &AskHandler{
		retrieval:  retrieval,
		completion: completion,
		tunables:   tunables,
		tracer:     tracer,
		logger:     logger,
	}
}

// Handle executes the ask query
func (h *AskHandler) Handle(ctx context.Context, query queries.AskQuery) (*queries.AskResult, error) {
	cfg := h.tunables.Retrieval().Normalize()

	page := query.Page
	if page.Limit == 0 {
		page.Limit = cfg.QueryPageLimit
	}

	memories, err := h.retrieval.Relevant(ctx, query.UserID, query.Query, cfg)
	if err != nil {
		return nil, err
	}
	start, end := page.Window(len(memories))
	memories = memories[start:end]

	var summary string
	err = h.tracer.Trace(ctx, "complete", func(ctx context.Context) error {
		cctx, cancel := context.WithTimeout(ctx, cfg.CompleteTimeout)
		defer cancel()
		content, cerr := h.completion.Complete(cctx, cfg.Model, services.BuildQueryPrompt(query.Query, memories))
		if cerr != nil {
			return cerr
		}
		summary = content.Normalize(cfg.QueryFallback)
		return nil
	})
	if err != nil {
		if pkgerrors.GetAppError(err) == nil {
			err = pkgerrors.NewUpstreamError("completion", err)
		}
		return nil, err
	}

	h.logger.Debug("Answered query",
		zap.String("userID", query.UserID),
		zap.Int("memories", len(memories)),
	)

	return &queries.AskResult{
		Query:   query.Query,
		Summary: summary,
		Results: queries.NewMemoryViews(memories),
		Meta:    common.PageMeta{Count: len(memories), Limit: page.Limit, Offset: page.Offset},
	}, nil
}
