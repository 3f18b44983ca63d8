package handlers

import (
	"context"

	"neuronote/application/ports"
	"neuronote/application/queries"
	"neuronote/domain/config"
	"neuronote/domain/core/valueobjects"
	"neuronote/pkg/common"
	pkgerrors "neuronote/pkg/errors"

	"go.uber.org/zap"
)

// MemoryQueryHandler serves the ownership-filtered memory reads
type MemoryQueryHandler struct {
	memoryRepo ports.MemoryRepository
	cfg        *config.DomainConfig
	logger     *zap.Logger
}

// NewMemoryQueryHandler creates a new memory query handler
func NewMemoryQueryHandler(memoryRepo ports.MemoryRepository, cfg *config.DomainConfig, logger *zap.Logger) *MemoryQueryHandler {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &MemoryQueryHandler{memoryRepo: memoryRepo, cfg: cfg, logger: logger}
}

// GetMemory returns one memory or NotFound
func (h *MemoryQueryHandler) GetMemory(ctx context.Context, query queries.GetMemoryQuery) (*queries.MemoryView, error) {
	m, err := h.memoryRepo.FindByID(ctx, query.UserID, query.MemoryID)
	if err != nil {
		return nil, err
	}
	view := queries.NewMemoryView(m)
	return &view, nil
}

// ListMemories returns a page of memories newest first
func (h *MemoryQueryHandler) ListMemories(ctx context.Context, query queries.ListMemoriesQuery) ([]queries.MemoryView, error) {
	memories, err := h.memoryRepo.ListByUser(ctx, query.UserID, query.Page.Limit, query.Page.Offset)
	if err != nil {
		return nil, err
	}
	return queries.NewMemoryViews(memories), nil
}

// ListRecentMemories returns the newest memories
func (h *MemoryQueryHandler) ListRecentMemories(ctx context.Context, query queries.ListRecentMemoriesQuery) ([]queries.MemoryView, error) {
	limit := query.Limit
	if limit == 0 {
		limit = h.cfg.RecentMemoryLimit
	}
	memories, err := h.memoryRepo.ListByUser(ctx, query.UserID, limit, 0)
	if err != nil {
		return nil, err
	}
	return queries.NewMemoryViews(memories), nil
}

// SearchMemories runs the keyword search
func (h *MemoryQueryHandler) SearchMemories(ctx context.Context, query queries.SearchMemoriesQuery) (*queries.SearchMemoriesResult, error) {
	page := query.Page
	if page.Limit == 0 {
		page.Limit = h.cfg.DefaultSearchLimit
	}

	memories, err := h.memoryRepo.Search(ctx, ports.SearchCriteria{
		UserID:   query.UserID,
		Query:    query.Query,
		Keywords: valueobjects.SplitKeywords(query.Query),
		Limit:    page.Limit,
		Offset:   page.Offset,
	})
	if err != nil {
		return nil, err
	}

	return &queries.SearchMemoriesResult{
		Data: queries.NewMemoryViews(memories),
		Meta: common.PageMeta{Count: len(memories), Limit: page.Limit, Offset: page.Offset},
	}, nil
}

// ListTags returns the distinct tags of the caller
func (h *MemoryQueryHandler) ListTags(ctx context.Context, query queries.ListTagsQuery) (*queries.ListTagsResult, error) {
	tags, err := h.memoryRepo.ListTags(ctx, query.UserID)
	if err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []string{}
	}
	return &queries.ListTagsResult{Tags: tags, Count: len(tags)}, nil
}

// SearchByTags returns memories having any of the requested tags
func (h *MemoryQueryHandler) SearchByTags(ctx context.Context, query queries.SearchByTagsQuery) (*queries.SearchByTagsResult, error) {
	if query.Raw == "" || len(valueobjects.SplitKeywords(query.Raw)) == 0 {
		return nil, pkgerrors.NewValidationError("Query parameter 'q' is required.")
	}
	tags := valueobjects.SplitTagQuery(query.Raw)
	if len(tags) == 0 {
		return nil, pkgerrors.NewValidationError("No valid tags provided.")
	}

	memories, err := h.memoryRepo.FindByTags(ctx, query.UserID, tags)
	if err != nil {
		return nil, err
	}

	return &queries.SearchByTagsResult{
		Tags:    tags,
		Count:   len(memories),
		Results: queries.NewMemoryViews(memories),
	}, nil
}
