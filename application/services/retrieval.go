package services

import (
	"context"
	"fmt"

	"neuronote/application/ports"
	"neuronote/domain/config"
	"neuronote/domain/core/entities"
	"neuronote/domain/core/valueobjects"
	pkgerrors "neuronote/pkg/errors"

	"go.uber.org/zap"
)

// RetrievalService finds the memories relevant to a piece of text
type RetrievalService struct {
	index      ports.SemanticIndex
	memoryRepo ports.MemoryRepository
	metrics    ports.Metrics
	logger     *zap.Logger
}

// NewRetrievalService creates a new retrieval service
func NewRetrievalService(
	index ports.SemanticIndex,
	memoryRepo ports.MemoryRepository,
	metrics ports.Metrics,
	logger *zap.Logger,
) *RetrievalService {
	return &RetrievalService{
		index:      index,
		memoryRepo: memoryRepo,
		metrics:    metrics,
		logger:     logger,
	}
}

// Relevant searches userID's namespace, drops hits scoring under the
// relevance floor, and returns the surviving memories in hit order. Hits
// whose row is gone or owned by someone else are dropped silently.
func (s *RetrievalService) Relevant(ctx context.Context, userID, text string, cfg config.RetrievalConfig) ([]*entities.Memory, error) {
	ns, err := valueobjects.NamespaceFor(userID)
	if err != nil {
		return nil, pkgerrors.NewValidationError(err.Error())
	}

	hits, err := s.index.Search(ctx, ns, ports.SearchRequest{
		QueryText: text,
		TopK:      cfg.TopK,
		Rerank: &ports.RerankOptions{
			TopN:   cfg.TopN,
			Fields: []string{"text"},
			Model:  cfg.RerankModel,
		},
	})
	if err != nil {
		return nil, pkgerrors.NewUpstreamError("semantic index", err)
	}

	ids := make([]string, 0, len(hits))
	seen := make(map[string]struct{}, len(hits))
	for _, hit := range hits {
		if hit.Score < cfg.RelevanceFloor {
			continue
		}
		if _, dup := seen[hit.MemoryID]; dup {
			continue
		}
		seen[hit.MemoryID] = struct{}{}
		ids = append(ids, hit.MemoryID)
	}
	if len(ids) == 0 {
		s.metrics.RetrievalHits(len(hits), 0)
		return []*entities.Memory{}, nil
	}

	rows, err := s.memoryRepo.FindByIDs(ctx, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to hydrate memories: %w", err)
	}

	byID := make(map[string]*entities.Memory, len(rows))
	for _, m := range rows {
		if m.IsOwnedBy(userID) {
			byID[m.ID()] = m
		}
	}

	memories := make([]*entities.Memory, 0, len(ids))
	for _, id := range ids {
		if m, ok := byID[id]; ok {
			memories = append(memories, m)
		}
	}

	if dropped := len(ids) - len(memories); dropped > 0 {
		s.logger.Debug("Dropped hits without a row",
			zap.String("userID", userID),
			zap.Int("dropped", dropped),
		)
	}
	s.metrics.RetrievalHits(len(hits), len(memories))
	return memories, nil
}
