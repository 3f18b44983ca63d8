package services

import (
	"context"
	"fmt"
	"time"

	"neuronote/application/ports"
	"neuronote/domain/core/entities"
	"neuronote/domain/core/valueobjects"
	"neuronote/domain/events"
	pkgerrors "neuronote/pkg/errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Repair outcomes reported to metrics and events
const (
	RepairActionUpserted = "upserted"
	RepairActionDeleted  = "deleted"
	RepairOutcomeFailed  = "failed"
)

// IndexSync keeps the semantic index aligned with the relational store.
// Handlers use it for the vector half of the dual write; the repair
// processor, the index-repair function and the reindex CLI use it directly
// without the command bus.
type IndexSync struct {
	memoryRepo ports.MemoryRepository
	index      ports.SemanticIndex
	repairs    ports.IndexRepairQueue
	eventBus   ports.EventBus
	metrics    ports.Metrics
	logger     *zap.Logger
}

// NewIndexSync creates a new index sync service
func NewIndexSync(
	memoryRepo ports.MemoryRepository,
	index ports.SemanticIndex,
	repairs ports.IndexRepairQueue,
	eventBus ports.EventBus,
	metrics ports.Metrics,
	logger *zap.Logger,
) *IndexSync {
	return &IndexSync{
		memoryRepo: memoryRepo,
		index:      index,
		repairs:    repairs,
		eventBus:   eventBus,
		metrics:    metrics,
		logger:     logger,
	}
}

// RecordFor builds the vector record stored for a memory.
func RecordFor(m *entities.Memory) ports.IndexRecord {
	return ports.IndexRecord{ID: m.ID(), Text: m.Content(), Title: m.Title()}
}

// Upsert writes the memory's vector record into its owner's namespace.
func (s *IndexSync) Upsert(ctx context.Context, m *entities.Memory) error {
	ns, err := valueobjects.NamespaceFor(m.UserID())
	if err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return s.index.Upsert(ctx, ns, []ports.IndexRecord{RecordFor(m)})
}

// Delete removes one vector record from userID's namespace.
func (s *IndexSync) Delete(ctx context.Context, userID, memoryID string) error {
	ns, err := valueobjects.NamespaceFor(userID)
	if err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return s.index.DeleteOne(ctx, ns, memoryID)
}

// RecordDrift handles a vector write that failed after the row was
// committed. The row is kept. The drift is logged and counted, queued for
// repair and published. None of these steps can fail the caller.
func (s *IndexSync) RecordDrift(ctx context.Context, memoryID, userID string, op ports.RepairOperation, cause error) {
	reason := ""
	if cause != nil {
		reason = cause.Error()
	}
	s.logger.Warn("Semantic index drift",
		zap.String("memoryID", memoryID),
		zap.String("userID", userID),
		zap.String("operation", string(op)),
		zap.Error(cause),
	)
	s.metrics.IndexDrift(string(op))

	// the request context may already be done; the bookkeeping must still land
	ctx = context.WithoutCancel(ctx)
	now := time.Now()
	if err := s.repairs.Enqueue(ctx, ports.IndexRepair{
		ID:        valueobjects.NewID(),
		MemoryID:  memoryID,
		UserID:    userID,
		Operation: op,
		LastError: reason,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		s.logger.Error("Failed to enqueue index repair",
			zap.String("memoryID", memoryID),
			zap.Error(err),
		)
	}

	event := events.NewMemoryIndexDrift(memoryID, userID, string(op), reason, now)
	if err := s.eventBus.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish drift event", zap.String("memoryID", memoryID), zap.Error(err))
	}
}

// Repair makes the vector record of memoryID match its row: a live row is
// re-upserted, a missing row has its record deleted. Running it twice is
// harmless.
func (s *IndexSync) Repair(ctx context.Context, userID, memoryID string) (string, error) {
	m, err := s.memoryRepo.FindByID(ctx, userID, memoryID)
	switch {
	case err == nil:
		if err := s.Upsert(ctx, m); err != nil {
			s.metrics.IndexRepair(RepairOutcomeFailed)
			return "", fmt.Errorf("failed to re-upsert vector record: %w", err)
		}
		s.finishRepair(ctx, memoryID, userID, RepairActionUpserted)
		return RepairActionUpserted, nil

	case pkgerrors.IsNotFound(err):
		if err := s.Delete(ctx, userID, memoryID); err != nil {
			s.metrics.IndexRepair(RepairOutcomeFailed)
			return "", fmt.Errorf("failed to delete vector record: %w", err)
		}
		s.finishRepair(ctx, memoryID, userID, RepairActionDeleted)
		return RepairActionDeleted, nil

	default:
		s.metrics.IndexRepair(RepairOutcomeFailed)
		return "", fmt.Errorf("failed to load memory: %w", err)
	}
}

func (s *IndexSync) finishRepair(ctx context.Context, memoryID, userID, action string) {
	s.metrics.IndexRepair(action)
	s.logger.Info("Semantic index repaired",
		zap.String("memoryID", memoryID),
		zap.String("userID", userID),
		zap.String("action", action),
	)
	event := events.NewMemoryIndexRepaired(memoryID, userID, action, time.Now())
	if err := s.eventBus.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish repair event", zap.String("memoryID", memoryID), zap.Error(err))
	}
}

// ReindexUser re-upserts every memory of userID with bounded parallelism and
// returns how many records were written and how many failed.
func (s *IndexSync) ReindexUser(ctx context.Context, userID string, parallelism int) (int, int, error) {
	memories, err := s.memoryRepo.ListByUser(ctx, userID, 0, 0)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list memories: %w", err)
	}
	if parallelism <= 0 {
		parallelism = 4
	}

	results := make([]error, len(memories))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i, m := range memories {
		g.Go(func() error {
			results[i] = s.Upsert(gctx, m)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for i, err := range results {
		if err != nil {
			failed++
			s.logger.Warn("Reindex failed for memory",
				zap.String("memoryID", memories[i].ID()),
				zap.String("userID", userID),
				zap.Error(err),
			)
		}
	}
	return len(memories) - failed, failed, ctx.Err()
}
