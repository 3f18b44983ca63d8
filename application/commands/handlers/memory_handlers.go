package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"neuronote/application/commands"
	"neuronote/application/ports"
	"neuronote/application/queries"
	"neuronote/application/sagas"
	"neuronote/application/services"
	"neuronote/domain/core/entities"
	"neuronote/domain/events"
	pkgerrors "neuronote/pkg/errors"

	"go.uber.org/zap"
)

// Vector writes are retried in-request before they are handed to the
// repair queue.
const (
	indexAttempts   = 2
	indexRetryDelay = 100 * time.Millisecond
)

// memoryWriter holds what every memory write needs: the row store, the index
// sync for the vector half and the event bus.
type memoryWriter struct {
	memoryRepo ports.MemoryRepository
	sync       *services.IndexSync
	eventBus   ports.EventBus
	cache      ports.Cache
	logger     *zap.Logger
}

// dualWrite persists the row, then upserts the vector record. A vector
// failure is recorded as drift and never undoes the row.
func (w *memoryWriter) dualWrite(ctx context.Context, name string, m *entities.Memory, persist func(context.Context, *entities.Memory) error) error {
	saga := sagas.NewSagaBuilder(name, w.logger).
		WithField(zap.String("memoryID", m.ID())).
		WithStep("persist-row", func(ctx context.Context, data interface{}) (interface{}, error) {
			if err := persist(ctx, m); err != nil {
				return nil, err
			}
			return m, nil
		}).
		WithBestEffortStep("index-vector",
			func(ctx context.Context, data interface{}) (interface{}, error) {
				return data, w.sync.Upsert(ctx, m)
			},
			indexAttempts, indexRetryDelay,
			func(ctx context.Context, _ interface{}, err error) {
				w.sync.RecordDrift(ctx, m.ID(), m.UserID(), ports.RepairUpsert, err)
			}).
		Build()

	_, err := saga.Execute(ctx, m)
	return err
}

func (w *memoryWriter) publish(ctx context.Context, memoryID string, evts []events.DomainEvent) {
	if len(evts) == 0 {
		return
	}
	if err := w.eventBus.PublishBatch(ctx, evts); err != nil {
		// events are informational; the write already committed
		w.logger.Warn("Failed to publish memory events",
			zap.String("memoryID", memoryID),
			zap.Int("eventCount", len(evts)),
			zap.Error(err),
		)
	}
}

func (w *memoryWriter) invalidateTags(ctx context.Context, userID string) {
	if w.cache == nil {
		return
	}
	_ = w.cache.Delete(ctx, queries.ListTagsQuery{UserID: userID}.CacheKey())
}

// CreateMemoryHandler handles memory creation
type CreateMemoryHandler struct {
	memoryWriter
}

// NewCreateMemoryHandler creates a new create memory handler
func NewCreateMemoryHandler(
	memoryRepo ports.MemoryRepository,
	sync *services.IndexSync,
	eventBus ports.EventBus,
	cache ports.Cache,
	logger *zap.Logger,
) *CreateMemoryHandler {
	return &CreateMemoryHandler{memoryWriter{memoryRepo, sync, eventBus, cache, logger}}
}

// Handle stores a new memory and indexes it
func (h *CreateMemoryHandler) Handle(ctx context.Context, cmd commands.CreateMemoryCommand) (*entities.Memory, error) {
	m, err := entities.NewMemory("", cmd.UserID, cmd.Input(), time.Now())
	if err != nil {
		return nil, err
	}

	if err := h.dualWrite(ctx, "create-memory", m, h.memoryRepo.Create); err != nil {
		return nil, err
	}

	h.publish(ctx, m.ID(), m.GetUncommittedEvents())
	m.MarkEventsAsCommitted()
	h.invalidateTags(ctx, cmd.UserID)

	h.logger.Info("Memory created",
		zap.String("memoryID", m.ID()),
		zap.String("userID", cmd.UserID),
		zap.Int("tags", len(m.Tags())),
	)
	return m, nil
}

// UpdateMemoryHandler handles full and partial memory updates
type UpdateMemoryHandler struct {
	memoryWriter
}

// NewUpdateMemoryHandler creates a new update memory handler
func NewUpdateMemoryHandler(
	memoryRepo ports.MemoryRepository,
	sync *services.IndexSync,
	eventBus ports.EventBus,
	cache ports.Cache,
	logger *zap.Logger,
) *UpdateMemoryHandler {
	return &UpdateMemoryHandler{memoryWriter{memoryRepo, sync, eventBus, cache, logger}}
}

// Handle executes the update memory command
func (h *UpdateMemoryHandler) Handle(ctx context.Context, cmd commands.UpdateMemoryCommand) (*entities.Memory, error) {
	m, err := h.memoryRepo.FindByID(ctx, cmd.UserID, cmd.MemoryID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if cmd.Replace {
		err = m.Replace(cmd.Input(), now)
	} else {
		err = m.Patch(cmd.Patch(), now)
	}
	if err != nil {
		return nil, err
	}

	if err := h.dualWrite(ctx, "update-memory", m, h.memoryRepo.Save); err != nil {
		return nil, err
	}

	h.publish(ctx, m.ID(), m.GetUncommittedEvents())
	m.MarkEventsAsCommitted()
	h.invalidateTags(ctx, cmd.UserID)

	h.logger.Info("Memory updated",
		zap.String("memoryID", m.ID()),
		zap.String("userID", cmd.UserID),
		zap.Bool("replace", cmd.Replace),
	)
	return m, nil
}

// DeleteMemoryHandler handles memory deletion
type DeleteMemoryHandler struct {
	memoryWriter
}

// NewDeleteMemoryHandler creates a new delete memory handler
func NewDeleteMemoryHandler(
	memoryRepo ports.MemoryRepository,
	sync *services.IndexSync,
	eventBus ports.EventBus,
	cache ports.Cache,
	logger *zap.Logger,
) *DeleteMemoryHandler {
	return &DeleteMemoryHandler{memoryWriter{memoryRepo, sync, eventBus, cache, logger}}
}

// Handle deletes the row, then the vector record. Only the row delete can
// fail the call.
func (h *DeleteMemoryHandler) Handle(ctx context.Context, cmd commands.DeleteMemoryCommand) error {
	saga := sagas.NewSagaBuilder("delete-memory", h.logger).
		WithField(zap.String("memoryID", cmd.MemoryID)).
		WithStep("delete-row", func(ctx context.Context, data interface{}) (interface{}, error) {
			return data, h.memoryRepo.Delete(ctx, cmd.UserID, cmd.MemoryID)
		}).
		WithBestEffortStep("delete-vector",
			func(ctx context.Context, data interface{}) (interface{}, error) {
				return data, h.sync.Delete(ctx, cmd.UserID, cmd.MemoryID)
			},
			indexAttempts, indexRetryDelay,
			func(ctx context.Context, _ interface{}, err error) {
				h.sync.RecordDrift(ctx, cmd.MemoryID, cmd.UserID, ports.RepairDelete, err)
			}).
		Build()

	if _, err := saga.Execute(ctx, cmd.MemoryID); err != nil {
		return err
	}

	h.publish(ctx, cmd.MemoryID, []events.DomainEvent{
		events.NewMemoryDeleted(cmd.MemoryID, cmd.UserID, time.Now()),
	})
	h.invalidateTags(ctx, cmd.UserID)

	h.logger.Info("Memory deleted",
		zap.String("memoryID", cmd.MemoryID),
		zap.String("userID", cmd.UserID),
	)
	return nil
}

// RepairMemoryIndexHandler runs the idempotent repair for one memory
type RepairMemoryIndexHandler struct {
	sync *services.IndexSync
}

func NewRepairMemoryIndexHandler(sync *services.IndexSync) *RepairMemoryIndexHandler {
	return &RepairMemoryIndexHandler{sync: sync}
}

// Handle returns the repair action taken
func (h *RepairMemoryIndexHandler) Handle(ctx context.Context, cmd commands.RepairMemoryIndexCommand) (string, error) {
	action, err := h.sync.Repair(ctx, cmd.UserID, cmd.MemoryID)
	if err != nil {
		return "", pkgerrors.NewUpstreamError("semantic index", err)
	}
	return action, nil
}

// ReindexHandler re-upserts whole namespaces. When a locker is configured
// each user's rebuild holds a lease so two sweeps never interleave.
type ReindexHandler struct {
	memoryRepo ports.MemoryRepository
	sync       *services.IndexSync
	locker     ports.Locker
	logger     *zap.Logger
}

// reindexLeaseTTL bounds how long a crashed sweep blocks the namespace.
const reindexLeaseTTL = 15 * time.Minute

func NewReindexHandler(memoryRepo ports.MemoryRepository, sync *services.IndexSync, locker ports.Locker, logger *zap.Logger) *ReindexHandler {
	return &ReindexHandler{memoryRepo: memoryRepo, sync: sync, locker: locker, logger: logger}
}

// Handle sweeps one user or every owner
func (h *ReindexHandler) Handle(ctx context.Context, cmd commands.ReindexCommand) (*commands.ReindexResult, error) {
	users := []string{cmd.UserID}
	if cmd.All {
		owners, err := h.memoryRepo.ListOwners(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list owners: %w", err)
		}
		users = owners
	}

	result := &commands.ReindexResult{}
	for _, userID := range users {
		indexed, failed, err := h.reindexUser(ctx, userID, cmd.Parallelism)
		if errors.Is(err, ports.ErrLockHeld) {
			h.logger.Warn("Reindex already running for user, skipping", zap.String("user_id", userID))
			result.Skipped++
			continue
		}
		result.Users++
		result.Indexed += indexed
		result.Failed += failed
		if err != nil {
			return result, err
		}
	}

	h.logger.Info("Reindex finished",
		zap.Int("users", result.Users),
		zap.Int("indexed", result.Indexed),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

func (h *ReindexHandler) reindexUser(ctx context.Context, userID string, parallelism int) (int, int, error) {
	if h.locker != nil {
		lease, err := h.locker.Acquire(ctx, "reindex:"+userID, reindexLeaseTTL)
		if err != nil {
			return 0, 0, err
		}
		defer func() {
			if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
				h.logger.Warn("Failed to release reindex lease", zap.String("user_id", userID), zap.Error(err))
			}
		}()
	}
	return h.sync.ReindexUser(ctx, userID, parallelism)
}
