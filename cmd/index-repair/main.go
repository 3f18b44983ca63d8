// Package main implements the Lambda consumer for memory index drift events.
// Each event triggers the idempotent repair for the memory it names.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"neuronote/application/commands"
	"neuronote/application/commands/bus"
	"neuronote/domain/events"
	"neuronote/infrastructure/config"
	"neuronote/infrastructure/di"

	awsevents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"
)

// commandExecutor is the part of the command bus the handler needs.
type commandExecutor interface {
	Execute(ctx context.Context, cmd bus.Command) (interface{}, error)
}

type driftHandler struct {
	commands commandExecutor
	logger   *zap.Logger
}

// RepairResponse is returned to the invoker for visibility in logs.
type RepairResponse struct {
	MemoryID string `json:"memory_id"`
	UserID   string `json:"user_id"`
	Action   string `json:"action"`
	Skipped  bool   `json:"skipped,omitempty"`
}

// Handle runs the repair for one drift event. Events of another type are
// acknowledged and skipped so a broad rule cannot poison the queue.
func (h *driftHandler) Handle(ctx context.Context, event awsevents.CloudWatchEvent) (*RepairResponse, error) {
	if event.DetailType != events.TypeMemoryIndexDrift {
		h.logger.Debug("Ignoring event", zap.String("detail_type", event.DetailType))
		return &RepairResponse{Skipped: true}, nil
	}

	var drift events.MemoryIndexDrift
	if err := json.Unmarshal(event.Detail, &drift); err != nil {
		return nil, fmt.Errorf("failed to decode drift detail: %w", err)
	}

	result, err := h.commands.Execute(ctx, commands.RepairMemoryIndexCommand{
		UserID:   drift.UserID,
		MemoryID: drift.AggregateID,
	})
	if err != nil {
		h.logger.Error("Index repair failed",
			zap.String("memory_id", drift.AggregateID),
			zap.String("user_id", drift.UserID),
			zap.Error(err),
		)
		return nil, err
	}

	action, _ := result.(string)
	h.logger.Info("Index repaired",
		zap.String("memory_id", drift.AggregateID),
		zap.String("operation", drift.Operation),
		zap.String("action", action),
	)
	return &RepairResponse{MemoryID: drift.AggregateID, UserID: drift.UserID, Action: action}, nil
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, cleanup, err := di.InitializeContainer(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer cleanup()

	h := &driftHandler{commands: container.CommandBus, logger: container.Logger}
	lambda.Start(h.Handle)
}

