package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"neuronote/application/commands"
	"neuronote/application/commands/bus"
	"neuronote/domain/events"

	awsevents "github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockExecutor struct {
	mock.Mock
}

func (m *mockExecutor) Execute(ctx context.Context, cmd bus.Command) (interface{}, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0), args.Error(1)
}

func driftEvent(t *testing.T) awsevents.CloudWatchEvent {
	t.Helper()
	detail, err := json.Marshal(events.NewMemoryIndexDrift("m1", "u1", "delete", "boom", time.Now()))
	require.NoError(t, err)
	return awsevents.CloudWatchEvent{DetailType: events.TypeMemoryIndexDrift, Detail: detail}
}

func TestDriftHandler_Handle_RunsRepair(t *testing.T) {
	// Arrange
	exec := new(mockExecutor)
	exec.On("Execute", mock.Anything, commands.RepairMemoryIndexCommand{UserID: "u1", MemoryID: "m1"}).
		Return("deleted", nil)
	h := &driftHandler{commands: exec, logger: zap.NewNop()}

	// Act
	resp, err := h.Handle(context.Background(), driftEvent(t))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, &RepairResponse{MemoryID: "m1", UserID: "u1", Action: "deleted"}, resp)
	exec.AssertExpectations(t)
}

func TestDriftHandler_Handle_SkipsOtherEvents(t *testing.T) {
	exec := new(mockExecutor)
	h := &driftHandler{commands: exec, logger: zap.NewNop()}

	resp, err := h.Handle(context.Background(), awsevents.CloudWatchEvent{DetailType: events.TypeMemoryDeleted})

	require.NoError(t, err)
	assert.True(t, resp.Skipped)
	exec.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestDriftHandler_Handle_PropagatesRepairError(t *testing.T) {
	exec := new(mockExecutor)
	exec.On("Execute", mock.Anything, mock.Anything).Return(nil, errors.New("vector store down"))
	h := &driftHandler{commands: exec, logger: zap.NewNop()}

	_, err := h.Handle(context.Background(), driftEvent(t))

	assert.EqualError(t, err, "vector store down")
}

func TestDriftHandler_Handle_RejectsMalformedDetail(t *testing.T) {
	h := &driftHandler{commands: new(mockExecutor), logger: zap.NewNop()}

	_, err := h.Handle(context.Background(), awsevents.CloudWatchEvent{
		DetailType: events.TypeMemoryIndexDrift,
		Detail:     json.RawMessage(`{"user_id":`),
	})

	assert.Error(t, err)
}
