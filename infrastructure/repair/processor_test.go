package repair

import (
	"context"
	"testing"
	"time"

	"neuronote/application/ports"
	"neuronote/application/ports/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockRepairer struct {
	mock.Mock
}

func (m *mockRepairer) Repair(ctx context.Context, userID, memoryID string) (string, error) {
	args := m.Called(ctx, userID, memoryID)
	return args.String(0), args.Error(1)
}

func TestProcessor_ProcessBatch(t *testing.T) {
	// Arrange
	queue := new(mocks.MockIndexRepairQueue)
	repairer := new(mockRepairer)
	queue.On("Pending", mock.Anything, 10, 3).Return([]ports.IndexRepair{
		{ID: "r1", MemoryID: "m1", UserID: "u1", Operation: ports.RepairUpsert},
		{ID: "r2", MemoryID: "m2", UserID: "u1", Operation: ports.RepairDelete, Attempts: 2},
	}, nil)
	repairer.On("Repair", mock.Anything, "u1", "m1").Return("upserted", nil)
	repairer.On("Repair", mock.Anything, "u1", "m2").Return("", assert.AnError)
	queue.On("Complete", mock.Anything, "r1").Return(nil)
	queue.On("Fail", mock.Anything, "r2", assert.AnError.Error()).Return(nil)
	p := NewProcessor(queue, repairer, Config{Interval: time.Hour, BatchSize: 10, MaxAttempts: 3}, zap.NewNop())

	// Act
	repaired, failed, err := p.ProcessBatch(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, repaired)
	assert.Equal(t, 1, failed)
	queue.AssertExpectations(t)
	repairer.AssertExpectations(t)
}

func TestProcessor_Drain_StopsWhenQueueIsEmpty(t *testing.T) {
	queue := new(mocks.MockIndexRepairQueue)
	repairer := new(mockRepairer)
	queue.On("Pending", mock.Anything, 50, 5).Return([]ports.IndexRepair{
		{ID: "r1", MemoryID: "m1", UserID: "u1"},
	}, nil).Once()
	queue.On("Pending", mock.Anything, 50, 5).Return(nil, nil).Once()
	repairer.On("Repair", mock.Anything, "u1", "m1").Return("deleted", nil)
	queue.On("Complete", mock.Anything, "r1").Return(nil)
	p := NewProcessor(queue, repairer, Config{}, zap.NewNop())

	repaired, failed, err := p.Drain(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, repaired)
	assert.Equal(t, 0, failed)
	queue.AssertNumberOfCalls(t, "Pending", 2)
}

func TestProcessor_ProcessBatch_QueueError(t *testing.T) {
	queue := new(mocks.MockIndexRepairQueue)
	queue.On("Pending", mock.Anything, 50, 5).Return(nil, assert.AnError)
	p := NewProcessor(queue, new(mockRepairer), Config{}, zap.NewNop())

	_, _, err := p.ProcessBatch(context.Background())

	assert.ErrorIs(t, err, assert.AnError)
}

func TestProcessor_StartStop(t *testing.T) {
	queue := new(mocks.MockIndexRepairQueue)
	queue.On("Pending", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil).Maybe()
	p := NewProcessor(queue, new(mockRepairer), Config{Interval: time.Millisecond}, zap.NewNop())

	p.Start(context.Background())
	time.Sleep(10 * time.Millisecond)
	p.Stop()

	select {
	case <-p.stoppedChan:
	default:
		t.Fatal("processor did not stop")
	}
}
