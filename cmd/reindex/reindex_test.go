package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"neuronote/application/commands"
	"neuronote/application/commands/bus"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockExecutor struct {
	mock.Mock
}

func (m *mockExecutor) Execute(ctx context.Context, cmd bus.Command) (interface{}, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0), args.Error(1)
}

type mockDrainer struct {
	mock.Mock
}

func (m *mockDrainer) Drain(ctx context.Context) (int, int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Int(1), args.Error(2)
}

func run(t *testing.T, exec commandExecutor, drainer queueDrainer, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd(exec, drainer)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestUserCmd_ReindexesOneUser(t *testing.T) {
	// Arrange
	exec := new(mockExecutor)
	exec.On("Execute", mock.Anything, commands.ReindexCommand{UserID: "u1", Parallelism: 2}).
		Return(&commands.ReindexResult{Users: 1, Indexed: 7}, nil)

	// Act
	out, err := run(t, exec, new(mockDrainer), "user", "u1", "--parallelism", "2")

	// Assert
	require.NoError(t, err)
	assert.Contains(t, out, "Reindexed 7 memories across 1 users")
	exec.AssertExpectations(t)
}

func TestAllCmd_UsesDefaultParallelism(t *testing.T) {
	exec := new(mockExecutor)
	exec.On("Execute", mock.Anything, commands.ReindexCommand{All: true, Parallelism: defaultParallelism}).
		Return(&commands.ReindexResult{Users: 3, Indexed: 12}, nil)

	_, err := run(t, exec, new(mockDrainer), "all")

	require.NoError(t, err)
	exec.AssertExpectations(t)
}

func TestAllCmd_ReportsFailures(t *testing.T) {
	exec := new(mockExecutor)
	exec.On("Execute", mock.Anything, mock.Anything).
		Return(&commands.ReindexResult{Users: 2, Indexed: 4, Failed: 1}, nil)

	_, err := run(t, exec, new(mockDrainer), "all")

	assert.EqualError(t, err, "1 memories failed to index")
}

func TestUserCmd_RequiresUserID(t *testing.T) {
	exec := new(mockExecutor)

	_, err := run(t, exec, new(mockDrainer), "user")

	assert.Error(t, err)
	exec.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestUserCmd_RejectsZeroParallelism(t *testing.T) {
	_, err := run(t, new(mockExecutor), new(mockDrainer), "user", "u1", "--parallelism", "0")

	assert.EqualError(t, err, "parallelism must be at least 1")
}

func TestDrainCmd(t *testing.T) {
	t.Run("empty queue", func(t *testing.T) {
		drainer := new(mockDrainer)
		drainer.On("Drain", mock.Anything).Return(3, 0, nil)

		out, err := run(t, new(mockExecutor), drainer, "drain")

		require.NoError(t, err)
		assert.Contains(t, out, "Repaired 3, failed 0")
	})

	t.Run("failures remain", func(t *testing.T) {
		drainer := new(mockDrainer)
		drainer.On("Drain", mock.Anything).Return(1, 2, nil)

		_, err := run(t, new(mockExecutor), drainer, "drain")

		assert.EqualError(t, err, "2 repairs still failing")
	})

	t.Run("queue error", func(t *testing.T) {
		drainer := new(mockDrainer)
		drainer.On("Drain", mock.Anything).Return(0, 0, errors.New("db gone"))

		_, err := run(t, new(mockExecutor), drainer, "drain")

		assert.EqualError(t, err, "drain: db gone")
	})
}
