package bus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type renameCommand struct {
	title string
}

func (c renameCommand) Validate() error {
	if c.title == "" {
		return errors.New("title is required")
	}
	return nil
}

func TestCommandBus_Execute_ReturnsHandlerResult(t *testing.T) {
	// Arrange
	cb := NewCommandBus(LoggingMiddleware(zap.NewNop()))
	require.NoError(t, cb.Register(renameCommand{}, CommandHandlerFunc(func(ctx context.Context, cmd Command) (interface{}, error) {
		return cmd.(renameCommand).title + "!", nil
	})))

	// Act
	result, err := cb.Execute(context.Background(), renameCommand{title: "notes"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "notes!", result)
}

func TestCommandBus_Send_PropagatesHandlerError(t *testing.T) {
	cb := NewCommandBus(LoggingMiddleware(zap.NewNop()))
	require.NoError(t, cb.Register(renameCommand{}, CommandHandlerFunc(func(ctx context.Context, cmd Command) (interface{}, error) {
		return nil, errors.New("conflict")
	})))

	err := cb.Send(context.Background(), renameCommand{title: "notes"})

	assert.EqualError(t, err, "conflict")
}

func TestCommandBus_Execute_InvalidCommandSkipsHandler(t *testing.T) {
	cb := NewCommandBus()
	called := false
	require.NoError(t, cb.Register(renameCommand{}, CommandHandlerFunc(func(ctx context.Context, cmd Command) (interface{}, error) {
		called = true
		return nil, nil
	})))

	_, err := cb.Execute(context.Background(), renameCommand{})

	assert.EqualError(t, err, "title is required")
	assert.False(t, called)
}

func TestCommandBus_Execute_Unregistered(t *testing.T) {
	_, err := NewCommandBus().Execute(context.Background(), renameCommand{title: "x"})

	assert.ErrorIs(t, err, ErrHandlerNotFound)
}

func TestCommandBus_Register_Duplicate(t *testing.T) {
	cb := NewCommandBus()
	h := CommandHandlerFunc(func(ctx context.Context, cmd Command) (interface{}, error) { return nil, nil })
	require.NoError(t, cb.Register(renameCommand{}, h))

	assert.Error(t, cb.Register(renameCommand{}, h))
}
