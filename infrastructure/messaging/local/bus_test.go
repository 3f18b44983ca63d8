package local

import (
	"context"
	"testing"
	"time"

	"neuronote/domain/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBus_PublishFansOutAndSwallowsHandlerErrors(t *testing.T) {
	bus := NewBus(zap.NewNop())
	var got []string
	bus.Subscribe(events.TypeMemoryIndexDrift, func(ctx context.Context, e events.DomainEvent) error {
		return assert.AnError
	})
	bus.Subscribe(events.TypeMemoryIndexDrift, func(ctx context.Context, e events.DomainEvent) error {
		got = append(got, e.GetAggregateID())
		return nil
	})

	err := bus.PublishBatch(context.Background(), []events.DomainEvent{
		events.NewMemoryIndexDrift("m1", "u", "delete", "", time.Now()),
		events.NewMemoryDeleted("m2", "u", time.Now()),
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, got)
}
