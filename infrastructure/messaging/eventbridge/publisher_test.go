package eventbridge

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"neuronote/domain/events"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockPutEvents struct {
	mock.Mock
}

func (m *mockPutEvents) PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*eventbridge.PutEventsOutput)
	return out, args.Error(1)
}

func driftEvents(n int) []events.DomainEvent {
	out := make([]events.DomainEvent, n)
	for i := range out {
		out[i] = events.NewMemoryIndexDrift("m", "u", "upsert", "timeout", time.Unix(0, 0))
	}
	return out
}

func TestPublisher_PublishBatch_ChunksByTen(t *testing.T) {
	// Arrange
	client := new(mockPutEvents)
	var sizes []int
	client.On("PutEvents", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			sizes = append(sizes, len(args.Get(1).(*eventbridge.PutEventsInput).Entries))
		}).
		Return(&eventbridge.PutEventsOutput{}, nil)
	publisher := NewPublisher(client, "neuronote-bus", zap.NewNop())

	// Act
	err := publisher.PublishBatch(context.Background(), driftEvents(23))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []int{10, 10, 3}, sizes)
}

func TestPublisher_Publish_EntryShape(t *testing.T) {
	client := new(mockPutEvents)
	client.On("PutEvents", mock.Anything, mock.MatchedBy(func(in *eventbridge.PutEventsInput) bool {
		e := in.Entries[0]
		var detail map[string]interface{}
		if err := json.Unmarshal([]byte(aws.ToString(e.Detail)), &detail); err != nil {
			return false
		}
		return aws.ToString(e.EventBusName) == "neuronote-bus" &&
			aws.ToString(e.Source) == events.SourceBackend &&
			aws.ToString(e.DetailType) == events.TypeMemoryIndexDrift &&
			detail["user_id"] == "u"
	})).Return(&eventbridge.PutEventsOutput{}, nil)

	err := NewPublisher(client, "neuronote-bus", zap.NewNop()).Publish(context.Background(), driftEvents(1)[0])

	require.NoError(t, err)
	client.AssertExpectations(t)
}

func TestPublisher_PublishBatch_FailedEntries(t *testing.T) {
	client := new(mockPutEvents)
	client.On("PutEvents", mock.Anything, mock.Anything).Return(&eventbridge.PutEventsOutput{
		FailedEntryCount: 1,
		Entries: []types.PutEventsResultEntry{
			{EventId: aws.String("ok")},
			{ErrorCode: aws.String("InternalFailure"), ErrorMessage: aws.String("boom")},
		},
	}, nil)

	err := NewPublisher(client, "bus", zap.NewNop()).PublishBatch(context.Background(), driftEvents(2))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 events failed")
}

func TestPublisher_PublishBatch_Empty(t *testing.T) {
	client := new(mockPutEvents)

	err := NewPublisher(client, "bus", zap.NewNop()).PublishBatch(context.Background(), nil)

	require.NoError(t, err)
	client.AssertNotCalled(t, "PutEvents", mock.Anything, mock.Anything)
}
