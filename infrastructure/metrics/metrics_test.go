package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCollector_RecordsDomainMetrics(t *testing.T) {
	c := NewCollector("neuronote")

	c.IndexDrift("upsert")
	c.IndexDrift("upsert")
	c.IndexRepair("deleted")
	c.RetrievalHits(5, 2)
	c.Completion("openai", time.Second, errors.New("boom"))
	c.HTTPRequest("GET", "/tags", 200, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.IndexDrifts.WithLabelValues("upsert")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.IndexRepairs.WithLabelValues("deleted")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.RetrievalDropped))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Completions.WithLabelValues("openai", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.HTTPRequests.WithLabelValues("GET", "/tags", "200")))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector("neuronote")
	c.IndexDrift("delete")
	rec := httptest.NewRecorder()

	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `neuronote_index_drift_total{operation="delete"} 1`)
}

type mockPutMetricData struct {
	mock.Mock
}

func (m *mockPutMetricData) PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	args := m.Called(ctx, params)
	return &cloudwatch.PutMetricDataOutput{}, args.Error(0)
}

func TestCloudWatch_FlushShipsBufferedDatums(t *testing.T) {
	// Arrange
	client := new(mockPutMetricData)
	client.On("PutMetricData", mock.Anything, mock.MatchedBy(func(in *cloudwatch.PutMetricDataInput) bool {
		if aws.ToString(in.Namespace) != "Neuronote" || len(in.MetricData) != 2 {
			return false
		}
		d := in.MetricData[0]
		return aws.ToString(d.MetricName) == "IndexDrift" &&
			len(d.Dimensions) == 1 &&
			aws.ToString(d.Dimensions[0].Value) == "delete"
	})).Return(nil).Once()
	sink := NewCloudWatch(client, "Neuronote", zap.NewNop())
	sink.IndexDrift("delete")
	sink.IndexRepair("upserted")

	// Act
	err := sink.Flush(context.Background())

	// Assert
	require.NoError(t, err)
	client.AssertExpectations(t)
	require.NoError(t, sink.Flush(context.Background()))
	client.AssertNumberOfCalls(t, "PutMetricData", 1)
}

func TestCloudWatch_FlushError(t *testing.T) {
	client := new(mockPutMetricData)
	client.On("PutMetricData", mock.Anything, mock.Anything).Return(assert.AnError)
	sink := NewCloudWatch(client, "Neuronote", zap.NewNop())
	sink.Completion("anthropic", time.Second, nil)

	err := sink.Flush(context.Background())

	assert.ErrorIs(t, err, assert.AnError)
}
