package metrics

import (
	"context"
	"strconv"
	"sync"
	"time"

	"neuronote/application/ports"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

// maxDatums is the PutMetricData batch limit.
const maxDatums = 1000

// PutMetricDataAPI is the slice of the CloudWatch client the sink uses.
type PutMetricDataAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatch buffers datums in memory and ships them on Flush, so recording
// never blocks a request on the network.
type CloudWatch struct {
	client    PutMetricDataAPI
	namespace string
	logger    *zap.Logger
	now       func() time.Time

	mu      sync.Mutex
	pending []types.MetricDatum
}

var _ ports.Metrics = (*CloudWatch)(nil)

func NewCloudWatch(client PutMetricDataAPI, namespace string, logger *zap.Logger) *CloudWatch {
	return &CloudWatch{client: client, namespace: namespace, logger: logger, now: time.Now}
}

func (m *CloudWatch) IndexDrift(operation string) {
	m.record("IndexDrift", 1, types.StandardUnitCount, "Operation", operation)
}

func (m *CloudWatch) IndexRepair(outcome string) {
	m.record("IndexRepair", 1, types.StandardUnitCount, "Outcome", outcome)
}

func (m *CloudWatch) RetrievalHits(candidates, kept int) {
	m.record("RetrievalCandidates", float64(candidates), types.StandardUnitCount)
	m.record("RetrievalKept", float64(kept), types.StandardUnitCount)
}

func (m *CloudWatch) Completion(provider string, duration time.Duration, err error) {
	m.record("CompletionLatency", float64(duration.Milliseconds()), types.StandardUnitMilliseconds,
		"Provider", provider, "Status", status(err))
}

func (m *CloudWatch) HTTPRequest(method, route string, code int, duration time.Duration) {
	m.record("RequestLatency", float64(duration.Milliseconds()), types.StandardUnitMilliseconds,
		"Method", method, "Route", route, "Status", strconv.Itoa(code))
}

// record appends one datum; dims are name/value pairs.
func (m *CloudWatch) record(name string, value float64, unit types.StandardUnit, dims ...string) {
	datum := types.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(value),
		Unit:       unit,
		Timestamp:  aws.Time(m.now()),
	}
	for i := 0; i+1 < len(dims); i += 2 {
		datum.Dimensions = append(datum.Dimensions, types.Dimension{
			Name:  aws.String(dims[i]),
			Value: aws.String(dims[i+1]),
		})
	}

	m.mu.Lock()
	m.pending = append(m.pending, datum)
	m.mu.Unlock()
}

// Flush ships every buffered datum. Datums of a failed batch are dropped.
func (m *CloudWatch) Flush(ctx context.Context) error {
	m.mu.Lock()
	data := m.pending
	m.pending = nil
	m.mu.Unlock()

	var firstErr error
	for i := 0; i < len(data); i += maxDatums {
		end := min(i+maxDatums, len(data))
		_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(m.namespace),
			MetricData: data[i:end],
		})
		if err != nil {
			m.logger.Warn("Failed to send metrics", zap.Int("datums", end-i), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Run flushes every interval until ctx ends, then flushes once more.
func (m *CloudWatch) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			_ = m.Flush(flushCtx)
			cancel()
			return
		case <-ticker.C:
			_ = m.Flush(ctx)
		}
	}
}
