package observability

import (
	"context"
	"fmt"

	"github.com/aws/aws-xray-sdk-go/xray"
)

// Tracer records X-Ray subsegments for pipeline stages. A disabled tracer
// runs the wrapped function untouched, which keeps local runs free of
// missing-segment noise.
type Tracer struct {
	serviceName string
	enabled     bool
}

// NewTracer creates a new tracer instance
func NewTracer(serviceName string, enabled bool) *Tracer {
	return &Tracer{
		serviceName: serviceName,
		enabled:     enabled,
	}
}

// StartSegment starts a root segment, used by entrypoints outside Lambda.
func (t *Tracer) StartSegment(ctx context.Context, name string) (context.Context, func(error)) {
	if t == nil || !t.enabled {
		return ctx, func(error) {}
	}
	ctx, seg := xray.BeginSegment(ctx, fmt.Sprintf("%s.%s", t.serviceName, name))
	return ctx, closer(seg)
}

// Trace wraps fn in a subsegment named name.
func (t *Tracer) Trace(ctx context.Context, name string, fn func(context.Context) error) error {
	if t == nil || !t.enabled || xray.GetSegment(ctx) == nil {
		return fn(ctx)
	}

	ctx, seg := xray.BeginSubsegment(ctx, name)
	err := fn(ctx)
	closer(seg)(err)
	return err
}

// Annotate adds an indexed annotation to the current segment.
func (t *Tracer) Annotate(ctx context.Context, key string, value string) {
	if t == nil || !t.enabled {
		return
	}
	if seg := xray.GetSegment(ctx); seg != nil {
		seg.AddAnnotation(key, value)
	}
}

func closer(seg *xray.Segment) func(error) {
	return func(err error) {
		if seg == nil {
			return
		}
		if err != nil {
			seg.AddError(err)
		}
		seg.Close(err)
	}
}
