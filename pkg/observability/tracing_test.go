package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracer_DisabledRunsFunction(t *testing.T) {
	tracer := NewTracer("neuronote", false)
	called := false

	err := tracer.Trace(context.Background(), "retrieve", func(ctx context.Context) error {
		called = true
		return errors.New("boom")
	})

	assert.True(t, called)
	assert.EqualError(t, err, "boom")
}

func TestTracer_EnabledWithoutSegmentStillRuns(t *testing.T) {
	tracer := NewTracer("neuronote", true)

	err := tracer.Trace(context.Background(), "complete", func(ctx context.Context) error { return nil })

	assert.NoError(t, err)
}

func TestTracer_NilIsSafe(t *testing.T) {
	var tracer *Tracer
	ctx, done := tracer.StartSegment(context.Background(), "x")
	done(nil)
	tracer.Annotate(ctx, "k", "v")
	assert.NoError(t, tracer.Trace(ctx, "y", func(context.Context) error { return nil }))
}
