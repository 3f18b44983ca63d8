package sagas

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// SagaStep represents a single step in a saga
type SagaStep struct {
	Name       string
	Execute    func(ctx context.Context, data interface{}) (interface{}, error)
	Compensate func(ctx context.Context, data interface{}) error
	MaxRetries int
	RetryDelay time.Duration

	// BestEffort steps never fail the saga. When they exhaust their retries
	// OnFailure is called and the saga continues with the unchanged data.
	BestEffort bool
	OnFailure  func(ctx context.Context, data interface{}, err error)
}

// SagaState represents the current state of a saga execution
type SagaState string

const (
	SagaStatePending      SagaState = "PENDING"
	SagaStateRunning      SagaState = "RUNNING"
	SagaStateCompleted    SagaState = "COMPLETED"
	SagaStateDegraded     SagaState = "DEGRADED"
	SagaStateFailed       SagaState = "FAILED"
	SagaStateCompensating SagaState = "COMPENSATING"
	SagaStateCompensated  SagaState = "COMPENSATED"
)

// Saga orchestrates a series of steps with compensation logic
type Saga struct {
	name          string
	steps         []SagaStep
	compensations []func(ctx context.Context) error
	state         SagaState
	failedSteps   []string
	logger        *zap.Logger
	fields        []zap.Field
}

// NewSaga creates a new saga instance
func NewSaga(name string, logger *zap.Logger) *Saga {
	return &Saga{
		name:   name,
		state:  SagaStatePending,
		logger: logger,
	}
}

// AddStep adds a step to the saga
func (s *Saga) AddStep(step SagaStep) *Saga {
	s.steps = append(s.steps, step)
	return s
}

// Execute runs the saga. A required step failure compensates completed steps
// in reverse order and returns the wrapped step error.
func (s *Saga) Execute(ctx context.Context, initialData interface{}) (interface{}, error) {
	s.state = SagaStateRunning
	s.compensations = s.compensations[:0]
	s.failedSteps = s.failedSteps[:0]

	data := initialData
	for _, step := range s.steps {
		result, err := s.executeStepWithRetry(ctx, step, data)
		if err != nil && step.BestEffort {
			s.failedSteps = append(s.failedSteps, step.Name)
			s.logger.Warn("Best-effort saga step failed",
				append(s.fields, zap.String("saga", s.name), zap.String("step", step.Name), zap.Error(err))...,
			)
			if step.OnFailure != nil {
				step.OnFailure(ctx, data, err)
			}
			continue
		}
		if err != nil {
			s.state = SagaStateFailed
			s.compensate(ctx)
			return nil, fmt.Errorf("saga %s failed at step %s: %w", s.name, step.Name, err)
		}

		data = result
		if step.Compensate != nil {
			stepData, compensate := data, step.Compensate
			s.compensations = append(s.compensations, func(ctx context.Context) error {
				return compensate(ctx, stepData)
			})
		}
	}

	if len(s.failedSteps) > 0 {
		s.state = SagaStateDegraded
	} else {
		s.state = SagaStateCompleted
	}
	return data, nil
}

// executeStepWithRetry executes a step with retry logic
func (s *Saga) executeStepWithRetry(ctx context.Context, step SagaStep, data interface{}) (interface{}, error) {
	maxRetries := step.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("step %s aborted: %w", step.Name, ctx.Err())
			case <-time.After(step.RetryDelay):
			}
		}

		result, err := step.Execute(ctx, data)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if maxRetries > 1 {
			s.logger.Debug("Saga step attempt failed",
				append(s.fields, zap.String("step", step.Name), zap.Int("attempt", attempt+1), zap.Error(err))...,
			)
		}
	}

	if maxRetries == 1 {
		return nil, lastErr
	}
	return nil, fmt.Errorf("step %s failed after %d attempts: %w", step.Name, maxRetries, lastErr)
}

// compensate runs compensation logic in reverse order
func (s *Saga) compensate(ctx context.Context) {
	if len(s.compensations) == 0 {
		return
	}
	s.state = SagaStateCompensating
	for i := len(s.compensations) - 1; i >= 0; i-- {
		if err := s.compensations[i](ctx); err != nil {
			// keep going, a partial rollback beats none
			s.logger.Error("Compensation failed",
				append(s.fields, zap.String("saga", s.name), zap.Int("step_number", i+1), zap.Error(err))...,
			)
		}
	}
	s.state = SagaStateCompensated
}

// GetState returns the current state of the saga
func (s *Saga) GetState() SagaState {
	return s.state
}

// FailedSteps names the best-effort steps that failed in the last run.
func (s *Saga) FailedSteps() []string {
	return append([]string(nil), s.failedSteps...)
}

// SagaBuilder provides a fluent interface for building sagas
type SagaBuilder struct {
	saga *Saga
}

// NewSagaBuilder creates a new saga builder
func NewSagaBuilder(name string, logger *zap.Logger) *SagaBuilder {
	return &SagaBuilder{
		saga: NewSaga(name, logger),
	}
}

// WithStep adds a step to the saga
func (b *SagaBuilder) WithStep(name string, execute func(context.Context, interface{}) (interface{}, error)) *SagaBuilder {
	b.saga.AddStep(SagaStep{
		Name:    name,
		Execute: execute,
	})
	return b
}

// WithCompensableStep adds a step with compensation logic
func (b *SagaBuilder) WithCompensableStep(
	name string,
	execute func(context.Context, interface{}) (interface{}, error),
	compensate func(context.Context, interface{}) error,
) *SagaBuilder {
	b.saga.AddStep(SagaStep{
		Name:       name,
		Execute:    execute,
		Compensate: compensate,
	})
	return b
}

// WithBestEffortStep adds a retried step whose failure is reported to
// onFailure instead of aborting the saga
func (b *SagaBuilder) WithBestEffortStep(
	name string,
	execute func(context.Context, interface{}) (interface{}, error),
	maxRetries int,
	retryDelay time.Duration,
	onFailure func(context.Context, interface{}, error),
) *SagaBuilder {
	b.saga.AddStep(SagaStep{
		Name:       name,
		Execute:    execute,
		MaxRetries: maxRetries,
		RetryDelay: retryDelay,
		BestEffort: true,
		OnFailure:  onFailure,
	})
	return b
}

// WithField attaches a log field to every saga log line
func (b *SagaBuilder) WithField(field zap.Field) *SagaBuilder {
	b.saga.fields = append(b.saga.fields, field)
	return b
}

// Build returns the constructed saga
func (b *SagaBuilder) Build() *Saga {
	return b.saga
}
